package slides

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Context is the nested data placeholders are resolved against.
type Context map[string]any

// Render replaces {{ path.to.value | filter }} placeholders in tmpl.
// Missing values render empty; an unterminated "{{" is kept literally.
func Render(tmpl string, ctx Context) string {
	var sb strings.Builder
	rest := tmpl
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			sb.WriteString(rest)
			break
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			sb.WriteString(rest)
			break
		}
		sb.WriteString(rest[:open])
		sb.WriteString(evaluate(rest[open+2:open+2+end], ctx))
		rest = rest[open+2+end+2:]
	}
	return sb.String()
}

// RenderSlide renders every user-visible string of s.
func RenderSlide(s Slide, ctx Context) Slide {
	out := Slide{ID: s.ID, Title: Render(s.Title, ctx), Document: Render(s.Document, ctx)}
	for _, m := range s.Chat {
		out.Chat = append(out.Chat, Message{Role: m.Role, Text: Render(m.Text, ctx)})
	}
	for _, a := range s.Actions {
		out.Actions = append(out.Actions, Action{ID: a.ID, Kind: a.Kind, Label: Render(a.Label, ctx)})
	}
	return out
}

func evaluate(expr string, ctx Context) string {
	parts := splitPipes(expr)
	val := lookup(ctx, strings.TrimSpace(parts[0]))
	for _, f := range parts[1:] {
		val = applyFilter(strings.TrimSpace(f), val)
	}
	return format(val)
}

// splitPipes splits on "|" outside double quotes.
func splitPipes(expr string) []string {
	var parts []string
	inQuote := false
	start := 0
	for i, r := range expr {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '|' && !inQuote:
			parts = append(parts, expr[start:i])
			start = i + 1
		}
	}
	return append(parts, expr[start:])
}

func lookup(ctx Context, path string) any {
	if path == "" {
		return nil
	}
	var cur any = map[string]any(ctx)
	for _, key := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[key]
		case Context:
			cur = m[key]
		case map[string]string:
			cur = m[key]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

func applyFilter(f string, v any) any {
	name, arg, _ := strings.Cut(f, ":")
	switch strings.TrimSpace(name) {
	case "default":
		if format(v) == "" {
			return unquote(strings.TrimSpace(arg))
		}
		return v
	case "upper":
		if v == nil {
			return nil
		}
		return strings.ToUpper(format(v))
	case "currency":
		if n, ok := number(v); ok {
			return currency(n)
		}
		return v
	case "percent":
		if n, ok := number(v); ok {
			return trimFloat(n*100, 1) + "%"
		}
		return v
	case "date":
		if t, ok := asTime(v); ok {
			return t.Format("Jan 2, 2006")
		}
		return v
	default:
		return v
	}
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return trimFloat(x, 2)
	case float32:
		return trimFloat(float64(x), 2)
	case *int:
		if x == nil {
			return ""
		}
		return strconv.Itoa(*x)
	case time.Time:
		return x.Format("2006-01-02")
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// currency formats n as US dollars with thousands separators; cents only when present.
func currency(n float64) string {
	neg := n < 0
	n = math.Abs(n)
	cents := int64(math.Round(n * 100))
	whole, frac := cents/100, cents%100

	digits := strconv.FormatInt(whole, 10)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}
	s := "$" + sb.String()
	if frac != 0 {
		s += fmt.Sprintf(".%02d", frac)
	}
	if neg {
		s = "-" + s
	}
	return s
}

func trimFloat(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
