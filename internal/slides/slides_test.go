package slides

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/renubu/renubu/internal/model"
)

func TestRender(t *testing.T) {
	ctx := Context{
		"customer": map[string]any{
			"name":         "Acme",
			"arr":          1234567.5,
			"seats":        42,
			"trend":        0.125,
			"tier":         "mid_market",
			"renewal_date": time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
			"empty":        "",
		},
		"plain": "x",
	}

	cases := []struct {
		name, tmpl, want string
	}{
		{"nested path", "Hi {{ customer.name }}!", "Hi Acme!"},
		{"no spaces", "{{customer.seats}}", "42"},
		{"currency", "{{ customer.arr | currency }}", "$1,234,567.50"},
		{"currency whole", "{{ plainARR | default:\"5000\" | currency }}", "$5,000"},
		{"percent", "{{ customer.trend | percent }}", "12.5%"},
		{"date", "{{ customer.renewal_date | date }}", "Dec 1, 2026"},
		{"upper", "{{ customer.tier | upper }}", "MID_MARKET"},
		{"missing renders empty", "[{{ customer.nope }}]", "[]"},
		{"missing through scalar", "[{{ plain.deeper }}]", "[]"},
		{"default on missing", `{{ customer.nope | default:"n/a" }}`, "n/a"},
		{"default on empty string", `{{ customer.empty | default:"none" }}`, "none"},
		{"default keeps value", `{{ customer.name | default:"none" }}`, "Acme"},
		{"default with pipe inside quotes", `{{ customer.nope | default:"a|b" }}`, "a|b"},
		{"unknown filter ignored", "{{ customer.name | sparkle }}", "Acme"},
		{"unterminated kept literally", "Hello {{ customer.name", "Hello {{ customer.name"},
		{"unterminated after valid", "{{ plain }} and {{ oops", "x and {{ oops"},
		{"no placeholders", "just text", "just text"},
		{"multiple", "{{plain}}{{plain}}", "xx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Render(tc.tmpl, ctx); got != tc.want {
				t.Errorf("Render(%q) = %q, want %q", tc.tmpl, got, tc.want)
			}
		})
	}
}

func TestBuiltinLibrary(t *testing.T) {
	lib, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	list := lib.List()
	if len(list) < 3 {
		t.Fatalf("expected at least 3 workflows, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].ID >= list[i].ID {
			t.Errorf("List not sorted: %s before %s", list[i-1].ID, list[i].ID)
		}
	}

	w, err := lib.Get("renewal-planning")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(w.Slides) != 3 || w.Slides[0].ID != "overview" {
		t.Errorf("renewal-planning slides = %+v", w.Slides)
	}

	if _, err := lib.Get("nope"); !errors.Is(err, ErrUnknownWorkflow) {
		t.Errorf("unknown workflow err = %v", err)
	}
}

func TestLoadRejectsInvalidWorkflows(t *testing.T) {
	cases := map[string]string{
		"no id":     "name: x\nslides:\n  - id: a\n",
		"no slides": "id: x\n",
		"dup slide": "id: x\nslides:\n  - id: a\n  - id: a\n",
		"bad yaml":  "id: [x\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{"w.yaml": {Data: []byte(body)}}
			if _, err := Load(fsys); err == nil {
				t.Error("expected error")
			}
		})
	}

	dup := fstest.MapFS{
		"a.yaml": {Data: []byte("id: x\nslides:\n  - id: a\n")},
		"b.yml":  {Data: []byte("id: x\nslides:\n  - id: a\n")},
	}
	if _, err := Load(dup); err == nil {
		t.Error("duplicate workflow ids should be rejected")
	}
}

func TestRenderSlideWithCustomerContext(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	renewalDate := time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC)
	c := model.Customer{
		ID: "c1", Name: "Globex", ARR: 150000, Tier: "enterprise",
		SeatsPurchased: 100, SeatsActive: 90, HealthScore: 72, RenewalDate: &renewalDate,
		RiskScore: 20, OpportunityScore: 65, Quadrant: "expand",
	}
	csm := &model.User{Name: "Dana", Email: "dana@example.com"}
	ctx := ContextAt(now, c, nil, csm)

	lib, err := Builtin()
	if err != nil {
		t.Fatal(err)
	}
	w, _ := lib.Get("renewal-planning")
	s := RenderSlide(w.Slides[0], ctx)

	if s.Title != "Globex renewal overview" {
		t.Errorf("title = %q", s.Title)
	}
	if !strings.Contains(s.Chat[0].Text, "Nov 18, 2026") || !strings.Contains(s.Chat[0].Text, "(30 days out)") {
		t.Errorf("chat = %q", s.Chat[0].Text)
	}
	if !strings.Contains(s.Document, "| ARR | $150,000 |") || !strings.Contains(s.Document, "| Seat utilization | 90% |") {
		t.Errorf("document = %q", s.Document)
	}
	if !strings.Contains(s.Document, "| Tier | ENTERPRISE |") {
		t.Errorf("tier row missing: %q", s.Document)
	}

	last := RenderSlide(w.Slides[2], ctx)
	if !strings.Contains(last.Document, "Prepared by Dana on Oct 19, 2026.") {
		t.Errorf("pricing document = %q", last.Document)
	}
	if !strings.Contains(last.Chat[0].Text, "pending") {
		t.Errorf("missing pricing should fall back to default: %q", last.Chat[0].Text)
	}
}

func TestContextForRenewal(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	rn := &model.Renewal{RenewalDate: time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC), Stage: model.StageOutreach, Probability: 0.8}
	ctx := ContextAt(now, model.Customer{Name: "Acme"}, rn, nil)

	if got := Render("{{ renewal.days_until }} {{ renewal.stage }} {{ renewal.probability | percent }}", ctx); got != "10 outreach 80%" {
		t.Errorf("renewal context = %q", got)
	}
	if got := Render("[{{ csm.name }}][{{ customer.renewal_date }}]", ctx); got != "[][]" {
		t.Errorf("absent values = %q", got)
	}
}
