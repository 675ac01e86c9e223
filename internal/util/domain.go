package util

import (
	"regexp"
	"strings"
)

var domainJunk = regexp.MustCompile(`[^a-z0-9\.\-]+`)

// NormalizeDomain turns user input like "https://www.Acme.com/about" into "acme.com".
func NormalizeDomain(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	s = domainJunk.ReplaceAllString(s, "")

	return strings.Trim(s, ".")
}
