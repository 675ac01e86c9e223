package util

import "testing"

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"acme.com":                     "acme.com",
		"  https://www.Acme.com/about": "acme.com",
		"http://beta.io:8080?x=1":      "beta.io",
		"ops@globex.co.uk":             "globex.co.uk",
		"www.initech.com.":             "initech.com",
		"":                             "",
	}
	for in, want := range cases {
		if got := NormalizeDomain(in); got != want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIDs(t *testing.T) {
	id := NewID()
	if !ValidID(id) {
		t.Fatalf("NewID produced invalid uuid %q", id)
	}
	if ValidID("not-a-uuid") {
		t.Error("ValidID accepted garbage")
	}
	a, b := NewULID(), NewULID()
	if len(a) != 26 || a == b {
		t.Errorf("unexpected ulids %q %q", a, b)
	}
}
