package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"(415) 867-5309", "+14158675309"},
		{"+44 20 7031 3000", "+442070313000"},
		{"  ", ""},
		{"call me", "call me"},
	}
	for _, tc := range cases {
		if got := NormalizeE164(tc.in); got != tc.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeE164Region(t *testing.T) {
	if got := NormalizeE164Region("020 7031 3000", "GB"); got != "+442070313000" {
		t.Fatalf("GB number = %q", got)
	}
}

func TestNormalizeAllDropsBlanksAndDuplicates(t *testing.T) {
	got := NormalizeAll([]string{"415-867-5309", "", "+1 (415) 867-5309", "12"}, "")
	if len(got) != 2 || got[0] != "+14158675309" || got[1] != "12" {
		t.Fatalf("NormalizeAll = %v", got)
	}
}
