package sanitize

import (
	"strings"
	"testing"
)

func TestStripHTML(t *testing.T) {
	got := StripHTML(" <b>Hello</b> &amp; welcome ")
	if got != "Hello & welcome" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestHTMLToTextKeepsLabelRows(t *testing.T) {
	body := `<html><head><style>p{color:red}</style></head><body>
<p>Name: Jane Doe</p><div>Email: <a href="mailto:jane@x.com">jane@x.com</a></div>
<table><tr><td>Phone:</td><td>555-000-1111</td></tr></table><script>alert(1)</script>
</body></html>`

	got := HTMLToText(body)
	for _, want := range []string{"Name: Jane Doe", "Email: jane@x.com", "Phone: 555-000-1111"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got %q", want, got)
		}
	}
	if strings.Contains(got, "alert") || strings.Contains(got, "color") {
		t.Errorf("script or style leaked into output: %q", got)
	}
}

func TestIsHTML(t *testing.T) {
	if IsHTML("Name: John\nEmail: j@x.com") {
		t.Fatal("plain text detected as html")
	}
	if !IsHTML("<div>Name: John</div>") {
		t.Fatal("html not detected")
	}
}
