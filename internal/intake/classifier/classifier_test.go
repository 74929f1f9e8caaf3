package classifier

import "testing"

const fmtExpectedSource = "Classify(%q, %q) = %q, want %q"

func testRegistrations() []Registration {
	return []Registration{
		{Name: "Zillow", EmailPatterns: []string{"*@zillow.com"}, DomainPatterns: []string{"*.zillow.com"}},
		{Name: "HomeStack", EmailPatterns: []string{"leads@homestack.com"}},
		{Name: "Office Form", EmailPatterns: []string{"forms@*"}},
		{Name: "Broker Site", DomainPatterns: []string{"brokerleads.net"}},
	}
}

func TestClassify(t *testing.T) {
	c := New(testRegistrations())

	tests := []struct {
		name    string
		from    string
		subject string
		want    string
	}{
		{"email suffix wildcard", "Zillow <premier@zillow.com>", "Hi", "Zillow"},
		{"exact email any case", "LEADS@HomeStack.com", "whatever", "HomeStack"},
		{"email prefix wildcard", "forms@agency.example", "Hello", "Office Form"},
		{"domain wildcard subdomain", "alerts@mail.zillow.com", "Hello", "Zillow"},
		{"domain exact", "noreply@brokerleads.net", "Hello", "Broker Site"},
		{"vendor token in subject", "someone@gmail.com", "New Redfin tour request", "Redfin"},
		{"vendor token in sender", "notify@realtor.com", "You have mail", "Realtor.com"},
		{"vendor order homestack first", "x@y.com", "HomeStack via Zillow", "HomeStack"},
		{"generic form keyword", "web@mysite.com", "Website Inquiry", "email_form"},
		{"contact keyword", "web@mysite.com", "New contact request", "email_form"},
		{"nothing matches", "friend@gmail.com", "Lunch tomorrow?", "other"},
		{"empty input", "", "", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.from, tt.subject, ""); got != tt.want {
				t.Errorf(fmtExpectedSource, tt.from, tt.subject, got, tt.want)
			}
		})
	}
}

func TestClassifyRegistrationOrderWins(t *testing.T) {
	c := New([]Registration{
		{Name: "First", EmailPatterns: []string{"*@shared.com"}},
		{Name: "Second", EmailPatterns: []string{"team@shared.com"}},
	})
	if got := c.Classify("team@shared.com", "", ""); got != "First" {
		t.Fatalf("expected first registration to win, got %q", got)
	}
}

func TestClassifyEmailBeforeDomain(t *testing.T) {
	c := New([]Registration{
		{Name: "ByDomain", DomainPatterns: []string{"partner.com"}},
		{Name: "ByEmail", EmailPatterns: []string{"vip@partner.com"}},
	})
	if got := c.Classify("vip@partner.com", "", ""); got != "ByEmail" {
		t.Fatalf("expected email pattern to beat domain pattern, got %q", got)
	}
}

func TestClassifyBodyIsWeakestSignal(t *testing.T) {
	c := New(nil)
	tests := []struct {
		name    string
		from    string
		subject string
		body    string
		want    string
	}{
		{"vendor token in body", "noreply@mailer.example", "Fwd: you have a message", "Sent via Zillow Premier Agent", "Zillow"},
		{"subject keyword beats body", "noreply@mailer.example", "Website inquiry", "Listed on Redfin", "email_form"},
		{"subject vendor beats body", "noreply@mailer.example", "HomeStack alert", "zillow", "HomeStack"},
		{"plain body", "friend@gmail.com", "Hi", "see you soon", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.from, tt.subject, tt.body); got != tt.want {
				t.Errorf(fmtExpectedSource, tt.from, tt.subject, got, tt.want)
			}
		})
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    bool
	}{
		{"john@test.com", "JOHN@TEST.COM", true},
		{"*@zillow.com", "a@zillow.com", true},
		{"*@zillow.com", "a@notzillow.org", false},
		{"leads@*", "leads@x.com", true},
		{"lead*@x.com", "leads@x.com", true},
		{"lead*@x.com", "lea@x.com", false},
		{"a*b*c", "abc", false},
		{"", "x", false},
	}
	for _, tt := range tests {
		if got := MatchPattern(tt.pattern, tt.value); got != tt.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.value, got, tt.want)
		}
	}
}

func TestSenderAddress(t *testing.T) {
	tests := map[string]string{
		"John <John@Example.com>": "john@example.com",
		"john@example.com":        "john@example.com",
		"Broken Name <x@y.com":    "broken name <x@y.com",
		"":                        "",
	}
	for in, want := range tests {
		if got := SenderAddress(in); got != want {
			t.Errorf("SenderAddress(%q) = %q, want %q", in, got, want)
		}
	}
}
