// Package classifier decides which lead source an inbound message came from.
// Classification is pure: it never fails and never touches storage.
package classifier

import (
	"net/mail"
	"strings"
)

// Source tags produced by the classifier.
const (
	SourceHomeStack = "HomeStack"
	SourceZillow    = "Zillow"
	SourceRealtor   = "Realtor.com"
	SourceRedfin    = "Redfin"
	SourceEmailForm = "email_form"
	SourceOther     = "other"
)

// Registration is a configured lead source and the sender patterns that
// identify it. A pattern may contain one "*" wildcard.
type Registration struct {
	Name           string   `json:"name" yaml:"name"`
	EmailPatterns  []string `json:"emailPatterns" yaml:"email_patterns"`
	DomainPatterns []string `json:"domainPatterns" yaml:"domain_patterns"`
	Keywords       []string `json:"keywords" yaml:"keywords"`
}

type vendor struct {
	token  string
	source string
}

// vendors are checked in order; the first token found wins.
var vendors = []vendor{
	{token: "homestack", source: SourceHomeStack},
	{token: "zillow", source: SourceZillow},
	{token: "realtor.com", source: SourceRealtor},
	{token: "redfin", source: SourceRedfin},
}

var formKeywords = []string{"lead", "inquiry", "contact", "form"}

// Classifier matches messages against a fixed set of registrations.
// It is safe for concurrent use.
type Classifier struct {
	registrations []Registration
}

// New returns a Classifier over a copy of regs, in the given priority order.
func New(regs []Registration) *Classifier {
	out := make([]Registration, len(regs))
	copy(out, regs)
	return &Classifier{registrations: out}
}

// Registrations returns the registrations in priority order.
func (c *Classifier) Registrations() []Registration {
	out := make([]Registration, len(c.registrations))
	copy(out, c.registrations)
	return out
}

// Classify returns the source tag for a message. Sender address patterns
// are tried first, then sender domain patterns, then keyword heuristics.
// A vendor token in the body is the weakest signal.
func (c *Classifier) Classify(from, subject, body string) string {
	addr := SenderAddress(from)
	domain := domainOf(addr)

	if addr != "" {
		for _, reg := range c.registrations {
			for _, p := range reg.EmailPatterns {
				if MatchPattern(p, addr) {
					return reg.Name
				}
			}
		}
	}

	if domain != "" {
		for _, reg := range c.registrations {
			for _, p := range reg.DomainPatterns {
				if matchDomain(p, domain) {
					return reg.Name
				}
			}
		}
	}

	return heuristic(strings.ToLower(from), strings.ToLower(subject), strings.ToLower(body))
}

func heuristic(sender, subject, body string) string {
	for _, v := range vendors {
		if strings.Contains(subject, v.token) || strings.Contains(sender, v.token) {
			return v.source
		}
	}
	for _, kw := range formKeywords {
		if strings.Contains(subject, kw) {
			return SourceEmailForm
		}
	}
	for _, v := range vendors {
		if strings.Contains(body, v.token) {
			return v.source
		}
	}
	return SourceOther
}

// SenderAddress extracts the lower-cased address from a From header value,
// accepting both "Name <addr>" and bare addresses.
func SenderAddress(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	if a, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(a.Address)
	}
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return strings.ToLower(strings.TrimSpace(from[i+1 : j]))
		}
	}
	return strings.ToLower(from)
}

func domainOf(addr string) string {
	i := strings.LastIndex(addr, "@")
	if i < 0 || i == len(addr)-1 {
		return ""
	}
	return addr[i+1:]
}

// MatchPattern compares value to pattern case-insensitively. A single "*"
// matches any run of characters, so "*@zillow.com" is a suffix match and
// "leads@*" a prefix match. Patterns with more than one "*" never match.
func MatchPattern(pattern, value string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	value = strings.ToLower(strings.TrimSpace(value))
	if pattern == "" || value == "" {
		return false
	}

	switch strings.Count(pattern, "*") {
	case 0:
		return pattern == value
	case 1:
		prefix, suffix, _ := strings.Cut(pattern, "*")
		return len(value) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(value, prefix) &&
			strings.HasSuffix(value, suffix)
	default:
		return false
	}
}

// matchDomain is MatchPattern plus the rule that "*.x.com" also covers x.com.
func matchDomain(pattern, domain string) bool {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if strings.HasPrefix(p, "*.") && strings.EqualFold(domain, p[2:]) {
		return true
	}
	return MatchPattern(p, domain)
}
