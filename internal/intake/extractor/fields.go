package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength bounds every extracted message, in characters.
const MaxMessageLength = 500

const ellipsis = "..."

var (
	emailRegex = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRegex = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)

	// labelLine matches the start of any "Label: value" row. It ends a
	// multi-line message block.
	labelLine = regexp.MustCompile(`^\s*[A-Z][A-Za-z0-9#/&.' \-]{0,40}:(\s|$)`)

	replyPrefix = regexp.MustCompile(`(?i)^\s*(?:re|fw|fwd)\s*:\s*`)
	digitsOnly  = regexp.MustCompile(`\D`)
)

// field is a set of label spellings that mean the same thing.
type field struct {
	re *regexp.Regexp
}

func newField(labels ...string) field {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(l), " ", `\s+`)
	}
	pattern := `(?im)^[ \t>*\-]*(?:` + strings.Join(quoted, "|") + `)[ \t]*:[ \t]*(.*)$`
	return field{re: regexp.MustCompile(pattern)}
}

// all returns every non-empty value labeled by f, in body order.
func (f field) all(body string) []string {
	var out []string
	for _, m := range f.re.FindAllStringSubmatch(body, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// first returns the first non-empty value labeled by f.
func (f field) first(body string) string {
	for _, m := range f.re.FindAllStringSubmatch(body, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return ""
}

var (
	fieldName      = newField("Name", "Full Name", "Contact Name", "Lead Name", "Buyer Name")
	fieldFirstName = newField("First Name", "Firstname")
	fieldLastName  = newField("Last Name", "Lastname", "Surname")
	fieldEmail     = newField("Email", "E-mail", "Email Address", "E-mail Address")
	fieldPhone     = newField("Phone", "Phone Number", "Mobile", "Mobile Phone", "Cell", "Cell Phone", "Telephone")
	fieldMessage   = newField("Message", "Comments", "Comment", "Notes", "Questions")
	fieldCompany   = newField("Company", "Company Name", "Brokerage")
	fieldJobTitle  = newField("Job Title", "Position")
)

// splitName splits at the first whitespace run: the first token is the
// first name and the rest, possibly several words, the last name.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func cleanSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		next := replyPrefix.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}

func labeledEmails(body string) []string {
	var out []string
	for _, v := range fieldEmail.all(body) {
		out = append(out, emailRegex.FindAllString(v, -1)...)
	}
	return dedupeFold(out)
}

func labeledPhones(body string) []string {
	var out []string
	for _, v := range fieldPhone.all(body) {
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' }) {
			part = strings.TrimSpace(part)
			if len(digitsOnly.ReplaceAllString(part, "")) >= 7 {
				out = append(out, part)
			}
		}
	}
	return dedupeFold(out)
}

func scannedEmails(body string) []string {
	return dedupeFold(emailRegex.FindAllString(body, -1))
}

func scannedPhones(body string) []string {
	matches := phoneRegex.FindAllString(body, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m))
	}
	return dedupeFold(out)
}

// messageBlock returns the labeled message: the text after the label on its
// line plus following lines up to a blank line or the next label row.
func messageBlock(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, line := range lines {
		m := fieldMessage.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		parts := []string{}
		if v := strings.TrimSpace(m[1]); v != "" {
			parts = append(parts, v)
		}
		for _, next := range lines[i+1:] {
			t := strings.TrimSpace(next)
			if t == "" {
				if len(parts) == 0 {
					continue
				}
				break
			}
			if labelLine.MatchString(next) {
				break
			}
			parts = append(parts, t)
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return ""
}

// resolveMessage prefers the labeled block and falls back to the body.
// Either way the result is bounded by MaxMessageLength.
func resolveMessage(body string) string {
	if m := messageBlock(body); m != "" {
		return truncate(m, MaxMessageLength)
	}
	return truncate(strings.TrimSpace(body), MaxMessageLength)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + ellipsis
}

func dedupeFold(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
