package extractor

import (
	"regexp"
	"strings"
)

// layout describes where one source puts each field. Every vendor strategy
// is a layout; only the generic one scans unlabeled text.
type layout struct {
	name            string
	subjectName     []*regexp.Regexp
	subjectProperty []*regexp.Regexp
	propertyField   field
	details         []detailField
	scanUnlabeled   bool
}

func (l *layout) Name() string { return l.name }

func (l *layout) Extract(subject, body string) (Candidate, bool) {
	subject = cleanSubject(subject)
	body = strings.ReplaceAll(body, "\r\n", "\n")

	first, last := l.resolveName(subject, body)
	if first == "" {
		return Candidate{Emails: []string{}, Phones: []string{}}, false
	}

	c := Candidate{
		FirstName: first,
		LastName:  last,
		Emails:    labeledEmails(body),
		Phones:    labeledPhones(body),
		Message:   resolveMessage(body),
		Company:   fieldCompany.first(body),
	}
	if l.scanUnlabeled {
		if len(c.Emails) == 0 {
			c.Emails = scannedEmails(body)
		}
		if len(c.Phones) == 0 {
			c.Phones = scannedPhones(body)
		}
		c.JobTitle = fieldJobTitle.first(body)
	}
	c.PropertyAddress = l.resolveProperty(subject, body)
	c.PropertyDetails = l.resolveDetails(body)
	return c, true
}

func (l *layout) resolveName(subject, body string) (string, string) {
	for _, re := range l.subjectName {
		if m := re.FindStringSubmatch(subject); m != nil {
			if first, last := splitName(m[1]); first != "" {
				return first, last
			}
		}
	}
	if full := fieldName.first(body); full != "" {
		return splitName(full)
	}
	first := strings.TrimSpace(fieldFirstName.first(body))
	last := strings.TrimSpace(fieldLastName.first(body))
	return splitName(first + " " + last)
}

func (l *layout) resolveProperty(subject, body string) string {
	for _, re := range l.subjectProperty {
		if m := re.FindStringSubmatch(subject); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	if l.propertyField.re == nil {
		return ""
	}
	return l.propertyField.first(body)
}

func (l *layout) resolveDetails(body string) string {
	var parts []string
	for _, d := range l.details {
		if v := d.field.first(body); v != "" {
			parts = append(parts, d.label+": "+v)
		}
	}
	return strings.Join(parts, "; ")
}

type detailField struct {
	label string
	field field
}

func detailFields(labels ...string) []detailField {
	out := make([]detailField, len(labels))
	for i, l := range labels {
		out[i] = detailField{label: l, field: newField(l)}
	}
	return out
}

var defaultDetails = detailFields("Price", "Beds", "Baths", "Sq Ft", "MLS ID", "MLS #")

// HomeStack reads "New Lead: <name>" subjects and labeled bodies.
func HomeStack() Strategy {
	return &layout{
		name: "homestack",
		subjectName: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^new\s+lead\s*[:\-]\s*(.+)$`),
		},
		propertyField: newField("Property", "Property Address", "Address"),
		details:       defaultDetails,
	}
}

// Zillow reads "<name> is requesting information about <address>" and
// "New Contact: <name>" subjects.
func Zillow() Strategy {
	return &layout{
		name: "zillow",
		subjectName: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^(.+?)\s+(?:is requesting|requested|wants)\s+(?:information|info|a tour|to tour)\b`),
			regexp.MustCompile(`(?i)^new\s+contact\s*[:\-]\s*(.+)$`),
		},
		subjectProperty: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\s(?:about|of|for)\s+(.+)$`),
		},
		propertyField: newField("Property", "Listing", "Property Address"),
		details:       defaultDetails,
	}
}

// Realtor reads labeled bodies, including split first/last name rows, and
// "inquiry about <address>" subjects.
func Realtor() Strategy {
	return &layout{
		name: "realtor",
		subjectProperty: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:inquiry|question|lead)\s+(?:about|for|on)\s+(.+)$`),
		},
		propertyField: newField("Property Address", "Property", "Listing Address"),
		details:       defaultDetails,
	}
}

// Redfin reads "Redfin lead: <name>" subjects.
func Redfin() Strategy {
	return &layout{
		name: "redfin",
		subjectName: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^redfin\s+(?:lead|inquiry|tour request)(?:\s+from)?\s*[:\-]?\s+(.+)$`),
		},
		propertyField: newField("Home", "Listing", "Property"),
		details:       defaultDetails,
	}
}

// Generic reads labeled fields and, when contact rows are missing, scans
// the whole body for addresses and numbers.
func Generic() Strategy {
	return &layout{
		name:          "generic",
		propertyField: newField("Property", "Property Address", "Address"),
		details:       defaultDetails,
		scanUnlabeled: true,
	}
}
