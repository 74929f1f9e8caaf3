package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/extractor"
)

// MaxItems bounds one webhook delivery.
const MaxItems = 100

var (
	ErrEmptyPayload    = errors.New("payload is empty")
	ErrInvalidPayload  = errors.New("payload must be a JSON object or array")
	ErrTooManyItems    = fmt.Errorf("payload carries more than %d items", MaxItems)
	keyNormalizer      = strings.NewReplacer("-", "", "_", "", " ", "", ".", "")
	fieldFirstName     = []string{"first_name", "firstname", "given_name", "fname"}
	fieldLastName      = []string{"last_name", "lastname", "family_name", "surname", "lname"}
	fieldFullName      = []string{"name", "full_name", "your_name", "contact_name"}
	fieldEmail         = []string{"email", "emails", "e-mail", "email_address", "mail"}
	fieldPhone         = []string{"phone", "phones", "phone_number", "telephone", "tel", "mobile", "cell"}
	fieldCompany       = []string{"company", "company_name", "organization", "organisation", "brokerage"}
	fieldJobTitle      = []string{"job_title", "title", "position", "role"}
	fieldSource        = []string{"source", "lead_source", "origin"}
	fieldMessage       = []string{"message", "comments", "comment", "notes", "question", "inquiry"}
	fieldAddress       = []string{"property_address", "address", "street_address", "listing_address"}
	fieldPropertyNotes = []string{"property_details", "property", "listing", "listing_url", "mls"}
)

// ParsePayload turns a webhook body into candidates. It accepts a single
// object of lead fields, an array of them, or either wrapped in a "data"
// envelope. Items that are not objects yield empty candidates so each
// position still gets an outcome.
func ParsePayload(body []byte) ([]extractor.Candidate, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyPayload
	}

	items, err := unwrap(body)
	if err != nil {
		return nil, err
	}
	if len(items) > MaxItems {
		return nil, ErrTooManyItems
	}

	out := make([]extractor.Candidate, len(items))
	for i, raw := range items {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		out[i] = candidateFromFields(fields)
	}
	return out, nil
}

func unwrap(body []byte) ([]json.RawMessage, error) {
	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, ErrInvalidPayload
		}
		return items, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, ErrInvalidPayload
		}
		data, ok := envelope["data"]
		if !ok {
			return []json.RawMessage{body}, nil
		}
		data = bytes.TrimSpace(data)
		if len(data) > 0 && (data[0] == '[' || data[0] == '{') {
			return unwrap(data)
		}
		return []json.RawMessage{body}, nil
	default:
		return nil, ErrInvalidPayload
	}
}

func candidateFromFields(fields map[string]any) extractor.Candidate {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	byKey := make(map[string]any, len(keys))
	for _, key := range keys {
		k := normalizeKey(key)
		if _, ok := byKey[k]; !ok {
			byKey[k] = fields[key]
		}
	}

	c := extractor.Candidate{
		FirstName:       lookupString(byKey, fieldFirstName),
		LastName:        lookupString(byKey, fieldLastName),
		Emails:          lookupAll(byKey, fieldEmail),
		Phones:          lookupAll(byKey, fieldPhone),
		Company:         lookupString(byKey, fieldCompany),
		JobTitle:        lookupString(byKey, fieldJobTitle),
		Source:          lookupString(byKey, fieldSource),
		Message:         lookupString(byKey, fieldMessage),
		PropertyAddress: lookupString(byKey, fieldAddress),
		PropertyDetails: lookupString(byKey, fieldPropertyNotes),
	}
	if c.FirstName == "" && c.LastName == "" {
		c.FirstName, c.LastName = splitName(lookupString(byKey, fieldFullName))
	}
	if c.LastName == "" && strings.Contains(c.FirstName, " ") {
		c.FirstName, c.LastName = splitName(c.FirstName)
	}
	return c
}

// lookupString returns the first non-empty value among patterns, in
// pattern order.
func lookupString(byKey map[string]any, patterns []string) string {
	for _, p := range patterns {
		if v, ok := byKey[normalizeKey(p)]; ok {
			if s := firstString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// lookupAll collects every value among patterns, in pattern order.
func lookupAll(byKey map[string]any, patterns []string) []string {
	var out []string
	seen := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		k := normalizeKey(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		if v, ok := byKey[k]; ok {
			out = append(out, stringValues(v)...)
		}
	}
	return out
}

func normalizeKey(k string) string {
	return keyNormalizer.Replace(strings.ToLower(strings.TrimSpace(k)))
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// stringValues flattens a scalar or array value into non-empty strings.
func stringValues(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := scalar(t); s != "" {
			return []string{s}
		}
		return nil
	}
}

func firstString(v any) string {
	if values := stringValues(v); len(values) > 0 {
		return values[0]
	}
	return ""
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		for _, k := range []string{"value", "address", "number"} {
			if s, ok := t[k].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
