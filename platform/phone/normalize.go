// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number carries no country prefix.
const DefaultRegion = "US"

// NormalizeE164 formats a phone number to E.164 in the default region.
// Unparseable or invalid input is returned trimmed but otherwise unchanged.
func NormalizeE164(input string) string {
	return NormalizeE164Region(input, DefaultRegion)
}

// NormalizeE164Region is NormalizeE164 with an explicit region.
func NormalizeE164Region(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// NormalizeAll normalizes every number and drops blanks and duplicates.
func NormalizeAll(inputs []string, region string) []string {
	out := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		n := NormalizeE164Region(in, region)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
