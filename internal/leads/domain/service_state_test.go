package domain

import (
	"testing"
	"time"
)

const fmtUnexpectedReason = "ValidateStatusTransition(%s, %s) = %q, want allowed=%v"

func TestValidateStatusTransition(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusAssigned, StatusContacted, true},
		{StatusAssigned, StatusQualified, true},
		{StatusAssigned, StatusConverted, true},
		{StatusAssigned, StatusLost, true},
		{StatusContacted, StatusQualified, true},
		{StatusQualified, StatusContacted, true},
		{StatusQualified, StatusConverted, true},
		{StatusStaging, StatusContacted, false},
		{StatusStaging, StatusConverted, false},
		{StatusAssigned, StatusStaging, false},
		{StatusContacted, StatusAssigned, false},
		{StatusConverted, StatusLost, false},
		{StatusLost, StatusContacted, false},
		{StatusAssigned, Status("archived"), false},
	}

	for _, tt := range tests {
		reason := ValidateStatusTransition(tt.from, tt.to)
		if (reason == "") != tt.allowed {
			t.Errorf(fmtUnexpectedReason, tt.from, tt.to, reason, tt.allowed)
		}
	}
}

func TestClientTypeFor(t *testing.T) {
	if got := ClientTypeFor(StatusConverted, ClientTypeLead); got != ClientTypeClient {
		t.Fatalf("converted should flip to client, got %s", got)
	}
	if got := ClientTypeFor(StatusLost, ClientTypeLead); got != ClientTypeLead {
		t.Fatalf("lost should keep lead, got %s", got)
	}
	if got := ClientTypeFor(StatusContacted, ClientTypeClient); got != ClientTypeClient {
		t.Fatalf("client must never revert, got %s", got)
	}
	if got := ClientTypeFor(StatusAssigned, ""); got != ClientTypeLead {
		t.Fatalf("empty client type should default to lead, got %s", got)
	}
}

func TestInitialFollowUpDate(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "midday",
			now:  time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "month end",
			now:  time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC),
			want: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-utc input uses the utc day",
			now:  time.Date(2026, 6, 1, 22, 0, 0, 0, time.FixedZone("PDT", -7*3600)),
			want: time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InitialFollowUpDate(tt.now); !got.Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseTag(t *testing.T) {
	if tag, ok := ParseTag(" hot "); !ok || tag != TagHot {
		t.Fatalf("expected Hot, got %q ok=%v", tag, ok)
	}
	if _, ok := ParseTag("lukewarm"); ok {
		t.Fatal("expected unknown tag to be rejected")
	}
}

func TestLeadHelpers(t *testing.T) {
	l := Lead{FirstName: "John", LastName: "Smith", Emails: []string{"john@test.com"}}
	if l.FullName() != "John Smith" {
		t.Fatalf("unexpected full name %q", l.FullName())
	}
	if l.FirstEmail() != "john@test.com" || l.FirstPhone() != "" {
		t.Fatal("unexpected first email/phone")
	}
	if l.IsArchived() {
		t.Fatal("lead should not be archived")
	}
}
