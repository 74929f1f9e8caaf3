package email

import "context"

// LeadNotice is what an agent sees about a lead in a notification.
type LeadNotice struct {
	AgentName string
	LeadName  string
	Email     string
	Phone     string
	Source    string
	Message   string
}

type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, toEmail string, lead LeadNotice) error
	SendFollowUpDueEmail(ctx context.Context, toEmail, scheduledDate string, lead LeadNotice) error
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendLeadAssignedEmail(context.Context, string, LeadNotice) error { return nil }

func (NoopSender) SendFollowUpDueEmail(context.Context, string, string, LeadNotice) error {
	return nil
}
