package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/config"
)

// SMTPSender delivers notification e-mail through an SMTP relay via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSender returns an SMTPSender when SMTP is configured and a NoopSender
// otherwise.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetSMTPFromAddress(), cfg.GetSMTPFromName())
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) buildMessage(toEmail, subject, htmlContent string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)
	return msg, nil
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg, err := s.buildMessage(toEmail, subject, htmlContent)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendLeadAssignedEmail(ctx context.Context, toEmail string, lead LeadNotice) error {
	subject := fmt.Sprintf(subjectLeadAssignedFmt, leadName(lead))
	content, err := renderLeadAssigned(lead)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendFollowUpDueEmail(ctx context.Context, toEmail, scheduledDate string, lead LeadNotice) error {
	subject := fmt.Sprintf(subjectFollowUpDueFmt, scheduledDate, leadName(lead))
	content, err := renderFollowUpDue(scheduledDate, lead)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func renderLeadAssigned(lead LeadNotice) (string, error) {
	return renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:   "New lead assigned",
			Heading: "New lead assigned",
		},
		Lead: lead,
	})
}

func renderFollowUpDue(scheduledDate string, lead LeadNotice) (string, error) {
	return renderEmailTemplate("followup_due.html", followUpDueEmailData{
		baseEmailData: baseEmailData{
			Title:      "Follow-up due",
			Heading:    "Follow-up due",
			Subheading: leadName(lead),
		},
		Lead:          lead,
		ScheduledDate: scheduledDate,
	})
}
