// Package intake turns inbound messages and webhook candidates into staging
// leads, then hands new leads to distribution.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/events"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/extractor"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/dedup"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/lifecycle"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/metrics"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/phone"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/sanitize"
)

// Outcome is how one inbound item ended.
type Outcome string

const (
	OutcomeCreatedAssigned   Outcome = "created_assigned"
	OutcomeCreatedUnassigned Outcome = "created_unassigned"
	OutcomeDuplicate         Outcome = "duplicate"
	OutcomeDiscarded         Outcome = "discarded"
)

// Channels an item can arrive through.
const (
	ChannelMailbox = "mailbox"
	ChannelWebhook = "webhook"
	ChannelAPI     = "api"
)

// Message is a raw inbound e-mail.
type Message struct {
	MessageID  string    `json:"messageId,omitempty"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"receivedAt,omitempty"`
}

// Result reports what happened to one item.
type Result struct {
	Outcome   Outcome             `json:"outcome"`
	Source    string              `json:"source"`
	Strategy  string              `json:"strategy,omitempty"`
	LeadID    *uuid.UUID          `json:"leadId,omitempty"`
	AgentID   *uuid.UUID          `json:"agentId,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	Candidate extractor.Candidate `json:"candidate"`
}

// Classifier decides a message's source tag.
type Classifier interface {
	Classify(from, subject, body string) string
}

// LeadStore persists new leads and duplicate activities.
type LeadStore interface {
	CreateLead(ctx context.Context, params repository.CreateLeadParams) (domain.Lead, error)
	AddActivity(ctx context.Context, activity domain.Activity) (domain.Activity, error)
}

// Deduper finds an existing lead for any of the candidate's emails.
type Deduper interface {
	FindAny(ctx context.Context, emails []string, viewer *uuid.UUID) (dedup.Match, bool)
}

// Assigner distributes a new staging lead.
type Assigner interface {
	Assign(ctx context.Context, in lifecycle.AssignInput) (lifecycle.AssignResult, error)
}

// Archiver keeps a copy of the raw message.
type Archiver interface {
	Archive(ctx context.Context, msg Message, source string) (string, error)
}

// Deps are the Pipeline's collaborators. Assigner, Archiver, Bus and
// Metrics are optional.
type Deps struct {
	Classifier Classifier
	Extractor  *extractor.Extractor
	Leads      LeadStore
	Dedup      Deduper
	Assigner   Assigner
	Archiver   Archiver
	Bus        events.Bus
	Metrics    *metrics.Metrics
	Log        *logger.Logger
}

// Options tune the pipeline.
type Options struct {
	AutoAssign bool
	// PhoneRegion is the default region for numbers without a country code.
	PhoneRegion string
}

type Pipeline struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Pipeline {
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	if deps.Extractor == nil {
		deps.Extractor = extractor.New()
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = phone.DefaultRegion
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Preview classifies and extracts without persisting anything.
func (p *Pipeline) Preview(msg Message) Result {
	body := plainBody(msg.Body)
	source := p.deps.Classifier.Classify(msg.From, msg.Subject, body)
	cand, strategy, ok := p.deps.Extractor.ExtractWithFallback(source, msg.Subject, body)
	res := Result{Outcome: OutcomeCreatedUnassigned, Source: source, Strategy: strategy, Candidate: p.normalize(cand)}
	if !ok {
		res.Outcome = OutcomeDiscarded
		res.Reason = "no lead data found"
	} else if reason := rejectReason(res.Candidate); reason != "" {
		res.Outcome = OutcomeDiscarded
		res.Reason = reason
	}
	return res
}

// ProcessMessage runs one e-mail through classification, extraction,
// deduplication, persistence and assignment.
func (p *Pipeline) ProcessMessage(ctx context.Context, msg Message) (Result, error) {
	body := plainBody(msg.Body)
	source := p.deps.Classifier.Classify(msg.From, msg.Subject, body)

	if p.deps.Archiver != nil {
		if key, err := p.deps.Archiver.Archive(ctx, msg, source); err != nil {
			p.deps.Log.WithContext(ctx).Warn("raw message archive failed", "messageId", msg.MessageID, "error", err)
		} else {
			p.deps.Log.WithContext(ctx).Debug("raw message archived", "key", key)
		}
	}

	cand, strategy, ok := p.deps.Extractor.ExtractWithFallback(source, msg.Subject, body)
	if !ok {
		res := Result{Outcome: OutcomeDiscarded, Source: source, Strategy: strategy, Reason: "no lead data found", Candidate: cand}
		p.record(ctx, res)
		return res, nil
	}

	res, err := p.process(ctx, cand, ChannelMailbox)
	res.Strategy = strategy
	return res, err
}

// ProcessCandidate runs an already structured candidate (webhook or API)
// through deduplication, persistence and assignment.
func (p *Pipeline) ProcessCandidate(ctx context.Context, cand extractor.Candidate, channel string) (Result, error) {
	if cand.Source == "" {
		cand.Source = channel
	}
	if runes := []rune(cand.Message); len(runes) > extractor.MaxMessageLength {
		cand.Message = strings.TrimSpace(string(runes[:extractor.MaxMessageLength])) + "..."
	}
	return p.process(ctx, cand, channel)
}

func (p *Pipeline) process(ctx context.Context, cand extractor.Candidate, channel string) (Result, error) {
	cand = p.normalize(cand)
	res := Result{Source: cand.Source, Candidate: cand}

	if reason := rejectReason(cand); reason != "" {
		res.Outcome = OutcomeDiscarded
		res.Reason = reason
		p.record(ctx, res)
		return res, nil
	}

	if match, found := p.deps.Dedup.FindAny(ctx, cand.Emails, nil); found {
		return p.duplicate(ctx, res, match)
	}

	lead, err := p.deps.Leads.CreateLead(ctx, repository.CreateLeadParams{
		FirstName:       cand.FirstName,
		LastName:        cand.LastName,
		Emails:          cand.Emails,
		Phones:          cand.Phones,
		Company:         optional(cand.Company),
		JobTitle:        optional(cand.JobTitle),
		Source:          cand.Source,
		Message:         optional(cand.Message),
		PropertyAddress: optional(cand.PropertyAddress),
		PropertyDetails: optional(cand.PropertyDetails),
		Description:     fmt.Sprintf("Lead received from %s via %s", cand.Source, channel),
	})
	if err != nil {
		p.deps.Metrics.Ingested(cand.Source, "error")
		return res, fmt.Errorf("create lead: %w", err)
	}
	res.LeadID = &lead.ID
	res.Outcome = OutcomeCreatedUnassigned

	if p.deps.Bus != nil {
		p.deps.Bus.Publish(ctx, events.LeadIngested{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Source:    cand.Source,
			Channel:   channel,
		})
	}

	if p.opts.AutoAssign && p.deps.Assigner != nil {
		assigned, err := p.deps.Assigner.Assign(ctx, lifecycle.AssignInput{LeadID: lead.ID, Actor: lifecycle.SystemActor()})
		switch {
		case err == nil:
			res.Outcome = OutcomeCreatedAssigned
			res.AgentID = &assigned.Agent.ID
		case apperr.Is(err, apperr.KindUnprocessable):
			res.Reason = "no agent available"
		default:
			res.Reason = "assignment failed"
			p.deps.Log.WithContext(ctx).Error("auto-assignment failed", "leadId", lead.ID, "error", err)
		}
	}

	p.record(ctx, res)
	return res, nil
}

func (p *Pipeline) duplicate(ctx context.Context, res Result, match dedup.Match) (Result, error) {
	res.Outcome = OutcomeDuplicate
	res.LeadID = &match.LeadID
	res.AgentID = match.AssignedTo

	meta := map[string]any{"source": res.Source}
	if len(res.Candidate.Emails) > 0 {
		meta["email"] = res.Candidate.Emails[0]
	}
	if res.Candidate.Message != "" {
		meta["message"] = res.Candidate.Message
	}
	if res.Candidate.PropertyAddress != "" {
		meta["propertyAddress"] = res.Candidate.PropertyAddress
	}
	_, err := p.deps.Leads.AddActivity(ctx, domain.Activity{
		LeadID:      match.LeadID,
		Type:        domain.ActivityNoteAdded,
		Description: "New inquiry received from " + res.Source,
		Metadata:    meta,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		p.deps.Log.WithContext(ctx).Warn("failed to record duplicate inquiry", "leadId", match.LeadID, "error", err)
	}

	if p.deps.Bus != nil {
		email := ""
		if len(res.Candidate.Emails) > 0 {
			email = res.Candidate.Emails[0]
		}
		p.deps.Bus.Publish(ctx, events.DuplicateDetected{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    match.LeadID,
			Email:     email,
			Source:    res.Source,
		})
	}
	p.record(ctx, res)
	return res, nil
}

func (p *Pipeline) record(ctx context.Context, res Result) {
	p.deps.Metrics.Ingested(res.Source, string(res.Outcome))
	leadID := ""
	if res.LeadID != nil {
		leadID = res.LeadID.String()
	}
	p.deps.Log.WithContext(ctx).IntakeOutcome(res.Source, string(res.Outcome), leadID)
}

// normalize trims fields, drops blank entries and formats phones as E.164
// where they parse.
func (p *Pipeline) normalize(c extractor.Candidate) extractor.Candidate {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Company = strings.TrimSpace(c.Company)
	c.JobTitle = strings.TrimSpace(c.JobTitle)
	c.Message = strings.TrimSpace(c.Message)
	c.PropertyAddress = strings.TrimSpace(c.PropertyAddress)
	c.PropertyDetails = strings.TrimSpace(c.PropertyDetails)
	c.Emails = compact(c.Emails)
	c.Phones = compact(phone.NormalizeAll(c.Phones, p.opts.PhoneRegion))
	return c
}

func rejectReason(c extractor.Candidate) string {
	if c.FullName() == "" {
		return "missing name"
	}
	if !c.HasContact() {
		return "missing contact details"
	}
	return ""
}

func plainBody(body string) string {
	if sanitize.IsHTML(body) {
		return sanitize.HTMLToText(body)
	}
	return body
}

func compact(values []string) []string {
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

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
