// Package leadstest provides in-memory stores for tests of packages built on
// the lead repository.
package leadstest

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/distribution"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
)

// ErrInjected is returned by operations listed in Store.Fail.
var ErrInjected = errors.New("injected failure")

// Store is a concurrency-safe in-memory LeadsRepository.
type Store struct {
	mu         sync.Mutex
	leads      map[uuid.UUID]domain.Lead
	activities []domain.Activity
	followUps  []domain.FollowUp
	notes      []domain.Note
	clock      time.Time

	// Fail makes the named method return ErrInjected.
	Fail map[string]bool
}

var _ repository.LeadsRepository = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		leads: make(map[uuid.UUID]domain.Lead),
		clock: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Fail:  make(map[string]bool),
	}
}

// tick returns strictly increasing timestamps so ordering is deterministic.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) failing(op string) bool {
	return s.Fail[op]
}

// Put stores l as-is, assigning an id and timestamps when missing.
func (s *Store) Put(l domain.Lead) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.tick()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.CreatedAt
	}
	if l.Status == "" {
		l.Status = domain.StatusStaging
	}
	if l.ClientType == "" {
		l.ClientType = domain.ClientTypeLead
	}
	s.leads[l.ID] = l
	return l
}

func (s *Store) CreateLead(_ context.Context, p repository.CreateLeadParams) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing("CreateLead") {
		return domain.Lead{}, ErrInjected
	}
	now := s.tick()
	l := domain.Lead{
		ID:              uuid.New(),
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Emails:          append([]string{}, p.Emails...),
		Phones:          append([]string{}, p.Phones...),
		Company:         p.Company,
		JobTitle:        p.JobTitle,
		Source:          p.Source,
		Status:          domain.StatusStaging,
		ClientType:      domain.ClientTypeLead,
		Message:         p.Message,
		PropertyAddress: p.PropertyAddress,
		PropertyDetails: p.PropertyDetails,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.leads[l.ID] = l
	s.appendActivity(domain.Activity{LeadID: l.ID, Type: domain.ActivityCreated, Description: "Lead created from " + p.Source, ActorID: p.ActorID})
	return l, nil
}

func (s *Store) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return l, nil
}

func (s *Store) ListLeads(_ context.Context, f repository.ListFilter) ([]domain.Lead, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0)
	for _, l := range s.leads {
		if l.IsArchived() != f.Archived {
			continue
		}
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		if f.AssignedTo != nil && !l.IsAssignedTo(*f.AssignedTo) {
			continue
		}
		if f.Source != "" && !strings.EqualFold(l.Source, f.Source) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (s *Store) FindByEmail(_ context.Context, email string) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing("FindByEmail") {
		return nil, ErrInjected
	}
	out := make([]domain.Lead, 0)
	for _, l := range s.leads {
		for _, e := range l.Emails {
			if strings.EqualFold(e, strings.TrimSpace(email)) {
				out = append(out, l)
				break
			}
		}
	}
	sortOldest(out)
	return out, nil
}

func (s *Store) ListStaging(_ context.Context) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0)
	for _, l := range s.leads {
		if l.Status == domain.StatusStaging && !l.IsArchived() {
			out = append(out, l)
		}
	}
	sortOldest(out)
	return out, nil
}

func sortOldest(leads []domain.Lead) {
	sort.Slice(leads, func(i, j int) bool {
		if !leads[i].CreatedAt.Equal(leads[j].CreatedAt) {
			return leads[i].CreatedAt.Before(leads[j].CreatedAt)
		}
		return bytes.Compare(leads[i].ID[:], leads[j].ID[:]) < 0
	})
}

func (s *Store) DeleteLead(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing("DeleteLead") {
		return ErrInjected
	}
	if _, ok := s.leads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.leads, id)
	return nil
}

func (s *Store) DeleteStagingLead(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing("DeleteLead") {
		return false, ErrInjected
	}
	l, ok := s.leads[id]
	if !ok || l.Status != domain.StatusStaging || l.IsArchived() {
		return false, nil
	}
	delete(s.leads, id)
	return true, nil
}

func (s *Store) SetArchived(_ context.Context, id uuid.UUID, archived bool, actorID *uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	switch {
	case archived && l.ArchivedAt == nil:
		now := s.tick()
		l.ArchivedAt = &now
		l.ArchivedBy = actorID
		l.UpdatedAt = now
	case !archived && l.ArchivedAt != nil:
		l.ArchivedAt = nil
		l.ArchivedBy = nil
		l.UpdatedAt = s.tick()
	}
	s.leads[id] = l
	return l, nil
}

func (s *Store) ApplyTransition(_ context.Context, t repository.Transition) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing("ApplyTransition") {
		return domain.Lead{}, ErrInjected
	}
	l, ok := s.leads[t.LeadID]
	if !ok || (t.RequireActive && l.IsArchived()) {
		return domain.Lead{}, repository.ErrNotFound
	}
	if l.Status != t.ExpectedStatus {
		return domain.Lead{}, repository.ErrStaleState
	}

	l.Status = t.Status
	if t.ClientType != nil {
		l.ClientType = *t.ClientType
	}
	if t.Assignment != nil {
		agent := t.Assignment.AgentID
		at := t.Assignment.At
		if at.IsZero() {
			at = s.tick()
		}
		l.AssignedTo = &agent
		l.AssignedBy = t.Assignment.AssignedBy
		l.AssignedAt = &at
	}
	if t.Tag != nil {
		tag := *t.Tag
		l.Tag = &tag
	}
	if t.Cadence != nil {
		l.FollowUpFrequency = t.Cadence.Frequency
		l.FollowUpDayOfWeek = t.Cadence.DayOfWeek
	}
	l.UpdatedAt = s.tick()
	s.leads[l.ID] = l

	a := t.Activity
	a.LeadID = l.ID
	s.appendActivity(a)
	return l, nil
}

func (s *Store) appendActivity(a domain.Activity) domain.Activity {
	a.ID = uuid.New()
	a.CreatedAt = s.tick()
	s.activities = append(s.activities, a)
	return a
}

func (s *Store) AddActivity(_ context.Context, a domain.Activity) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing("AddActivity") {
		return domain.Activity{}, ErrInjected
	}
	return s.appendActivity(a), nil
}

// ListActivities returns newest first.
func (s *Store) ListActivities(_ context.Context, leadID uuid.UUID, limit int) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Activity, 0)
	for i := len(s.activities) - 1; i >= 0; i-- {
		if s.activities[i].LeadID == leadID {
			out = append(out, s.activities[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Activities returns a lead's activities oldest first, optionally by type.
func (s *Store) Activities(leadID uuid.UUID, types ...domain.ActivityType) []domain.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Activity, 0)
	for _, a := range s.activities {
		if a.LeadID != leadID {
			continue
		}
		if len(types) > 0 && !containsType(types, a.Type) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func containsType(types []domain.ActivityType, t domain.ActivityType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func (s *Store) ClaimInitialFollowUp(_ context.Context, leadID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[leadID]
	if !ok || l.HasInitialFollowUp {
		return false, nil
	}
	l.HasInitialFollowUp = true
	s.leads[leadID] = l
	return true, nil
}

func (s *Store) ReleaseInitialFollowUp(_ context.Context, leadID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.followUps {
		if f.LeadID == leadID && f.Type == domain.FollowUpTypeInitial {
			return nil
		}
	}
	if l, ok := s.leads[leadID]; ok {
		l.HasInitialFollowUp = false
		s.leads[leadID] = l
	}
	return nil
}

func (s *Store) CreateFollowUp(_ context.Context, p repository.CreateFollowUpParams) (domain.FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing("CreateFollowUp") {
		return domain.FollowUp{}, ErrInjected
	}
	f := domain.FollowUp{
		ID:            uuid.New(),
		LeadID:        p.LeadID,
		AgentID:       p.AgentID,
		ScheduledDate: p.ScheduledDate,
		Status:        domain.FollowUpPending,
		Type:          p.Type,
		CreatedAt:     s.tick(),
	}
	s.followUps = append(s.followUps, f)
	if p.Activity != nil {
		a := *p.Activity
		a.LeadID = p.LeadID
		s.appendActivity(a)
	}
	return f, nil
}

func (s *Store) ListFollowUps(_ context.Context, leadID uuid.UUID) ([]domain.FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.FollowUp, 0)
	for _, f := range s.followUps {
		if f.LeadID == leadID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) ReassignPendingFollowUps(_ context.Context, leadID, from, to uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i, f := range s.followUps {
		if f.LeadID == leadID && f.AgentID == from && f.Status == domain.FollowUpPending {
			s.followUps[i].AgentID = to
			n++
		}
	}
	return n, nil
}

func (s *Store) SetCadence(_ context.Context, leadID uuid.UUID, freq *domain.Frequency, day *int) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[leadID]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	l.FollowUpFrequency = freq
	l.FollowUpDayOfWeek = day
	l.UpdatedAt = s.tick()
	s.leads[leadID] = l
	return l, nil
}

func (s *Store) CreateNote(_ context.Context, p repository.CreateNoteParams) (domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := domain.Note{ID: uuid.New(), LeadID: p.LeadID, OwnerID: p.OwnerID, AuthorID: p.AuthorID, Body: p.Body, CreatedAt: s.tick()}
	s.notes = append(s.notes, n)
	author := p.AuthorID
	s.appendActivity(domain.Activity{LeadID: p.LeadID, Type: domain.ActivityNoteAdded, Description: "Note added", ActorID: &author})
	return n, nil
}

func (s *Store) ListNotes(_ context.Context, leadID uuid.UUID, ownerID *uuid.UUID, limit int) ([]domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recentNotes(leadID, ownerID, limit), nil
}

func (s *Store) recentNotes(leadID uuid.UUID, ownerID *uuid.UUID, limit int) []domain.Note {
	out := make([]domain.Note, 0)
	for i := len(s.notes) - 1; i >= 0; i-- {
		n := s.notes[i]
		if n.LeadID != leadID || (ownerID != nil && n.OwnerID != *ownerID) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *Store) CopyNotes(_ context.Context, leadID, from, to uuid.UUID, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing("CopyNotes") {
		return 0, ErrInjected
	}
	recent := s.recentNotes(leadID, &from, limit)
	for i := len(recent) - 1; i >= 0; i-- {
		n := recent[i]
		n.ID = uuid.New()
		n.OwnerID = to
		s.notes = append(s.notes, n)
	}
	return len(recent), nil
}

// Agents is an in-memory distribution.Store.
type Agents struct {
	mu     sync.Mutex
	agents map[uuid.UUID]domain.Agent
}

var _ distribution.Store = (*Agents)(nil)

func NewAgents(agents ...domain.Agent) *Agents {
	a := &Agents{agents: make(map[uuid.UUID]domain.Agent)}
	for _, ag := range agents {
		a.agents[ag.ID] = ag
	}
	return a
}

// Agent returns a new agent value with a deterministic sortable id.
func Agent(n byte, priority int, active bool) domain.Agent {
	var id uuid.UUID
	id[15] = n
	return domain.Agent{ID: id, Name: "agent-" + string('A'+rune(n)-1), Role: "agent", IsActive: active, RoundRobinPriority: priority}
}

func (a *Agents) ListActiveAgents(context.Context) ([]domain.Agent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Agent, 0)
	for _, ag := range a.agents {
		if ag.IsActive {
			out = append(out, ag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out, nil
}

func (a *Agents) GetAgent(_ context.Context, id uuid.UUID) (domain.Agent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ag, ok := a.agents[id]
	if !ok {
		return domain.Agent{}, distribution.ErrAgentNotFound
	}
	return ag, nil
}

func (a *Agents) CompareAndSetPriority(_ context.Context, id uuid.UUID, expected, next int) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ag, ok := a.agents[id]
	if !ok || ag.RoundRobinPriority != expected {
		return false, nil
	}
	ag.RoundRobinPriority = next
	a.agents[id] = ag
	return true, nil
}

// SetActive toggles an agent.
func (a *Agents) SetActive(id uuid.UUID, active bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ag := a.agents[id]
	ag.IsActive = active
	a.agents[id] = ag
}
