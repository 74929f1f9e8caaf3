// Package handler exposes lead lifecycle operations over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/dedup"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/lifecycle"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/transport"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/httpkit"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	activityLimit   = 100
)

// Reader serves list views that need no lifecycle rules.
type Reader interface {
	ListLeads(ctx context.Context, filter repository.ListFilter) ([]domain.Lead, int, error)
	ListActivities(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Activity, error)
	ListFollowUps(ctx context.Context, leadID uuid.UUID) ([]domain.FollowUp, error)
}

// Deduper runs point lookups and batch cleanup.
type Deduper interface {
	FindByEmail(ctx context.Context, email string, viewer *uuid.UUID) (dedup.Match, bool)
	Preview(ctx context.Context) (dedup.Report, error)
	Commit(ctx context.Context, fingerprint string) (dedup.CommitResult, error)
}

type Handler struct {
	svc    *lifecycle.Service
	reader Reader
	dedup  Deduper
}

func New(svc *lifecycle.Service, reader Reader, d Deduper) *Handler {
	return &Handler{svc: svc, reader: reader, dedup: d}
}

func actorFrom(c *gin.Context) (lifecycle.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return lifecycle.Actor{}, false
	}
	return lifecycle.Actor{ID: identity.UserID(), Admin: identity.IsAdmin()}, true
}

// leadAndActor parses :id and the caller together.
func leadAndActor(c *gin.Context) (uuid.UUID, lifecycle.Actor, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		return uuid.Nil, actor, false
	}
	id, ok := httpkit.ParamUUID(c, "id")
	return id, actor, ok
}

// List handles GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	filter, ok := parseListFilter(c)
	if !ok {
		return
	}
	if !actor.Admin {
		filter.AssignedTo = &actor.ID
	}

	leads, total, err := h.reader.ListLeads(c.Request.Context(), filter)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to list leads", err))
		return
	}
	items := make([]transport.LeadResponse, len(leads))
	for i, l := range leads {
		items[i] = transport.ToLeadResponse(l)
	}
	httpkit.OK(c, transport.LeadListResponse{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func parseListFilter(c *gin.Context) (repository.ListFilter, bool) {
	filter := repository.ListFilter{
		Source:   strings.TrimSpace(c.Query("source")),
		Search:   strings.TrimSpace(c.Query("search")),
		Archived: c.Query("archived") == "true",
		Limit:    defaultPageSize,
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.Status(raw)
		if !status.Valid() {
			httpkit.Error(c, http.StatusBadRequest, "invalid status", nil)
			return filter, false
		}
		filter.Status = &status
	}
	if raw := c.Query("assignedTo"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid assignedTo", nil)
			return filter, false
		}
		filter.AssignedTo = &id
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpkit.Error(c, http.StatusBadRequest, "invalid limit", nil)
			return filter, false
		}
		filter.Limit = min(n, maxPageSize)
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpkit.Error(c, http.StatusBadRequest, "invalid offset", nil)
			return filter, false
		}
		filter.Offset = n
	}
	return filter, true
}

// Get handles GET /api/v1/leads/:id
func (h *Handler) Get(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	lead, err := h.svc.Get(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// CheckDuplicate handles POST /api/v1/leads/duplicate-check
func (h *Handler) CheckDuplicate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.DuplicateCheckRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}

	var viewer *uuid.UUID
	if !actor.Admin {
		viewer = &actor.ID
	}
	match, found := h.dedup.FindByEmail(c.Request.Context(), req.Email, viewer)
	resp := transport.DuplicateCheckResponse{IsDuplicate: found}
	if found {
		if viewer == nil || match.Visible {
			resp.LeadID = &match.LeadID
		}
		if viewer != nil {
			visible := match.Visible
			resp.AssignedToYou = &visible
		}
	}
	httpkit.OK(c, resp)
}

// Assign handles POST /api/v1/admin/leads/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	var req transport.AssignLeadRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	res, err := h.svc.Assign(c.Request.Context(), lifecycle.AssignInput{
		LeadID:    id,
		AgentID:   req.AgentID,
		Actor:     actor,
		Frequency: req.Frequency,
		DayOfWeek: req.DayOfWeek,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	resp := transport.AssignLeadResponse{
		Lead:            transport.ToLeadResponse(res.Lead),
		AgentID:         res.Agent.ID,
		AgentName:       res.Agent.Name,
		Mode:            res.Mode,
		FollowUpCreated: res.FollowUpCreated,
		Warnings:        res.Warnings,
	}
	if res.FollowUp != nil {
		fu := transport.ToFollowUpResponse(*res.FollowUp)
		resp.FollowUp = &fu
	}
	httpkit.OK(c, resp)
}

// Reassign handles POST /api/v1/admin/leads/:id/reassign
func (h *Handler) Reassign(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	var req transport.ReassignLeadRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	res, err := h.svc.Reassign(c.Request.Context(), lifecycle.ReassignInput{
		LeadID:            id,
		AgentID:           req.AgentID,
		Actor:             actor,
		CopyNotes:         req.CopyNotes,
		NoteLimit:         req.NoteLimit,
		TransferFollowUps: req.TransferFollowUps,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ReassignLeadResponse{
		Lead:           transport.ToLeadResponse(res.Lead),
		AgentID:        res.Agent.ID,
		AgentName:      res.Agent.Name,
		NotesCopied:    res.NotesCopied,
		FollowUpsMoved: res.FollowUpsMoved,
		Warnings:       res.Warnings,
	})
}

// UpdateStatus handles PATCH /api/v1/leads/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	var req transport.UpdateStatusRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	lead, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// UpdateTag handles PATCH /api/v1/leads/:id/tag
func (h *Handler) UpdateTag(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	var req transport.UpdateTagRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	lead, err := h.svc.UpdateTag(c.Request.Context(), id, req.Tag, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// SetCadence handles PUT /api/v1/leads/:id/cadence
func (h *Handler) SetCadence(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	var req transport.SetCadenceRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	lead, err := h.svc.SetCadence(c.Request.Context(), id, req.Frequency, req.DayOfWeek, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Archive handles POST /api/v1/leads/:id/archive
func (h *Handler) Archive(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	lead, err := h.svc.Archive(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Restore handles POST /api/v1/leads/:id/restore
func (h *Handler) Restore(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	lead, err := h.svc.Restore(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Delete handles DELETE /api/v1/admin/leads/:id
func (h *Handler) Delete(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id, actor)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ListNotes handles GET /api/v1/leads/:id/notes
func (h *Handler) ListNotes(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	notes, err := h.svc.ListNotes(c.Request.Context(), id, actor, 0)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.NoteResponse, len(notes))
	for i, n := range notes {
		out[i] = transport.ToNoteResponse(n)
	}
	httpkit.OK(c, out)
}

// AddNote handles POST /api/v1/leads/:id/notes
func (h *Handler) AddNote(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	var req transport.CreateNoteRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	note, err := h.svc.AddNote(c.Request.Context(), id, req.Body, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToNoteResponse(note))
}

// ListActivities handles GET /api/v1/leads/:id/activities
func (h *Handler) ListActivities(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	if _, err := h.svc.Get(c.Request.Context(), id, actor); httpkit.HandleError(c, err) {
		return
	}
	activities, err := h.reader.ListActivities(c.Request.Context(), id, activityLimit)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to list activities", err))
		return
	}
	out := make([]transport.ActivityResponse, len(activities))
	for i, a := range activities {
		out[i] = transport.ToActivityResponse(a)
	}
	httpkit.OK(c, out)
}

// ListFollowUps handles GET /api/v1/leads/:id/follow-ups
func (h *Handler) ListFollowUps(c *gin.Context) {
	id, actor, ok := leadAndActor(c)
	if !ok {
		return
	}
	if _, err := h.svc.Get(c.Request.Context(), id, actor); httpkit.HandleError(c, err) {
		return
	}
	followUps, err := h.reader.ListFollowUps(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to list follow-ups", err))
		return
	}
	out := make([]transport.FollowUpResponse, len(followUps))
	for i, f := range followUps {
		out[i] = transport.ToFollowUpResponse(f)
	}
	httpkit.OK(c, out)
}

// BulkAssign handles POST /api/v1/admin/leads/bulk/assign
func (h *Handler) BulkAssign(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.BulkAssignRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	summary, err := h.svc.BulkAssign(c.Request.Context(), req.IDs, req.AgentID, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}

type bulkFunc func(ctx context.Context, ids []uuid.UUID, actor lifecycle.Actor) (lifecycle.BulkSummary, error)

func (h *Handler) bulk(fn bulkFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		var req transport.BulkRequest
		if !httpkit.BindJSON(c, &req) {
			return
		}
		summary, err := fn(c.Request.Context(), req.IDs, actor)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, summary)
	}
}

// BulkArchive handles POST /api/v1/admin/leads/bulk/archive
func (h *Handler) BulkArchive(c *gin.Context) { h.bulk(h.svc.BulkArchive)(c) }

// BulkRestore handles POST /api/v1/admin/leads/bulk/restore
func (h *Handler) BulkRestore(c *gin.Context) { h.bulk(h.svc.BulkRestore)(c) }

// BulkDelete handles POST /api/v1/admin/leads/bulk/delete
func (h *Handler) BulkDelete(c *gin.Context) { h.bulk(h.svc.BulkDelete)(c) }

// DedupPreview handles GET /api/v1/admin/leads/dedup/preview
func (h *Handler) DedupPreview(c *gin.Context) {
	report, err := h.dedup.Preview(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

// DedupCommit handles POST /api/v1/admin/leads/dedup/commit
func (h *Handler) DedupCommit(c *gin.Context) {
	var req transport.DedupCommitRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	result, err := h.dedup.Commit(c.Request.Context(), req.Fingerprint)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
