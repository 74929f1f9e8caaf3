package leadsources

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/classifier"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/httpkit"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type CreateRequest struct {
	Name           string   `json:"name" validate:"required,max=100"`
	EmailPatterns  []string `json:"emailPatterns" validate:"max=50,dive,max=320"`
	DomainPatterns []string `json:"domainPatterns" validate:"max=50,dive,max=255"`
	Keywords       []string `json:"keywords" validate:"max=50,dive,max=100"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type ClassifyRequest struct {
	From    string `json:"from" validate:"max=500"`
	Subject string `json:"subject" validate:"max=1000"`
	Body    string `json:"body"`
}

type SourceResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	EmailPatterns  []string  `json:"emailPatterns"`
	DomainPatterns []string  `json:"domainPatterns"`
	Keywords       []string  `json:"keywords"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toResponse(s LeadSource) SourceResponse {
	return SourceResponse{
		ID:             s.ID,
		Name:           s.Name,
		EmailPatterns:  nonNil(s.EmailPatterns),
		DomainPatterns: nonNil(s.DomainPatterns),
		Keywords:       nonNil(s.Keywords),
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt,
	}
}

// List handles GET /api/v1/admin/lead-sources
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]SourceResponse, len(items))
	for i, s := range items {
		out[i] = toResponse(s)
	}
	httpkit.OK(c, out)
}

// Create handles POST /api/v1/admin/lead-sources
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	src, err := h.svc.Create(c.Request.Context(), classifier.Registration{
		Name:           req.Name,
		EmailPatterns:  req.EmailPatterns,
		DomainPatterns: req.DomainPatterns,
		Keywords:       req.Keywords,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toResponse(src))
}

// SetActive handles PATCH /api/v1/admin/lead-sources/:id/active
func (h *Handler) SetActive(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	src, err := h.svc.SetActive(c.Request.Context(), id, *req.Active)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(src))
}

// Delete handles DELETE /api/v1/admin/lead-sources/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Classify handles POST /api/v1/admin/lead-sources/classify
func (h *Handler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	httpkit.OK(c, gin.H{"source": h.svc.Classify(req.From, req.Subject, req.Body)})
}
