package agents

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/httpkit"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type CreateAgentRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Email string `json:"email" validate:"required,email,max=320"`
	Role  string `json:"role" validate:"omitempty,oneof=admin agent"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type AgentResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Role               string    `json:"role"`
	IsActive           bool      `json:"isActive"`
	RoundRobinPriority int       `json:"roundRobinPriority"`
	CreatedAt          time.Time `json:"createdAt"`
}

func toResponse(a domain.Agent) AgentResponse {
	return AgentResponse{
		ID:                 a.ID,
		Name:               a.Name,
		Email:              a.Email,
		Role:               a.Role,
		IsActive:           a.IsActive,
		RoundRobinPriority: a.RoundRobinPriority,
		CreatedAt:          a.CreatedAt,
	}
}

// List handles GET /api/v1/admin/agents?all=true
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("all") == "true")
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]AgentResponse, len(items))
	for i, a := range items {
		out[i] = toResponse(a)
	}
	httpkit.OK(c, out)
}

// Create handles POST /api/v1/admin/agents
func (h *Handler) Create(c *gin.Context) {
	var req CreateAgentRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	a, err := h.svc.Create(c.Request.Context(), req.Name, req.Email, req.Role)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toResponse(a))
}

// SetActive handles PATCH /api/v1/admin/agents/:id/active
func (h *Handler) SetActive(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	a, err := h.svc.SetActive(c.Request.Context(), id, *req.Active)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(a))
}

// Me handles GET /api/v1/agents/me
func (h *Handler) Me(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(a))
}
