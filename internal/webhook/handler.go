package webhook

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/httpkit"
)

// maxBodyBytes caps one webhook delivery.
const maxBodyBytes = 1 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type CreateAPIKeyRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=100"`
	DefaultSource  string   `json:"defaultSource" validate:"max=100"`
	AllowedDomains []string `json:"allowedDomains" validate:"max=20,dive,max=253"`
}

type APIKeyResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	KeyPrefix      string    `json:"keyPrefix"`
	DefaultSource  string    `json:"defaultSource"`
	AllowedDomains []string  `json:"allowedDomains"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

type CreateAPIKeyResponse struct {
	APIKeyResponse
	// Key is only returned on creation.
	Key string `json:"key"`
}

func toKeyResponse(k APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:             k.ID,
		Name:           k.Name,
		KeyPrefix:      k.KeyPrefix,
		DefaultSource:  k.DefaultSource,
		AllowedDomains: k.AllowedDomains,
		IsActive:       k.IsActive,
		CreatedAt:      k.CreatedAt,
	}
}

// HandleLeads handles POST /api/v1/webhook/leads
func (h *Handler) HandleLeads(c *gin.Context) {
	key, ok := keyFromContext(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "missing API key", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "failed to read body", nil)
		return
	}
	if len(body) > maxBodyBytes {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "payload too large", nil)
		return
	}
	summary, err := h.svc.Ingest(c.Request.Context(), key, body)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}

// HandleCreateAPIKey handles POST /api/v1/admin/webhook/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	var createdBy *uuid.UUID
	if identity := httpkit.MustGetIdentity(c); identity != nil {
		id := identity.UserID()
		createdBy = &id
	}
	key, err := h.svc.CreateKey(c.Request.Context(), req.Name, req.DefaultSource, req.AllowedDomains, createdBy)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, CreateAPIKeyResponse{APIKeyResponse: toKeyResponse(key.APIKey), Key: key.Plaintext})
}

// HandleListAPIKeys handles GET /api/v1/admin/webhook/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	keys, err := h.svc.ListKeys(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]APIKeyResponse, len(keys))
	for i, k := range keys {
		out[i] = toKeyResponse(k)
	}
	httpkit.OK(c, out)
}

// HandleRevokeAPIKey handles DELETE /api/v1/admin/webhook/keys/:keyId
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "keyId")
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.RevokeKey(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}
