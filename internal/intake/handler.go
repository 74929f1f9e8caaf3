package intake

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/extractor"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/httpkit"
)

type Handler struct {
	pipeline *Pipeline
}

func NewHandler(p *Pipeline) *Handler {
	return &Handler{pipeline: p}
}

type MessageRequest struct {
	MessageID  string    `json:"messageId" validate:"max=500"`
	From       string    `json:"from" validate:"max=500"`
	Subject    string    `json:"subject" validate:"max=1000"`
	Body       string    `json:"body" validate:"required,max=200000"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (r MessageRequest) message() Message {
	return Message{MessageID: r.MessageID, From: r.From, Subject: r.Subject, Body: r.Body, ReceivedAt: r.ReceivedAt}
}

type SubmitLeadRequest struct {
	FirstName       string   `json:"firstName" validate:"required,max=100"`
	LastName        string   `json:"lastName" validate:"max=100"`
	Emails          []string `json:"emails" validate:"max=10,dive,email,max=320"`
	Phones          []string `json:"phones" validate:"max=10,dive,max=40"`
	Company         string   `json:"company" validate:"max=200"`
	JobTitle        string   `json:"jobTitle" validate:"max=200"`
	Source          string   `json:"source" validate:"max=100"`
	Message         string   `json:"message" validate:"max=5000"`
	PropertyAddress string   `json:"propertyAddress" validate:"max=500"`
	PropertyDetails string   `json:"propertyDetails" validate:"max=2000"`
}

func (r SubmitLeadRequest) candidate() extractor.Candidate {
	return extractor.Candidate{
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Emails:          r.Emails,
		Phones:          r.Phones,
		Company:         r.Company,
		JobTitle:        r.JobTitle,
		Source:          r.Source,
		Message:         r.Message,
		PropertyAddress: r.PropertyAddress,
		PropertyDetails: r.PropertyDetails,
	}
}

// Preview handles POST /api/v1/admin/intake/preview
func (h *Handler) Preview(c *gin.Context) {
	var req MessageRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	httpkit.OK(c, h.pipeline.Preview(req.message()))
}

// ProcessMessage handles POST /api/v1/admin/intake/messages
func (h *Handler) ProcessMessage(c *gin.Context) {
	var req MessageRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	res, err := h.pipeline.ProcessMessage(c.Request.Context(), req.message())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, statusFor(res.Outcome), res)
}

// SubmitLead handles POST /api/v1/leads
func (h *Handler) SubmitLead(c *gin.Context) {
	var req SubmitLeadRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	res, err := h.pipeline.ProcessCandidate(c.Request.Context(), req.candidate(), ChannelAPI)
	if httpkit.HandleError(c, err) {
		return
	}
	if res.Outcome == OutcomeDiscarded {
		httpkit.Error(c, http.StatusUnprocessableEntity, res.Reason, res)
		return
	}
	httpkit.JSON(c, statusFor(res.Outcome), res)
}

func statusFor(o Outcome) int {
	switch o {
	case OutcomeCreatedAssigned, OutcomeCreatedUnassigned:
		return http.StatusCreated
	default:
		return http.StatusOK
	}
}
