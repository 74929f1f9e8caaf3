package httpkit

import (
	"errors"
	"net/http"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON sends payload with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// Error sends an error body with the given status.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends payload with 200.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// HandleError writes err as a response and reports whether there was one.
// Typed apperr errors use their Kind's status; anything else is a 500 and
// its text is not exposed.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{Error: domainErr.Message, Details: domainErr.Details})
		return true
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	return true
}

// BindJSON decodes and validates the request body into req. On failure it
// writes a 400 and returns false.
func BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return false
	}
	if err := validator.Validate.Struct(req); err != nil {
		Error(c, http.StatusBadRequest, "validation error", err.Error())
		return false
	}
	return true
}

// ParamUUID parses a UUID path parameter, writing a 400 on failure.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}
