package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"authgate/api/internal/service"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// invalidCredentials is shared by the unknown-email and wrong-password paths
// so the two are indistinguishable to the caller.
var invalidCredentials = errorResponse{
	Error:   "Unauthorized",
	Message: "Invalid credentials.",
}

func (h HandlerSet) writeError(c *gin.Context, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		h.outcome(op, "invalid")
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "Bad Request",
			Message: "Validation failed.",
			Details: verr.Fields,
		})
	case errors.Is(err, service.ErrDuplicateUser):
		h.outcome(op, "duplicate")
		c.JSON(http.StatusConflict, errorResponse{
			Error:   "Conflict",
			Message: "User already exists.",
		})
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidCredentials):
		h.outcome(op, "rejected")
		c.JSON(http.StatusUnauthorized, invalidCredentials)
	default:
		h.outcome(op, "error")
		h.log.Error().
			Err(err).
			Str("operation", op).
			Str("request_id", c.Writer.Header().Get("X-Request-Id")).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:   "Internal Server Error",
			Message: "Something went wrong.",
		})
	}
}

func (h HandlerSet) badRequest(c *gin.Context, op string) {
	h.outcome(op, "invalid")
	c.JSON(http.StatusBadRequest, errorResponse{
		Error:   "Bad Request",
		Message: "Malformed JSON body.",
	})
}

func (h HandlerSet) outcome(op, result string) {
	if h.metrics != nil {
		h.metrics.AuthOutcomes.WithLabelValues(op, result).Inc()
	}
}
