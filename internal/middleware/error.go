package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code         int                         `json:"code"`
	Message      string                      `json:"message"`
	RequestID    string                      `json:"request_id,omitempty"`
	Alternatives []apperrors.SlotAlternative `json:"alternatives,omitempty"`
}

// ErrorHandler translates errors attached to the gin context into JSON
// responses. Slot conflicts keep their ranked alternatives so callers
// can re-prompt directly.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		lastErr := c.Errors.Last()

		log.Error().
			Err(lastErr.Err).
			Str("request_id", requestID).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("request error")

		if conflict, ok := apperrors.AsSlotConflict(lastErr.Err); ok {
			c.JSON(http.StatusConflict, ErrorResponse{
				Code:         http.StatusConflict,
				Message:      conflict.Error(),
				RequestID:    requestID,
				Alternatives: conflict.Alternatives,
			})
			return
		}

		status := http.StatusInternalServerError
		if err, ok := lastErr.Err.(interface{ StatusCode() int }); ok {
			status = err.StatusCode()
		}

		c.JSON(status, ErrorResponse{
			Code:      status,
			Message:   lastErr.Error(),
			RequestID: requestID,
		})
	}
}
