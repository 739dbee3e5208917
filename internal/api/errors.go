package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funlynk/funlynk/internal/conversion"
	"github.com/funlynk/funlynk/internal/reactions"
)

// respondError translates domain errors into HTTP responses
func respondError(c *gin.Context, err error) {
	if verr, ok := conversion.AsValidationError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": verr.Message,
			"field": verr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, conversion.ErrPostNotFound),
		errors.Is(err, reactions.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})

	case errors.Is(err, conversion.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, conversion.ErrPostNotActive),
		errors.Is(err, reactions.ErrPostNotActive),
		errors.Is(err, conversion.ErrAlreadyConverted),
		errors.Is(err, conversion.ErrNotPrompted),
		errors.Is(err, conversion.ErrNotEligible),
		errors.Is(err, reactions.ErrOwnPost):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, reactions.ErrInvalidType),
		errors.Is(err, reactions.ErrNoInvitees):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
