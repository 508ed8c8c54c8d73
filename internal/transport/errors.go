package transport

import (
	"errors"
	"net/http"

	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/gin-gonic/gin"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, entity.ErrImageNotFound), errors.Is(err, entity.ErrNotBlob):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrGalleryFull):
		return http.StatusConflict
	case errors.Is(err, entity.ErrInvalidNumber),
		errors.Is(err, entity.ErrPromptRequired),
		errors.Is(err, entity.ErrUnknownStyle),
		errors.Is(err, entity.ErrUnsupportedType),
		errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	_ = c.Error(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
