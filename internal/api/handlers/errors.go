package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/catalog-s3/internal/service"
	"github.com/andresuchdata/catalog-s3/internal/storage"
)

// statusFor maps service and storage errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrBackupInProgress):
		return http.StatusConflict
	case errors.Is(err, storage.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrImageUpload),
		errors.Is(err, storage.ErrListing),
		errors.Is(err, storage.ErrAccessDenied):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var fe *service.FieldError
	if errors.As(err, &fe) {
		body["field"] = fe.Field
		body["error"] = fe.Message
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		if status == http.StatusInternalServerError {
			body["error"] = "internal server error"
		}
	}
	c.JSON(status, body)
}
