package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladyslavplus/orderly/internal/apperr"
)

// respondError translates a domain error to the stable external shape:
// status + machine-readable kind + human message + timestamp.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	message := err.Error()
	if kind == apperr.KindInternal {
		// Do not leak internals to clients.
		message = "An unexpected error occurred."
	}
	c.JSON(apperr.HTTPStatus(err), gin.H{
		"error":             string(kind),
		"error_description": message,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	})
}
