package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/errs"
)

// writeError maps a service error onto an HTTP status and a JSON body with
// a detail field.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrReference):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"detail": err.Error()})
}

// badRequest reports a malformed request body.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid request body: " + err.Error()})
}
