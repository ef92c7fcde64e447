// Shared handler utilities: JSON error shape and the apperr-to-HTTP mapping.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cabwise/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// writeAppError maps the error taxonomy onto HTTP status codes. Unknown
// errors are reported as a bare 500 so internals never leak to clients.
func writeAppError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrRouting):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperr.ErrTransient):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
