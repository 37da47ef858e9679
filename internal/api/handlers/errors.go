// server/internal/api/handlers/errors.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sistema-bup-api-server/internal/auth"
	"sistema-bup-api-server/internal/errs"
)

func statusFor(kind string) int {
	switch kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindInvalidArgument:
		return http.StatusBadRequest
	case errs.KindDecode:
		return http.StatusUnprocessableEntity
	case errs.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the gateway error kind as {"error", "message"}.
func respondError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(kind), gin.H{"error": kind, "message": err.Error()})
}

func respondAuthError(c *gin.Context, err error) {
	kind := auth.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case "invalid_credentials":
		status = http.StatusUnauthorized
	case "user_not_found":
		status = http.StatusNotFound
	case "email_already_in_use":
		status = http.StatusConflict
	case "weak_password":
		status = http.StatusBadRequest
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": kind, "message": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errs.KindInvalidArgument, "message": message})
}
