package httpserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"luminix/internal/commerce"
	"luminix/internal/domain"
	"luminix/internal/verification"
)

const genericError = "something went wrong, please try again"

// statusFor maps an error to its HTTP status and the message safe to show the caller.
func statusFor(err error) (int, string) {
	var userErr *commerce.UserError
	switch {
	case errors.As(err, &userErr):
		return http.StatusBadRequest, userErr.Error()
	case errors.Is(err, verification.ErrCodeNotFound):
		return http.StatusBadRequest, "no verification code was requested for this email"
	case errors.Is(err, verification.ErrCodeExpired):
		return http.StatusBadRequest, "verification code expired, request a new one"
	case errors.Is(err, verification.ErrCodeMismatch):
		return http.StatusBadRequest, "verification code is incorrect"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, domain.ErrConfig):
		return http.StatusInternalServerError, "service is not configured"
	default:
		return http.StatusInternalServerError, genericError
	}
}

func writeError(c *gin.Context, logger *log.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Printf("http: %s %s request_id=%s err=%v", c.Request.Method, c.FullPath(), c.GetString(requestIDKey), err)
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}
