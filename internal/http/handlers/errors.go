package handlers

import (
	"errors"
	"net/http"

	"passagens/internal/domain"
	"passagens/internal/http/middleware"
	"passagens/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      resp.Error,
			"code":       resp.Code,
			"details":    resp.Details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, resp)
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	respondDomainError(c, err, nil)
}

func respondDomainError(c *gin.Context, err error, details any) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		utils.LogError(middleware.GetRequestID(c), "http", c.FullPath(), err)
		respondError(c, status, code, "erro interno, tente novamente", details)
		return
	}
	respondError(c, status, code, err.Error(), details)
}

func classify(err error) (int, string) {
	code := domain.Code(err)
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, code
	case errors.Is(err, domain.ErrPaymentFailure):
		return http.StatusPaymentRequired, code
	case errors.Is(err, domain.ErrStorageDisabled):
		return http.StatusServiceUnavailable, code
	case domain.IsValidation(err):
		return http.StatusBadRequest, orDefault(code, "validation_error")
	case domain.IsNotFound(err):
		return http.StatusNotFound, orDefault(code, "not_found")
	case domain.IsConflict(err):
		return http.StatusConflict, orDefault(code, "conflict")
	case domain.IsUpstream(err):
		return http.StatusBadGateway, orDefault(code, "upstream_error")
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func orDefault(code, fallback string) string {
	if code == "" {
		return fallback
	}
	return code
}
