package handlers

import (
	"net/http"

	"passagens/internal/domain/models"
	"passagens/internal/http/middleware"
	"passagens/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler runs the e-mail code login.
type AuthHandler struct {
	auth     services.AuthService
	sessions services.SessionService
}

func NewAuthHandler(auth services.AuthService, sessions services.SessionService) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions}
}

type requestCodeRequest struct {
	Email string `json:"email" binding:"required"`
}

type verifyCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
	Name  string `json:"name"`
}

func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req requestCodeRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	svc := h.auth
	svc.RequestID = middleware.GetRequestID(c)

	res, err := svc.RequestCode(c.Request.Context(), req.Email)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if !res.OK {
		c.JSON(http.StatusBadRequest, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// VerifyCode checks the code and, on success, binds the identity to the
// session and completes a checkout that was waiting for it.
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	reqID := middleware.GetRequestID(c)
	svc := h.auth
	svc.RequestID = reqID

	sessions := h.sessions
	sessions.RequestID = reqID
	sessions.Bookings.RequestID = reqID

	var resumed services.ConfirmResult
	res, err := svc.VerifyCode(c.Request.Context(), req.Email, req.Code, req.Name, func(identity models.Identity) error {
		var err error
		resumed, err = sessions.Authenticate(c.Request.Context(), middleware.GetSessionID(c), identity)
		return err
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if !res.OK {
		c.JSON(http.StatusUnauthorized, res)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"token":    res.Token,
		"identity": res.Identity,
		"next":     resumed.Next,
		"bookings": resumed.Bookings,
		"session":  resumed.Session,
	})
}
