package handlers

import (
	"errors"
	"net/http"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
	"passagens/internal/http/middleware"
	"passagens/internal/services"
	"passagens/internal/utils"

	"github.com/gin-gonic/gin"
)

// PaymentHandler charges bookings and receives gateway notifications.
type PaymentHandler struct {
	payments services.PaymentService
	sessions services.SessionService
}

func NewPaymentHandler(payments services.PaymentService, sessions services.SessionService) *PaymentHandler {
	return &PaymentHandler{payments: payments, sessions: sessions}
}

type createPaymentRequest struct {
	BookingIDs      []string             `json:"booking_ids" binding:"required"`
	Method          models.PaymentMethod `json:"method" binding:"required"`
	PaymentMethodID string               `json:"payment_method_id"`
	CardToken       string               `json:"card_token"`
	Installments    int                  `json:"installments"`
}

type notification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (h *PaymentHandler) service(c *gin.Context) services.PaymentService {
	svc := h.payments
	svc.RequestID = middleware.GetRequestID(c)
	return svc
}

func (h *PaymentHandler) Create(c *gin.Context) {
	var req createPaymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.service(c).Pay(c.Request.Context(), middleware.GetIdentity(c), services.PayInput{
		BookingIDs:      req.BookingIDs,
		Method:          req.Method,
		PaymentMethodID: req.PaymentMethodID,
		CardToken:       req.CardToken,
		Installments:    req.Installments,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPaymentFailure) {
			respondDomainError(c, err, res)
			return
		}
		RespondDomainError(c, err)
		return
	}

	if models.IsApproved(res.Payment.Status) {
		sessions := h.sessions
		sessions.RequestID = middleware.GetRequestID(c)
		if err := sessions.MarkPaid(c.Request.Context(), middleware.GetSessionID(c), res.Payment.BookingIDs); err != nil {
			utils.LogError(sessions.RequestID, "payment", "session_mark_paid", err)
		}
	}
	c.JSON(http.StatusCreated, res)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	rec, err := h.service(c).Status(c.Request.Context(), middleware.GetIdentity(c), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": rec})
}

// Webhook accepts gateway notifications in body or query form. Topics other
// than payment are acknowledged and ignored.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var n notification
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&n); err != nil {
			RespondError(c, http.StatusBadRequest, "payload inválido", err)
			return
		}
	}
	if n.Type == "" {
		n.Type = c.DefaultQuery("type", c.Query("topic"))
	}
	if n.Data.ID == "" {
		n.Data.ID = c.DefaultQuery("data.id", c.Query("id"))
	}

	if n.Type != "payment" {
		c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": true})
		return
	}
	if err := h.service(c).HandleNotification(c.Request.Context(), n.Data.ID); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
