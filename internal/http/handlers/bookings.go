package handlers

import (
	"fmt"
	"net/http"

	"passagens/internal/http/middleware"
	"passagens/internal/services"

	"github.com/gin-gonic/gin"
)

// BookingHandler serves committed bookings and their tickets.
type BookingHandler struct {
	bookings services.BookingService
	docs     services.DocsService
	storage  services.StorageService
}

func NewBookingHandler(bookings services.BookingService, docs services.DocsService, storage services.StorageService) *BookingHandler {
	return &BookingHandler{bookings: bookings, docs: docs, storage: storage}
}

func (h *BookingHandler) List(c *gin.Context) {
	svc := h.bookings
	svc.RequestID = middleware.GetRequestID(c)
	list, err := svc.ListForPayer(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

func (h *BookingHandler) Ticket(c *gin.Context) {
	svc := h.docs
	svc.RequestID = middleware.GetRequestID(c)
	pdf, filename, err := svc.GenerateTicket(c.Request.Context(), c.Param("id"), middleware.GetIdentity(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *BookingHandler) UploadTicket(c *gin.Context) {
	svc := h.storage
	svc.RequestID = middleware.GetRequestID(c)
	svc.Docs.RequestID = svc.RequestID
	res, err := svc.UploadTicket(c.Request.Context(), c.Param("id"), middleware.GetIdentity(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file_id": res.FileID, "web_view_link": res.WebViewLink})
}
