package handlers

import (
	"net/http"
	"strconv"

	"passagens/internal/booking"
	"passagens/internal/http/middleware"
	"passagens/internal/services"

	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the booking flow of the caller's session.
type SessionHandler struct {
	sessions  services.SessionService
	directory *booking.Directory
}

func NewSessionHandler(sessions services.SessionService, directory *booking.Directory) *SessionHandler {
	return &SessionHandler{sessions: sessions, directory: directory}
}

type selectTripRequest struct {
	TripID string `json:"trip_id" binding:"required"`
}

type editPassengerRequest struct {
	Seat  int    `json:"seat"`
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

func (h *SessionHandler) service(c *gin.Context) services.SessionService {
	svc := h.sessions
	svc.RequestID = middleware.GetRequestID(c)
	svc.Bookings.RequestID = svc.RequestID
	return svc
}

func respondSession(c *gin.Context, sess *booking.Session) {
	body := gin.H{"session": sess}
	if seat, ok := sess.FocusedSeat(); ok {
		body["focused_seat"] = seat
	}
	c.JSON(http.StatusOK, body)
}

// Localities lists the places a search may use.
func (h *SessionHandler) Localities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"localities": h.directory.All()})
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.service(c).Get(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondSession(c, sess)
}

func (h *SessionHandler) Reset(c *gin.Context) {
	if err := h.service(c).Reset(c.Request.Context(), middleware.GetSessionID(c)); err != nil {
		RespondError(c, http.StatusInternalServerError, "falha ao descartar sessão", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Search(c *gin.Context) {
	var req booking.SearchInput
	if !BindJSONOrError(c, &req) {
		return
	}
	sess, err := h.service(c).Search(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondSession(c, sess)
}

func (h *SessionHandler) LoadTrips(c *gin.Context) {
	sess, err := h.service(c).LoadTrips(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondSession(c, sess)
}

func (h *SessionHandler) SelectTrip(c *gin.Context) {
	var req selectTripRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess, err := h.service(c).SelectTrip(c.Request.Context(), middleware.GetSessionID(c), req.TripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondSession(c, sess)
}

func (h *SessionHandler) ToggleSeat(c *gin.Context) {
	seat, err := strconv.Atoi(c.Param("seat"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "número de poltrona inválido", err)
		return
	}
	sess, err := h.service(c).ToggleSeat(c.Request.Context(), middleware.GetSessionID(c), seat)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondSession(c, sess)
}

func (h *SessionHandler) EditPassenger(c *gin.Context) {
	var req editPassengerRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sess, err := h.service(c).EditPassenger(c.Request.Context(), middleware.GetSessionID(c), req.Seat, req.Field, req.Value)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondSession(c, sess)
}

// Confirm closes the current leg; at checkout the response says whether to
// proceed to payment or to identify first.
func (h *SessionHandler) Confirm(c *gin.Context) {
	res, err := h.service(c).Confirm(c.Request.Context(), middleware.GetSessionID(c), middleware.GetIdentity(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *SessionHandler) Back(c *gin.Context) {
	sess, err := h.service(c).Back(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondSession(c, sess)
}
