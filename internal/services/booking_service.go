package services

import (
	"context"
	"fmt"
	"time"

	"passagens/internal/booking"
	"passagens/internal/domain"
	"passagens/internal/domain/models"
	"passagens/internal/metrics"
	"passagens/internal/utils"

	"github.com/google/uuid"
)

// Checkout handoff outcomes.
const (
	NextProceedToPayment = "proceed_to_payment"
	NextLoginRequired    = "login_required"
)

// BookingService turns confirmed legs into persisted bookings.
type BookingService struct {
	Bookings  BookingStore
	RequestID string
	Now       func() time.Time
	NewID     func() string
}

// HandoffResult is what the checkout step produced.
type HandoffResult struct {
	Next         string
	Bookings     []models.Booking
	ResumeTarget string
}

// Handoff commits the session's confirmed legs as unpaid bookings. Without
// an identity the legs are parked on the session and login is requested.
func (s BookingService) Handoff(ctx context.Context, sess *booking.Session) (HandoffResult, error) {
	legs, err := sess.CommittedLegs()
	if err != nil {
		return HandoffResult{}, err
	}

	if sess.Identity == nil {
		sess.Stash(legs, booking.ResumePayment)
		metrics.CheckoutsDeferred.Inc()
		utils.LogEvent(s.RequestID, "booking", "handoff", "aguardando identificação")
		return HandoffResult{Next: NextLoginRequired, ResumeTarget: booking.ResumePayment}, nil
	}

	created, err := s.commit(ctx, sess, legs)
	if err != nil {
		return HandoffResult{}, err
	}
	return HandoffResult{Next: NextProceedToPayment, Bookings: created}, nil
}

// Resume commits legs parked by an earlier Handoff. It is a no-op when
// nothing is parked.
func (s BookingService) Resume(ctx context.Context, sess *booking.Session) (HandoffResult, error) {
	if sess.Identity == nil {
		return HandoffResult{}, domain.DomainError{Code: "not_authenticated", Err: domain.ErrNotAuthenticated}
	}
	legs, target := sess.TakeStash()
	if len(legs) == 0 {
		return HandoffResult{}, nil
	}

	created, err := s.commit(ctx, sess, legs)
	if err != nil {
		return HandoffResult{}, err
	}
	return HandoffResult{Next: NextProceedToPayment, Bookings: created, ResumeTarget: target}, nil
}

// ListForPayer returns the bookings owned by identity.
func (s BookingService) ListForPayer(ctx context.Context, identity *models.Identity) ([]models.Booking, error) {
	if identity == nil || identity.Email == "" {
		return nil, domain.DomainError{Code: "not_authenticated", Err: domain.ErrNotAuthenticated}
	}
	return s.Bookings.ListByPayer(ctx, identity.Email)
}

func (s BookingService) commit(ctx context.Context, sess *booking.Session, legs []models.LegSelection) ([]models.Booking, error) {
	created := booking.BuildBookings(legs, sess.Identity.Email, s.now(), s.newID)
	if err := s.Bookings.CreateMany(ctx, created); err != nil {
		utils.LogError(s.RequestID, "booking", "create", err)
		return nil, domain.InternalError{Msg: "falha ao registrar reservas", Err: err}
	}
	sess.AddBookings(created)

	for _, b := range created {
		metrics.BookingsCreated.WithLabelValues(string(b.Leg)).Inc()
	}
	utils.LogEvent(s.RequestID, "booking", "create", fmt.Sprintf("%d reservas para %s", len(created), sess.Identity.Email))
	return created, nil
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utils.NowUTC()
}

func (s BookingService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
