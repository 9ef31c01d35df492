package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"passagens/internal/booking"
	"passagens/internal/cache"
	"passagens/internal/domain"
	"passagens/internal/domain/models"
	"passagens/internal/metrics"
	"passagens/internal/utils"
)

const (
	sessionLockTTL     = 15 * time.Second
	sessionLockRetries = 20
	sessionLockBackoff = 50 * time.Millisecond
)

// SessionService applies booking flow operations to the session stored under
// a session id. Every mutation runs under the session lock and is persisted
// only when it succeeds.
type SessionService struct {
	Sessions  cache.SessionStoreInterface
	Locks     cache.LockStoreInterface
	Directory *booking.Directory
	Trips     TripLookup
	TripCache cache.TripCacheInterface
	Bookings  BookingService
	RequestID string
}

// ConfirmResult reports where Confirm moved the flow.
type ConfirmResult struct {
	Session  *booking.Session `json:"session"`
	Next     string           `json:"next"`
	Bookings []models.Booking `json:"bookings,omitempty"`
}

// Get returns the stored session, or a fresh one at the search form.
// Bookings still unpaid in the session copy are refreshed from the
// repository, so payments settled by the webhook or the reconciler show up.
func (s SessionService) Get(ctx context.Context, id string) (*booking.Session, error) {
	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return nil, domain.InternalError{Msg: "falha ao carregar sessão", Err: err}
	}
	if sess == nil {
		return booking.NewSession(id), nil
	}
	s.refreshPaid(ctx, sess)
	return sess, nil
}

func (s SessionService) refreshPaid(ctx context.Context, sess *booking.Session) {
	if s.Bookings.Bookings == nil {
		return
	}
	var unpaid []string
	for _, b := range sess.Bookings {
		if !b.Paid {
			unpaid = append(unpaid, b.ID)
		}
	}
	if len(unpaid) == 0 {
		return
	}
	stored, err := s.Bookings.Bookings.ListByIDs(ctx, unpaid)
	if err != nil {
		utils.LogError(s.RequestID, "session", "refresh_paid", err)
		return
	}
	var paid []string
	for _, b := range stored {
		if b.Paid {
			paid = append(paid, b.ID)
		}
	}
	if len(paid) > 0 {
		sess.MarkPaid(paid)
	}
}

// Reset discards the session.
func (s SessionService) Reset(ctx context.Context, id string) error {
	return s.Sessions.Delete(ctx, id)
}

// Search applies new search criteria.
func (s SessionService) Search(ctx context.Context, id string, in booking.SearchInput) (*booking.Session, error) {
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		if err := sess.Search(s.Directory, in); err != nil {
			utils.LogEvent(s.RequestID, "session", "search", err.Error())
			return err
		}
		return nil
	})
}

// LoadTrips queries the reservation system for the current leg. The query
// runs without holding the session lock; a result that arrives after the
// session moved on is discarded and the current session is returned as is.
func (s SessionService) LoadTrips(ctx context.Context, id string) (*booking.Session, error) {
	var lookup booking.Lookup
	if _, err := s.mutate(ctx, id, func(sess *booking.Session) error {
		l, err := sess.BeginLookup()
		lookup = l
		return err
	}); err != nil {
		return nil, err
	}

	trips, err := s.searchTrips(ctx, lookup.Criteria)
	if err != nil {
		metrics.TripLookups.WithLabelValues("error").Inc()
		utils.LogError(s.RequestID, "session", "load_trips", err)
		return nil, err
	}

	applied := false
	sess, err := s.mutate(ctx, id, func(sess *booking.Session) error {
		applied = sess.ApplyTrips(lookup, trips)
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case !applied:
		metrics.TripLookups.WithLabelValues("stale").Inc()
		utils.LogEvent(s.RequestID, "session", "load_trips", fmt.Sprintf("resultado da consulta %d descartado", lookup.Seq))
	case len(trips) == 0:
		metrics.TripLookups.WithLabelValues("empty").Inc()
	default:
		metrics.TripLookups.WithLabelValues("ok").Inc()
	}
	return sess, nil
}

func (s SessionService) searchTrips(ctx context.Context, crit models.SearchCriteria) ([]models.TripOption, error) {
	if s.TripCache != nil {
		trips, ok, err := s.TripCache.Get(ctx, crit)
		if err != nil {
			utils.LogError(s.RequestID, "session", "trip_cache_get", err)
		} else if ok {
			metrics.CacheHits.WithLabelValues("trips").Inc()
			return trips, nil
		}
		metrics.CacheMisses.WithLabelValues("trips").Inc()
	}

	if s.Trips == nil {
		return nil, domain.UpstreamError{Service: "reserva", Err: domain.ErrLookupFailure}
	}
	trips, err := s.Trips.SearchTrips(ctx, crit)
	if err != nil {
		return nil, err
	}
	if s.TripCache != nil {
		if err := s.TripCache.Set(ctx, crit, trips); err != nil {
			utils.LogError(s.RequestID, "session", "trip_cache_set", err)
		}
	}
	return trips, nil
}

// SelectTrip picks a trip from the current list and opens its seat map.
func (s SessionService) SelectTrip(ctx context.Context, id, tripID string) (*booking.Session, error) {
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		trip, err := sess.FindTrip(tripID)
		if err != nil {
			return err
		}
		if s.Trips == nil {
			return domain.UpstreamError{Service: "reserva", Err: domain.ErrLookupFailure}
		}
		seatMap, err := s.Trips.SeatMap(ctx, trip.ID)
		if err != nil {
			utils.LogError(s.RequestID, "session", "seat_map", err)
			return err
		}
		return sess.SelectTrip(trip.ID, seatMap)
	})
}

// ToggleSeat selects or deselects one seat of the current leg.
func (s SessionService) ToggleSeat(ctx context.Context, id string, seat int) (*booking.Session, error) {
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		return sess.ToggleSeat(seat)
	})
}

// EditPassenger updates one field of the focused seat's passenger.
func (s SessionService) EditPassenger(ctx context.Context, id string, seat int, field, value string) (*booking.Session, error) {
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		return sess.EditPassenger(seat, field, value)
	})
}

// Back steps the flow one stage back.
func (s SessionService) Back(ctx context.Context, id string) (*booking.Session, error) {
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		return sess.Back()
	})
}

// Confirm closes the current leg. When the flow reaches checkout the
// confirmed legs are handed to the booking service in the same step; if that
// fails the session keeps its selections.
func (s SessionService) Confirm(ctx context.Context, id string, identity *models.Identity) (ConfirmResult, error) {
	var res ConfirmResult
	sess, err := s.mutate(ctx, id, func(sess *booking.Session) error {
		bindIdentity(sess, identity)

		outcome, err := sess.Confirm()
		if err != nil {
			return err
		}
		if outcome == booking.NextReturnTrip {
			res.Next = string(booking.NextReturnTrip)
			return nil
		}

		handoff, err := s.Bookings.Handoff(ctx, sess)
		if err != nil {
			return err
		}
		res.Next = handoff.Next
		res.Bookings = handoff.Bookings
		return nil
	})
	if err != nil {
		return ConfirmResult{}, err
	}
	res.Session = sess
	return res, nil
}

// Authenticate binds identity to the session and completes a checkout that
// was waiting for it.
func (s SessionService) Authenticate(ctx context.Context, id string, identity models.Identity) (ConfirmResult, error) {
	var res ConfirmResult
	sess, err := s.mutate(ctx, id, func(sess *booking.Session) error {
		bindIdentity(sess, &identity)

		handoff, err := s.Bookings.Resume(ctx, sess)
		if err != nil {
			return err
		}
		res.Next = handoff.Next
		res.Bookings = handoff.Bookings
		return nil
	})
	if err != nil {
		return ConfirmResult{}, err
	}
	res.Session = sess
	return res, nil
}

// MarkPaid mirrors paid bookings into the session copy.
func (s SessionService) MarkPaid(ctx context.Context, id string, bookingIDs []string) error {
	_, err := s.mutate(ctx, id, func(sess *booking.Session) error {
		sess.MarkPaid(bookingIDs)
		return nil
	})
	return err
}

func bindIdentity(sess *booking.Session, identity *models.Identity) {
	if identity == nil || identity.Email == "" {
		return
	}
	id := *identity
	sess.Identity = &id
}

func (s SessionService) mutate(ctx context.Context, id string, fn func(*booking.Session) error) (*booking.Session, error) {
	token, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.Locks.ReleaseSessionLock(context.WithoutCancel(ctx), id, token); err != nil {
			utils.LogError(s.RequestID, "session", "unlock", err)
		}
	}()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return nil, domain.InternalError{Msg: "falha ao salvar sessão", Err: err}
	}
	return sess, nil
}

func (s SessionService) lock(ctx context.Context, id string) (string, error) {
	for attempt := 0; attempt < sessionLockRetries; attempt++ {
		token, ok, err := s.Locks.AcquireSessionLock(ctx, id, sessionLockTTL)
		if err != nil {
			return "", domain.InternalError{Msg: "falha ao bloquear sessão", Err: err}
		}
		if ok {
			return token, nil
		}

		select {
		case <-ctx.Done():
			return "", errors.Join(domain.ConflictError{Resource: "sessão", Err: domain.ErrSessionBusy}, ctx.Err())
		case <-time.After(sessionLockBackoff):
		}
	}
	utils.LogEvent(s.RequestID, "session", "lock", "sessão ocupada: "+id)
	return "", domain.ConflictError{Resource: "sessão", Err: domain.ErrSessionBusy}
}
