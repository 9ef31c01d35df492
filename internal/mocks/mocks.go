// Package mocks holds in-memory stand-ins for the Redis stores, the MySQL
// repositories and the external collaborators, for use in tests.
package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"passagens/internal/booking"
	"passagens/internal/cache"
	"passagens/internal/domain"
	"passagens/internal/domain/models"
	"passagens/internal/integrations/drive"
)

// ──────────────────────────────────────────────
// SESSION STORE
// ──────────────────────────────────────────────

// SessionStore keeps sessions as JSON, the way the Redis store does, so a
// session only changes when it is saved.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	SaveCallCount int32
	SaveError     error
}

func NewSessionStore() *SessionStore {
	return &SessionStore{data: map[string][]byte{}}
}

func (m *SessionStore) Get(_ context.Context, id string) (*booking.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	var sess booking.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	sess.Normalize()
	return &sess, nil
}

func (m *SessionStore) Save(_ context.Context, sess *booking.Session) error {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if m.SaveError != nil {
		return m.SaveError
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sess.ID] = raw
	return nil
}

func (m *SessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

// ──────────────────────────────────────────────
// LOCK STORE
// ──────────────────────────────────────────────

// LockStore grants one holder per session. AlwaysBusy makes every acquire fail.
type LockStore struct {
	mu     sync.Mutex
	held   map[string]string
	issued int

	AlwaysBusy bool
}

func NewLockStore() *LockStore {
	return &LockStore{held: map[string]string{}}
}

func (m *LockStore) AcquireSessionLock(_ context.Context, id string, _ time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.held[id]; m.AlwaysBusy || taken {
		return "", false, nil
	}
	m.issued++
	token := fmt.Sprintf("token-%d", m.issued)
	m.held[id] = token
	return token, true, nil
}

// ReleaseSessionLock frees the lock only for the token that holds it.
func (m *LockStore) ReleaseSessionLock(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[id] == token {
		delete(m.held, id)
	}
	return nil
}

// Held reports whether the lock for id is taken.
func (m *LockStore) Held(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[id]
	return ok
}

// ──────────────────────────────────────────────
// TRIP LOOKUP & CACHE
// ──────────────────────────────────────────────

// TripLookup answers every search with Trips and every seat map with Seats.
type TripLookup struct {
	Trips []models.TripOption
	Seats models.SeatMap
	Err   error

	SearchCallCount int32
	// During runs inside SearchTrips, while the caller holds no session lock.
	During func()
}

func (m *TripLookup) SearchTrips(_ context.Context, _ models.SearchCriteria) ([]models.TripOption, error) {
	atomic.AddInt32(&m.SearchCallCount, 1)
	if m.During != nil {
		m.During()
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Trips, nil
}

func (m *TripLookup) SeatMap(_ context.Context, tripID string) (models.SeatMap, error) {
	if m.Err != nil {
		return models.SeatMap{}, m.Err
	}
	seats := m.Seats
	seats.TripID = tripID
	return seats, nil
}

type TripCache struct {
	mu   sync.Mutex
	data map[string][]models.TripOption
}

func NewTripCache() *TripCache {
	return &TripCache{data: map[string][]models.TripOption{}}
}

func tripKey(c models.SearchCriteria) string {
	b, _ := json.Marshal(c)
	return string(b)
}

func (m *TripCache) Get(_ context.Context, c models.SearchCriteria) ([]models.TripOption, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trips, ok := m.data[tripKey(c)]
	return trips, ok, nil
}

func (m *TripCache) Set(_ context.Context, c models.SearchCriteria, trips []models.TripOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[tripKey(c)] = trips
	return nil
}

// ──────────────────────────────────────────────
// BOOKING & PAYMENT REPOSITORIES
// ──────────────────────────────────────────────

type BookingStore struct {
	mu    sync.RWMutex
	items map[string]models.Booking

	CreateError   error
	MarkPaidError error
}

func NewBookingStore(seed ...models.Booking) *BookingStore {
	m := &BookingStore{items: map[string]models.Booking{}}
	for _, b := range seed {
		m.items[b.ID] = b
	}
	return m
}

func (m *BookingStore) CreateMany(_ context.Context, bookings []models.Booking) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bookings {
		m.items[b.ID] = b
	}
	return nil
}

func (m *BookingStore) GetByID(_ context.Context, id string) (models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.items[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "reserva"}
	}
	return b, nil
}

func (m *BookingStore) ListByIDs(_ context.Context, ids []string) ([]models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Booking{}
	for _, id := range ids {
		if b, ok := m.items[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *BookingStore) ListByPayer(_ context.Context, email string) ([]models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Booking{}
	for _, b := range m.items {
		if b.PayerEmail == email {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *BookingStore) MarkPaid(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkPaidError != nil {
		return 0, m.MarkPaidError
	}
	var n int64
	for _, id := range ids {
		if b, ok := m.items[id]; ok && !b.Paid {
			b.MarkPaid()
			m.items[id] = b
			n++
		}
	}
	return n, nil
}

type PaymentStore struct {
	mu    sync.RWMutex
	items map[string]models.PaymentRecord
}

func NewPaymentStore(seed ...models.PaymentRecord) *PaymentStore {
	m := &PaymentStore{items: map[string]models.PaymentRecord{}}
	for _, p := range seed {
		m.items[p.ID] = p
	}
	return m
}

func (m *PaymentStore) Create(_ context.Context, p models.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.ID] = p
	return nil
}

func (m *PaymentStore) UpdateStatus(_ context.Context, id, status, detail string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return domain.NotFoundError{Resource: "pagamento"}
	}
	p.Status, p.StatusDetail, p.UpdatedAt = status, detail, at
	m.items[id] = p
	return nil
}

func (m *PaymentStore) GetByID(_ context.Context, id string) (models.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.items[id]
	if !ok {
		return models.PaymentRecord{}, domain.NotFoundError{Resource: "pagamento"}
	}
	return p, nil
}

func (m *PaymentStore) GetByGatewayID(_ context.Context, gatewayID string) (models.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.items {
		if p.GatewayID == gatewayID {
			return p, nil
		}
	}
	return models.PaymentRecord{}, domain.NotFoundError{Resource: "pagamento"}
}

func (m *PaymentStore) ListPending(_ context.Context, _ int) ([]models.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.PaymentRecord{}
	for _, p := range m.items {
		if models.IsPendingPayment(p.Status) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────
// PAYMENT GATEWAY
// ──────────────────────────────────────────────

// Gateway answers CreatePayment with Result and GetPayment from Statuses.
type Gateway struct {
	mu       sync.Mutex
	requests []models.PaymentRequest

	Result   models.PaymentResult
	Err      error
	Statuses map[string]models.PaymentResult
}

func (m *Gateway) CreatePayment(_ context.Context, req models.PaymentRequest) (models.PaymentResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return models.PaymentResult{}, m.Err
	}
	return m.Result, nil
}

func (m *Gateway) GetPayment(_ context.Context, id string) (models.PaymentResult, error) {
	if r, ok := m.Statuses[id]; ok {
		return r, nil
	}
	return models.PaymentResult{}, errors.New("unknown payment " + id)
}

// Requests returns the payment requests received so far.
func (m *Gateway) Requests() []models.PaymentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PaymentRequest(nil), m.requests...)
}

// ──────────────────────────────────────────────
// OTP STORE, MAILER, UPLOADER, RESPONSE CACHE
// ──────────────────────────────────────────────

type OTPStore struct {
	mu       sync.Mutex
	entries  map[string]cache.OTPEntry
	attempts map[string]int
}

func NewOTPStore() *OTPStore {
	return &OTPStore{entries: map[string]cache.OTPEntry{}, attempts: map[string]int{}}
}

func (m *OTPStore) Save(_ context.Context, email string, entry cache.OTPEntry, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[email] = entry
	m.attempts[email] = 0
	return nil
}

func (m *OTPStore) Get(_ context.Context, email string) (*cache.OTPEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[email]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *OTPStore) IncrementAttempts(_ context.Context, email string, _ time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[email]++
	return m.attempts[email], nil
}

func (m *OTPStore) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, email)
	delete(m.attempts, email)
	return nil
}

// Has reports whether a code is pending for email.
func (m *OTPStore) Has(email string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[email]
	return ok
}

// Entry returns the pending code entry for email.
func (m *OTPStore) Entry(email string) cache.OTPEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[email]
}

// Mailer records the last message sent.
type Mailer struct {
	To, Subject, Body string
	Err               error
}

func (m *Mailer) Send(_ context.Context, to, subject, body string) error {
	m.To, m.Subject, m.Body = to, subject, body
	return m.Err
}

// Uploader records the last upload.
type Uploader struct {
	Name, MimeType string
	Size           int
	Err            error
}

func (m *Uploader) Upload(_ context.Context, name, mimeType string, content []byte) (drive.UploadResult, error) {
	if m.Err != nil {
		return drive.UploadResult{}, m.Err
	}
	m.Name, m.MimeType, m.Size = name, mimeType, len(content)
	return drive.UploadResult{FileID: "file-1", WebViewLink: "https://drive.google.com/file/d/file-1/view"}, nil
}

type ResponseCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewResponseCache() *ResponseCache {
	return &ResponseCache{data: map[string][]byte{}}
}

func (m *ResponseCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	return data, ok, nil
}

func (m *ResponseCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

// Ensure mocks implement the store interfaces.
var (
	_ cache.SessionStoreInterface  = (*SessionStore)(nil)
	_ cache.LockStoreInterface     = (*LockStore)(nil)
	_ cache.TripCacheInterface     = (*TripCache)(nil)
	_ cache.OTPStoreInterface      = (*OTPStore)(nil)
	_ cache.ResponseCacheInterface = (*ResponseCache)(nil)
)
