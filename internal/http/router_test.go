package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"passagens/internal/booking"
	intconfig "passagens/internal/config"
	"passagens/internal/domain"
	"passagens/internal/domain/models"
	"passagens/internal/http/middleware"
	"passagens/internal/mocks"
	"passagens/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   *gin.Engine
	sid      string
	token    string
	locks    *mocks.LockStore
	trips    *mocks.TripLookup
	gateway  *mocks.Gateway
	bookings *mocks.BookingStore
}

func newTestServer(t *testing.T, uploader services.FileUploader) *testServer {
	t.Helper()
	s := &testServer{
		sid:   uuid.NewString(),
		locks: mocks.NewLockStore(),
		trips: &mocks.TripLookup{
			Trips: []models.TripOption{
				{ID: "T1", OriginName: "Ouro Branco", DestinationName: "Mariana", Date: "2026-11-02", DepartureTime: "08:00", Fare: 50},
			},
			Seats: models.SeatMap{Capacity: 12},
		},
		gateway:  &mocks.Gateway{},
		bookings: mocks.NewBookingStore(),
	}
	directory := booking.NewDirectory([]models.Locality{
		{ID: 1, Name: "Ouro Branco"},
		{ID: 2, Name: "Mariana"},
	})
	bookingSvc := services.BookingService{Bookings: s.bookings}
	sessions := services.SessionService{
		Sessions:  mocks.NewSessionStore(),
		Locks:     s.locks,
		Directory: directory,
		Trips:     s.trips,
		TripCache: mocks.NewTripCache(),
		Bookings:  bookingSvc,
	}
	auth := services.AuthService{
		OTPs:      mocks.NewOTPStore(),
		Mailer:    &mocks.Mailer{},
		JWTSecret: []byte("router-test"),
		DevMode:   true,
	}
	docs := services.DocsService{Bookings: s.bookings}
	storage := services.StorageService{Docs: docs}
	if uploader != nil {
		storage.Uploader = uploader
	}

	s.router = NewRouter(RouterDeps{
		Env:       intconfig.Env{GinMode: gin.TestMode},
		Directory: directory,
		Sessions:  sessions,
		Bookings:  bookingSvc,
		Auth:      auth,
		Payments: services.PaymentService{
			Bookings: s.bookings,
			Payments: mocks.NewPaymentStore(),
			Gateway:  s.gateway,
		},
		Docs:      docs,
		Storage:   storage,
		Responses: mocks.NewResponseCache(),
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.SessionHeader, s.sid)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// reachSeat walks the session to a single outbound seat named Ana.
func (s *testServer) reachSeat(t *testing.T) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/session/search", `{"origin":"ouro branco","destination":"Mariana","date":"2026-11-02"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/api/session/trips", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/session/trips/select", `{"trip_id":"T1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/session/seats/4/toggle", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 4, decode(t, w)["focused_seat"])
	w = s.do(t, http.MethodPut, "/api/session/passenger", `{"seat":0,"field":"name","value":"Ana"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (s *testServer) login(t *testing.T) map[string]any {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/code", `{"email":"ana@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	code, _ := decode(t, w)["devCode"].(string)
	require.Len(t, code, 6)

	w = s.do(t, http.MethodPost, "/api/auth/verify", `{"email":"ana@example.com","code":"`+code+`","name":"Ana"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	s.token, _ = out["token"].(string)
	require.NotEmpty(t, s.token)
	return out
}

func TestHealthAndLocalities(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/localities", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["localities"], 2)

	w = s.do(t, http.MethodGet, "/api/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionIsAssignedWhenMissing(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	sid := w.Header().Get(middleware.SessionHeader)
	_, err := uuid.Parse(sid)
	require.NoError(t, err)
	session := decode(t, w)["session"].(map[string]any)
	assert.Equal(t, sid, session["id"])
	assert.Equal(t, string(booking.StageSearchForm), session["stage"])
}

func TestCheckoutLoginPaymentAndTicket(t *testing.T) {
	s := newTestServer(t, nil)
	s.reachSeat(t)

	w := s.do(t, http.MethodPost, "/api/session/confirm", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, services.NextLoginRequired, decode(t, w)["next"])

	verified := s.login(t)
	assert.Equal(t, services.NextProceedToPayment, verified["next"])
	created, _ := verified["bookings"].([]any)
	require.Len(t, created, 1)
	bookingID := created[0].(map[string]any)["id"].(string)

	w = s.do(t, http.MethodGet, "/api/bookings/"+bookingID+"/ticket", "")
	assert.Equal(t, http.StatusConflict, w.Code, "unpaid booking has no ticket")

	s.gateway.Result = models.PaymentResult{ID: "900", Status: models.PaymentStatusPending, Pix: &models.PixPayload{QRCode: "000201"}}
	body := `{"booking_ids":["` + bookingID + `"],"method":"pix"}`
	first := s.do(t, http.MethodPost, "/api/payments", body, middleware.IdempotencyHeader, "pay-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	replay := s.do(t, http.MethodPost, "/api/payments", body, middleware.IdempotencyHeader, "pay-1")
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Len(t, s.gateway.Requests(), 1)

	payment := decode(t, first)["payment"].(map[string]any)
	assert.EqualValues(t, 50, payment["amount"])

	s.gateway.Statuses = map[string]models.PaymentResult{"900": {ID: "900", Status: models.PaymentStatusApproved}}
	w = s.do(t, http.MethodPost, "/api/payments/webhook", `{"type":"payment","action":"payment.updated","data":{"id":"900"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	sessBookings := decode(t, w)["session"].(map[string]any)["bookings"].([]any)
	require.Len(t, sessBookings, 1)
	assert.Equal(t, true, sessBookings[0].(map[string]any)["paid"])

	w = s.do(t, http.MethodGet, "/api/bookings", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["bookings"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, true, list[0].(map[string]any)["paid"])

	w = s.do(t, http.MethodGet, "/api/bookings/"+bookingID+"/ticket", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "PASSAGEM_")
}

func TestVerifyCodeSurvivesBusySession(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/auth/code", `{"email":"ana@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	code, _ := decode(t, w)["devCode"].(string)
	body := `{"email":"ana@example.com","code":"` + code + `"}`

	s.locks.AlwaysBusy = true
	w = s.do(t, http.MethodPost, "/api/auth/verify", body)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	s.locks.AlwaysBusy = false
	w = s.do(t, http.MethodPost, "/api/auth/verify", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["token"])
}

func TestWebhookIgnoresOtherTopics(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/payments/webhook?topic=merchant_order&id=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ignored"])
}

func TestErrorStatusMapping(t *testing.T) {
	t.Run("anonymous bookings", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodGet, "/api/bookings", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "not_authenticated", decode(t, w)["code"])
	})

	t.Run("invalid search", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodPost, "/api/session/search", `{"origin":"Atlantis","destination":"Mariana","date":"2026-11-02"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("lookup failure", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodPost, "/api/session/search", `{"origin":"Ouro Branco","destination":"Mariana","date":"2026-11-02"}`)
		require.Equal(t, http.StatusOK, w.Code)
		s.trips.Err = domain.UpstreamError{Service: "reserva", Err: domain.ErrLookupFailure}
		w = s.do(t, http.MethodGet, "/api/session/trips", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("busy session", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.locks.AlwaysBusy = true
		w := s.do(t, http.MethodPost, "/api/session/back", "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejected card", func(t *testing.T) {
		s := newTestServer(t, nil)
		b := models.Booking{ID: "B1", Seats: []int{1}, Price: 50, PayerEmail: "ana@example.com"}
		require.NoError(t, s.bookings.CreateMany(t.Context(), []models.Booking{b}))
		s.login(t)
		s.gateway.Result = models.PaymentResult{ID: "901", Status: models.PaymentStatusRejected, StatusDetail: "cc_rejected_other_reason"}

		w := s.do(t, http.MethodPost, "/api/payments", `{"booking_ids":["B1"],"method":"credit_card","payment_method_id":"visa","card_token":"tok"}`)
		assert.Equal(t, http.StatusPaymentRequired, w.Code, w.Body.String())
		assert.Equal(t, "payment_failure", decode(t, w)["code"])
	})

	t.Run("storage disabled", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.login(t)
		w := s.do(t, http.MethodPost, "/api/bookings/B1/ticket/upload", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestUploadTicket(t *testing.T) {
	up := &mocks.Uploader{}
	s := newTestServer(t, up)
	b := models.Booking{ID: "B1", Seats: []int{1}, Price: 50, PayerEmail: "ana@example.com"}
	b.MarkPaid()
	require.NoError(t, s.bookings.CreateMany(t.Context(), []models.Booking{b}))
	s.login(t)

	w := s.do(t, http.MethodPost, "/api/bookings/B1/ticket/upload", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "file-1", decode(t, w)["file_id"])
	assert.Equal(t, "application/pdf", up.MimeType)
}
