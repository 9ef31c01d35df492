package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
)

func TestCreatePixPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "idem-1", r.Header.Get("X-Idempotency-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pix", body["payment_method_id"])
		assert.Equal(t, 180.0, body["transaction_amount"])
		expires, err := time.Parse(time.RFC3339, body["date_of_expiration"].(string))
		require.NoError(t, err)
		assert.True(t, expires.Equal(time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)))
		assert.Equal(t, "ana@example.com", body["payer"].(map[string]any)["email"])
		assert.Nil(t, body["token"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":123,"status":"pending","status_detail":"pending_waiting_transfer","date_of_expiration":"2026-03-01T10:30:00.000-03:00","point_of_interaction":{"transaction_data":{"qr_code":"000201...","qr_code_base64":"iVBOR..."}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	brt := time.FixedZone("BRT", -3*3600)
	c.Now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, brt) }

	res, err := c.CreatePayment(context.Background(), models.PaymentRequest{
		Amount:         180,
		Method:         models.PaymentPix,
		PayerEmail:     "ana@example.com",
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "123", res.ID)
	assert.Equal(t, models.PaymentStatusPending, res.Status)
	require.NotNil(t, res.Pix)
	assert.Equal(t, "000201...", res.Pix.QRCode)
	require.NotNil(t, res.Pix.ExpiresAt)
}

func TestCreateCardPaymentSendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "card-tok", body["token"])
		assert.Equal(t, "visa", body["payment_method_id"])
		assert.Equal(t, 1.0, body["installments"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":9,"status":"approved","status_detail":"accredited"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, "test-token").CreatePayment(context.Background(), models.PaymentRequest{
		Amount:          50,
		Method:          models.PaymentCredit,
		PaymentMethodID: "visa",
		CardToken:       "card-tok",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusApproved, res.Status)
	assert.Nil(t, res.Pix)
}

func TestGatewayErrorIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid card token","error":"bad_request","status":400}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "test-token").GetPayment(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
}

func TestGetPaymentReadsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/77", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":77,"status":"approved","status_detail":"accredited"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, "test-token").GetPayment(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, "77", res.ID)
	assert.Equal(t, models.PaymentStatusApproved, res.Status)
}

func TestGetPaymentRejectsNonNumericID(t *testing.T) {
	_, err := New("http://127.0.0.1:1", "test-token").GetPayment(context.Background(), "abc")
	assert.True(t, domain.IsUpstream(err))
}

func TestMissingTokenFailsFast(t *testing.T) {
	_, err := New("http://127.0.0.1:1", "").GetPayment(context.Background(), "1")
	assert.True(t, domain.IsUpstream(err))
}
