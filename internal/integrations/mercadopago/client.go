// Package mercadopago adapts the Mercado Pago SDK to the payment gateway port.
package mercadopago

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
)

const serviceName = "mercadopago"

// pixExpiry is how long a pix QR code stays payable.
const pixExpiry = 30 * time.Minute

type Client struct {
	AccessToken string
	Now         func() time.Time

	payments payment.Client
	initErr  error
}

// New builds a client against baseURL. An empty baseURL keeps the SDK's
// production endpoint.
func New(baseURL, accessToken string) *Client {
	c := &Client{AccessToken: accessToken, Now: time.Now}
	req := &requester{
		http: &http.Client{Timeout: 15 * time.Second},
	}
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/"))
		if err != nil {
			c.initErr = err
			return c
		}
		req.base = u
	}
	cfg, err := config.New(accessToken, config.WithRequester(req))
	if err != nil {
		c.initErr = err
		return c
	}
	c.payments = payment.NewClient(cfg)
	return c
}

// CreatePayment submits a payment. Pix payments come back pending with the
// QR code to show; card payments usually settle immediately.
func (c *Client) CreatePayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResult, error) {
	if err := c.ready(); err != nil {
		return models.PaymentResult{}, err
	}
	body := payment.Request{
		TransactionAmount: req.Amount,
		Description:       req.Description,
		PaymentMethodID:   req.PaymentMethodID,
		ExternalReference: req.ExternalReference,
		Payer:             &payment.PayerRequest{Email: req.PayerEmail},
	}
	if req.Method == models.PaymentPix {
		expires := c.Now().Add(pixExpiry)
		body.PaymentMethodID = "pix"
		body.DateOfExpiration = &expires
	} else {
		body.Token = req.CardToken
		body.Installments = req.Installments
		if body.Installments <= 0 {
			body.Installments = 1
		}
	}

	if req.IdempotencyKey != "" {
		ctx = context.WithValue(ctx, idempotencyKey{}, req.IdempotencyKey)
	}
	resp, err := c.payments.Create(ctx, body)
	if err != nil {
		return models.PaymentResult{}, domain.UpstreamError{Service: serviceName, Err: err}
	}
	return toResult(resp), nil
}

// GetPayment fetches the current state of a payment.
func (c *Client) GetPayment(ctx context.Context, id string) (models.PaymentResult, error) {
	if err := c.ready(); err != nil {
		return models.PaymentResult{}, err
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return models.PaymentResult{}, domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("invalid payment id %q", id)}
	}
	resp, err := c.payments.Get(ctx, n)
	if err != nil {
		return models.PaymentResult{}, domain.UpstreamError{Service: serviceName, Err: err}
	}
	return toResult(resp), nil
}

func (c *Client) ready() error {
	if c.AccessToken == "" {
		return domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("access token not configured")}
	}
	if c.initErr != nil {
		return domain.UpstreamError{Service: serviceName, Err: c.initErr}
	}
	return nil
}

func toResult(r *payment.Response) models.PaymentResult {
	out := models.PaymentResult{
		ID:           strconv.Itoa(r.ID),
		Status:       r.Status,
		StatusDetail: r.StatusDetail,
	}
	td := r.PointOfInteraction.TransactionData
	if td.QRCode != "" {
		pix := &models.PixPayload{
			QRCode:       td.QRCode,
			QRCodeBase64: td.QRCodeBase64,
			TicketURL:    td.TicketURL,
		}
		if r.DateOfExpiration != nil && !r.DateOfExpiration.IsZero() {
			t := *r.DateOfExpiration
			pix.ExpiresAt = &t
		}
		out.Pix = pix
	}
	return out
}
