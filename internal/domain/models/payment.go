package models

import "time"

type PaymentMethod string

const (
	PaymentPix    PaymentMethod = "pix"
	PaymentCredit PaymentMethod = "credit_card"
	PaymentDebit  PaymentMethod = "debit_card"
)

// Gateway statuses as reported by Mercado Pago.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusInProcess  = "in_process"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusApproved   = "approved"
	PaymentStatusRejected   = "rejected"
	PaymentStatusCancelled  = "cancelled"
	PaymentStatusRefunded   = "refunded"
)

// PaymentRequest is what is sent to the gateway.
type PaymentRequest struct {
	Amount            float64
	Description       string
	Method            PaymentMethod
	CardToken         string
	PaymentMethodID   string
	Installments      int
	PayerEmail        string
	ExternalReference string
	IdempotencyKey    string
}

// PixPayload is the deferred-settlement data shown to the payer.
type PixPayload struct {
	QRCode       string     `json:"qr_code"`
	QRCodeBase64 string     `json:"qr_code_base64"`
	TicketURL    string     `json:"ticket_url,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// PaymentResult is the gateway's answer.
type PaymentResult struct {
	ID           string      `json:"id"`
	Status       string      `json:"status"`
	StatusDetail string      `json:"status_detail"`
	Pix          *PixPayload `json:"pix,omitempty"`
}

// PaymentRecord is the locally stored view of a gateway payment.
type PaymentRecord struct {
	ID           string        `json:"id"`
	GatewayID    string        `json:"gateway_id"`
	BookingIDs   []string      `json:"booking_ids"`
	PayerEmail   string        `json:"payer_email"`
	Method       PaymentMethod `json:"method"`
	Amount       float64       `json:"amount"`
	Status       string        `json:"status"`
	StatusDetail string        `json:"status_detail"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func IsApproved(status string) bool {
	return status == PaymentStatusApproved
}

func IsFailedPayment(status string) bool {
	return status == PaymentStatusRejected || status == PaymentStatusCancelled
}

func IsPendingPayment(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusInProcess, PaymentStatusAuthorized:
		return true
	}
	return false
}
