package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
	"passagens/internal/metrics"
	"passagens/internal/utils"

	"github.com/google/uuid"
)

const reconcileBatch = 100

// PaymentService charges bookings through the gateway and keeps the paid
// flag in step with the gateway's verdict.
type PaymentService struct {
	Bookings  BookingStore
	Payments  PaymentStore
	Gateway   PaymentGateway
	RequestID string
	Now       func() time.Time
	NewID     func() string
}

// PayInput is one payment attempt for a set of bookings.
type PayInput struct {
	BookingIDs      []string
	Method          models.PaymentMethod
	PaymentMethodID string
	CardToken       string
	Installments    int
}

// PayResult is the gateway's answer to a payment attempt.
type PayResult struct {
	Payment  models.PaymentRecord `json:"payment"`
	Pix      *models.PixPayload   `json:"pix,omitempty"`
	Bookings []models.Booking     `json:"bookings"`
}

// Pay charges the sum of the bookings' prices. An approved payment marks
// the bookings paid at once. A rejected or cancelled one returns the result
// together with an error matching domain.ErrPaymentFailure; the bookings stay
// unpaid and can be retried.
func (s PaymentService) Pay(ctx context.Context, identity *models.Identity, in PayInput) (PayResult, error) {
	if identity == nil || identity.Email == "" {
		return PayResult{}, domain.DomainError{Code: "not_authenticated", Err: domain.ErrNotAuthenticated}
	}
	if err := validatePayInput(in); err != nil {
		utils.LogEvent(s.RequestID, "payment", "validate", err.Error())
		return PayResult{}, err
	}

	ids := uniqueIDs(in.BookingIDs)
	bookings, err := s.ownedUnpaid(ctx, identity.Email, ids)
	if err != nil {
		return PayResult{}, err
	}

	amount := 0.0
	for _, b := range bookings {
		amount += b.Price
	}
	amount = math.Round(amount*100) / 100

	now := s.now()
	record := models.PaymentRecord{
		ID:         s.newID(),
		BookingIDs: ids,
		PayerEmail: identity.Email,
		Method:     in.Method,
		Amount:     amount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	res, err := s.Gateway.CreatePayment(ctx, models.PaymentRequest{
		Amount:            amount,
		Description:       describe(bookings),
		Method:            in.Method,
		CardToken:         in.CardToken,
		PaymentMethodID:   in.PaymentMethodID,
		Installments:      in.Installments,
		PayerEmail:        identity.Email,
		ExternalReference: record.ID,
		IdempotencyKey:    record.ID,
	})
	if err != nil {
		metrics.Payments.WithLabelValues(string(in.Method), "error").Inc()
		utils.LogError(s.RequestID, "payment", "create", err)
		return PayResult{}, err
	}

	record.GatewayID = res.ID
	record.Status = res.Status
	record.StatusDetail = res.StatusDetail

	// Bookings are marked before the approval is recorded. If that fails the
	// record is kept as in process so the reconciler settles it later.
	paid := false
	if models.IsApproved(res.Status) {
		if err := s.markPaid(ctx, ids); err != nil {
			record.Status = models.PaymentStatusInProcess
		} else {
			paid = true
		}
	}
	if err := s.Payments.Create(ctx, record); err != nil {
		utils.LogError(s.RequestID, "payment", "store", err)
		return PayResult{}, domain.InternalError{Msg: "falha ao registrar pagamento", Err: err}
	}
	metrics.Payments.WithLabelValues(string(in.Method), res.Status).Inc()
	utils.LogEvent(s.RequestID, "payment", "create", fmt.Sprintf("pagamento %s status=%s valor=%s", record.ID, record.Status, utils.FormatBRL(amount)))

	out := PayResult{Payment: record, Pix: res.Pix, Bookings: bookings}
	if paid {
		for i := range out.Bookings {
			out.Bookings[i].MarkPaid()
		}
	}
	if models.IsFailedPayment(res.Status) {
		return out, domain.DomainError{
			Code: "payment_failure",
			Err:  fmt.Errorf("%w: %s", domain.ErrPaymentFailure, safeDetail(res.StatusDetail, res.Status)),
		}
	}
	return out, nil
}

// Status returns the payment after refreshing it from the gateway.
func (s PaymentService) Status(ctx context.Context, identity *models.Identity, id string) (models.PaymentRecord, error) {
	if identity == nil || identity.Email == "" {
		return models.PaymentRecord{}, domain.DomainError{Code: "not_authenticated", Err: domain.ErrNotAuthenticated}
	}
	rec, err := s.Payments.GetByID(ctx, id)
	if err != nil {
		return models.PaymentRecord{}, err
	}
	if rec.PayerEmail != identity.Email {
		return models.PaymentRecord{}, domain.NotFoundError{Resource: "pagamento"}
	}
	return s.sync(ctx, rec)
}

// HandleNotification refreshes the payment the gateway notified about.
// Unknown gateway ids are ignored.
func (s PaymentService) HandleNotification(ctx context.Context, gatewayID string) error {
	gatewayID = strings.TrimSpace(gatewayID)
	if gatewayID == "" {
		return domain.ValidationError{Field: "data.id", Msg: "obrigatório"}
	}
	rec, err := s.Payments.GetByGatewayID(ctx, gatewayID)
	if err != nil {
		if domain.IsNotFound(err) {
			utils.LogEvent(s.RequestID, "payment", "webhook", "pagamento desconhecido "+gatewayID)
			return nil
		}
		return err
	}
	_, err = s.sync(ctx, rec)
	return err
}

// Reconcile refreshes pending payments and returns how many changed status.
func (s PaymentService) Reconcile(ctx context.Context) (int, error) {
	pending, err := s.Payments.ListPending(ctx, reconcileBatch)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, rec := range pending {
		updated, err := s.sync(ctx, rec)
		if err != nil {
			utils.LogError(s.RequestID, "payment", "reconcile", err)
			continue
		}
		if updated.Status != rec.Status {
			changed++
		}
	}
	return changed, nil
}

func (s PaymentService) sync(ctx context.Context, rec models.PaymentRecord) (models.PaymentRecord, error) {
	if !models.IsPendingPayment(rec.Status) || rec.GatewayID == "" {
		return rec, nil
	}
	res, err := s.Gateway.GetPayment(ctx, rec.GatewayID)
	if err != nil {
		return rec, err
	}
	if res.Status == rec.Status && res.StatusDetail == rec.StatusDetail {
		return rec, nil
	}

	// The record only leaves pending once its bookings are paid, so a failed
	// mark is retried on the next sync.
	if models.IsApproved(res.Status) {
		if err := s.markPaid(ctx, rec.BookingIDs); err != nil {
			return rec, err
		}
	}
	now := s.now()
	if err := s.Payments.UpdateStatus(ctx, rec.ID, res.Status, res.StatusDetail, now); err != nil {
		return rec, err
	}
	metrics.Payments.WithLabelValues(string(rec.Method), res.Status).Inc()
	utils.LogEvent(s.RequestID, "payment", "sync", fmt.Sprintf("pagamento %s %s -> %s", rec.ID, rec.Status, res.Status))

	rec.Status = res.Status
	rec.StatusDetail = res.StatusDetail
	rec.UpdatedAt = now
	return rec, nil
}

func (s PaymentService) ownedUnpaid(ctx context.Context, email string, ids []string) ([]models.Booking, error) {
	bookings, err := s.Bookings.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Booking, len(bookings))
	for _, b := range bookings {
		byID[b.ID] = b
	}

	out := make([]models.Booking, 0, len(ids))
	for _, id := range ids {
		b, ok := byID[id]
		if !ok || b.PayerEmail != email {
			return nil, domain.NotFoundError{Resource: "reserva " + id}
		}
		if b.Paid {
			return nil, domain.ConflictError{Resource: "reserva " + id, Msg: "já está paga"}
		}
		out = append(out, b)
	}
	return out, nil
}

func (s PaymentService) markPaid(ctx context.Context, ids []string) error {
	if _, err := s.Bookings.MarkPaid(ctx, ids); err != nil {
		utils.LogError(s.RequestID, "payment", "mark_paid", err)
		return domain.InternalError{Msg: "falha ao marcar reservas como pagas", Err: err}
	}
	return nil
}

func (s PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utils.NowUTC()
}

func (s PaymentService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func validatePayInput(in PayInput) error {
	if len(uniqueIDs(in.BookingIDs)) == 0 {
		return domain.ValidationError{Field: "booking_ids", Msg: "informe ao menos uma reserva"}
	}
	switch in.Method {
	case models.PaymentPix:
	case models.PaymentCredit, models.PaymentDebit:
		if strings.TrimSpace(in.CardToken) == "" {
			return domain.ValidationError{Field: "card_token", Msg: "obrigatório para pagamento com cartão"}
		}
		if strings.TrimSpace(in.PaymentMethodID) == "" {
			return domain.ValidationError{Field: "payment_method_id", Msg: "obrigatório para pagamento com cartão"}
		}
		if in.Installments < 0 {
			return domain.ValidationError{Field: "installments", Msg: "inválido"}
		}
	default:
		return domain.ValidationError{Field: "method", Msg: fmt.Sprintf("forma de pagamento %q não suportada", in.Method)}
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func describe(bookings []models.Booking) string {
	parts := make([]string, 0, len(bookings))
	for _, b := range bookings {
		parts = append(parts, fmt.Sprintf("%s-%s %s", b.Schedule.OriginName, b.Schedule.DestinationName, b.Schedule.Date))
	}
	return "Passagens " + strings.Join(parts, ", ")
}

func safeDetail(detail, fallback string) string {
	if strings.TrimSpace(detail) == "" {
		return fallback
	}
	return detail
}
