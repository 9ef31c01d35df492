package services

import (
	"context"
	"time"

	"passagens/internal/domain/models"
	"passagens/internal/integrations/drive"
)

// BookingStore persists committed bookings.
type BookingStore interface {
	CreateMany(ctx context.Context, bookings []models.Booking) error
	GetByID(ctx context.Context, id string) (models.Booking, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Booking, error)
	ListByPayer(ctx context.Context, email string) ([]models.Booking, error)
	MarkPaid(ctx context.Context, ids []string) (int64, error)
}

// PaymentStore persists payment attempts.
type PaymentStore interface {
	Create(ctx context.Context, p models.PaymentRecord) error
	UpdateStatus(ctx context.Context, id, status, detail string, at time.Time) error
	GetByID(ctx context.Context, id string) (models.PaymentRecord, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (models.PaymentRecord, error)
	ListPending(ctx context.Context, limit int) ([]models.PaymentRecord, error)
}

// TripLookup is the reservation system as seen by the booking flow.
type TripLookup interface {
	SearchTrips(ctx context.Context, crit models.SearchCriteria) ([]models.TripOption, error)
	SeatMap(ctx context.Context, tripID string) (models.SeatMap, error)
}

// PaymentGateway creates and queries payments.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResult, error)
	GetPayment(ctx context.Context, id string) (models.PaymentResult, error)
}

// FileUploader stores generated documents.
type FileUploader interface {
	Upload(ctx context.Context, name, mimeType string, content []byte) (drive.UploadResult, error)
}
