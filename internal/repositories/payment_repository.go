package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	intconfig "passagens/internal/config"
	"passagens/internal/domain"
	"passagens/internal/domain/models"
)

type PaymentRepository struct {
	DB *sql.DB
}

func (r PaymentRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const paymentColumns = `id, gateway_id, booking_ids, payer_email, method, amount, status, status_detail, created_at, updated_at`

func (r PaymentRepository) Create(ctx context.Context, p models.PaymentRecord) error {
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "database não conectado"}
	}
	ids, err := json.Marshal(p.BookingIDs)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.GatewayID, string(ids), p.PayerEmail, string(p.Method), p.Amount, p.Status, p.StatusDetail, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// UpdateStatus records the latest gateway status of a payment.
func (r PaymentRepository) UpdateStatus(ctx context.Context, id, status, detail string, at time.Time) error {
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "database não conectado"}
	}
	res, err := db.ExecContext(ctx, `UPDATE payments SET status = ?, status_detail = ?, updated_at = ? WHERE id = ?`, status, detail, at, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "pagamento"}
	}
	return nil
}

func (r PaymentRepository) GetByID(ctx context.Context, id string) (models.PaymentRecord, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ? LIMIT 1`, id)
}

func (r PaymentRepository) GetByGatewayID(ctx context.Context, gatewayID string) (models.PaymentRecord, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_id = ? LIMIT 1`, gatewayID)
}

// ListPending returns payments still waiting for the gateway, oldest first.
func (r PaymentRepository) ListPending(ctx context.Context, limit int) ([]models.PaymentRecord, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "database não conectado"}
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE status IN (?,?,?)
		ORDER BY created_at
		LIMIT ?`,
		models.PaymentStatusPending, models.PaymentStatusInProcess, models.PaymentStatusAuthorized, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PaymentRecord{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r PaymentRepository) getOne(ctx context.Context, q string, arg any) (models.PaymentRecord, error) {
	db := r.db()
	if db == nil {
		return models.PaymentRecord{}, domain.InternalError{Msg: "database não conectado"}
	}
	p, err := scanPayment(db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PaymentRecord{}, domain.NotFoundError{Resource: "pagamento", Err: err}
	}
	return p, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (models.PaymentRecord, error) {
	var (
		p      models.PaymentRecord
		ids    string
		method string
	)
	if err := row.Scan(&p.ID, &p.GatewayID, &ids, &p.PayerEmail, &method, &p.Amount, &p.Status, &p.StatusDetail, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.PaymentRecord{}, err
	}
	p.Method = models.PaymentMethod(method)
	if err := json.Unmarshal([]byte(ids), &p.BookingIDs); err != nil {
		return models.PaymentRecord{}, err
	}
	return p, nil
}
