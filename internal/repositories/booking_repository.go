package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	intconfig "passagens/internal/config"
	intdb "passagens/internal/db"
	"passagens/internal/domain"
	"passagens/internal/domain/models"
)

type BookingRepository struct {
	DB *sql.DB
}

func (r BookingRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const bookingColumns = `id, leg, trip_id, origin_name, destination_name, line_name, trip_date,
	departure_time, arrival_time, fare, vehicle_type_id, price, paid, payer_email, created_at`

// CreateMany stores the bookings of one checkout in a single transaction.
func (r BookingRepository) CreateMany(ctx context.Context, bookings []models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "database não conectado"}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, b := range bookings {
		s := b.Schedule
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (`+bookingColumns+`)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			b.ID, string(b.Leg), s.ID, s.OriginName, s.DestinationName, s.LineName, s.Date,
			s.DepartureTime, s.ArrivalTime, s.Fare, s.VehicleTypeID, b.Price, b.Paid, b.PayerEmail, b.Date,
		); err != nil {
			return fmt.Errorf("insert booking %s: %w", b.ID, err)
		}

		for pos, seat := range b.Seats {
			p := b.Passengers[seat]
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO booking_passengers (booking_id, seat, position, name, document, phone)
				VALUES (?,?,?,?,?,?)`,
				b.ID, seat, pos, strings.TrimSpace(p.Name), intdb.NullIfEmpty(p.Document), intdb.NullIfEmpty(p.Phone),
			); err != nil {
				return fmt.Errorf("insert passenger seat %d: %w", seat, err)
			}
		}
	}

	return tx.Commit()
}

func (r BookingRepository) GetByID(ctx context.Context, id string) (models.Booking, error) {
	list, err := r.ListByIDs(ctx, []string{id})
	if err != nil {
		return models.Booking{}, err
	}
	if len(list) == 0 {
		return models.Booking{}, domain.NotFoundError{Resource: "reserva", Err: sql.ErrNoRows}
	}
	return list[0], nil
}

// ListByIDs returns the bookings found among ids, in creation order.
func (r BookingRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Booking, error) {
	if len(ids) == 0 {
		return []models.Booking{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id IN (`+placeholders(len(ids))+`) ORDER BY created_at, leg`, args...)
}

// ListByPayer returns every booking bought by email, newest first.
func (r BookingRepository) ListByPayer(ctx context.Context, email string) ([]models.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payer_email = ? ORDER BY created_at DESC, leg`, email)
}

// MarkPaid flips unpaid bookings to paid. Paid bookings are never reset.
func (r BookingRepository) MarkPaid(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := r.db()
	if db == nil {
		return 0, domain.InternalError{Msg: "database não conectado"}
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := db.ExecContext(ctx, `UPDATE bookings SET paid = 1 WHERE paid = 0 AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r BookingRepository) query(ctx context.Context, q string, args ...any) ([]models.Booking, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "database não conectado"}
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Booking{}
	index := map[string]int{}
	for rows.Next() {
		var (
			b   models.Booking
			leg string
		)
		if err := rows.Scan(
			&b.ID, &leg, &b.Schedule.ID, &b.Schedule.OriginName, &b.Schedule.DestinationName,
			&b.Schedule.LineName, &b.Schedule.Date, &b.Schedule.DepartureTime, &b.Schedule.ArrivalTime,
			&b.Schedule.Fare, &b.Schedule.VehicleTypeID, &b.Price, &b.Paid, &b.PayerEmail, &b.Date,
		); err != nil {
			return nil, err
		}
		b.Leg = models.Leg(leg)
		b.Seats = []int{}
		b.Passengers = map[int]models.PassengerInfo{}
		index[b.ID] = len(out)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	if err := r.loadPassengers(ctx, db, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (r BookingRepository) loadPassengers(ctx context.Context, db *sql.DB, bookings []models.Booking, index map[string]int) error {
	args := make([]any, len(bookings))
	for i, b := range bookings {
		args[i] = b.ID
	}
	rows, err := db.QueryContext(ctx, `
		SELECT booking_id, seat, name, COALESCE(document,''), COALESCE(phone,'')
		FROM booking_passengers
		WHERE booking_id IN (`+placeholders(len(args))+`)
		ORDER BY booking_id, position`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bookingID string
			seat      int
			p         models.PassengerInfo
		)
		if err := rows.Scan(&bookingID, &seat, &p.Name, &p.Document, &p.Phone); err != nil {
			return err
		}
		i, ok := index[bookingID]
		if !ok {
			continue
		}
		bookings[i].Seats = append(bookings[i].Seats, seat)
		bookings[i].Passengers[seat] = p
	}
	return rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

