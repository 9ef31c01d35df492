package db

import (
	"context"
	"fmt"

	"passagens/internal/utils"
)

type schemaDB interface {
	QueryRower
	Execer
}

var tables = []struct {
	name string
	ddl  string
}{
	{"bookings", `
		CREATE TABLE IF NOT EXISTS bookings (
			id               VARCHAR(36)   NOT NULL PRIMARY KEY,
			leg              VARCHAR(16)   NOT NULL,
			trip_id          VARCHAR(64)   NOT NULL,
			origin_name      VARCHAR(128)  NOT NULL,
			destination_name VARCHAR(128)  NOT NULL,
			line_name        VARCHAR(128)  NOT NULL DEFAULT '',
			trip_date        VARCHAR(10)   NOT NULL,
			departure_time   VARCHAR(8)    NOT NULL DEFAULT '',
			arrival_time     VARCHAR(8)    NOT NULL DEFAULT '',
			fare             DECIMAL(10,2) NOT NULL,
			vehicle_type_id  INT           NOT NULL DEFAULT 0,
			price            DECIMAL(10,2) NOT NULL,
			paid             TINYINT(1)    NOT NULL DEFAULT 0,
			payer_email      VARCHAR(255)  NOT NULL,
			created_at       DATETIME      NOT NULL,
			INDEX idx_bookings_payer (payer_email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"booking_passengers", `
		CREATE TABLE IF NOT EXISTS booking_passengers (
			booking_id VARCHAR(36)  NOT NULL,
			seat       INT          NOT NULL,
			position   INT          NOT NULL,
			name       VARCHAR(255) NOT NULL,
			document   VARCHAR(64)  NULL,
			phone      VARCHAR(32)  NULL,
			PRIMARY KEY (booking_id, seat)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"payments", `
		CREATE TABLE IF NOT EXISTS payments (
			id            VARCHAR(36)   NOT NULL PRIMARY KEY,
			gateway_id    VARCHAR(64)   NOT NULL,
			booking_ids   TEXT          NOT NULL,
			payer_email   VARCHAR(255)  NOT NULL,
			method        VARCHAR(32)   NOT NULL,
			amount        DECIMAL(10,2) NOT NULL,
			status        VARCHAR(32)   NOT NULL,
			created_at    DATETIME      NOT NULL,
			updated_at    DATETIME      NOT NULL,
			INDEX idx_payments_status (status),
			INDEX idx_payments_gateway (gateway_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

// EnsureSchema creates missing tables and columns.
func EnsureSchema(ctx context.Context, db schemaDB) error {
	for _, t := range tables {
		if HasTable(ctx, db, t.name) {
			continue
		}
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		utils.LogEvent("", "db", "create_table", t.name)
	}

	// status_detail arrived after the first payments release
	if !HasColumn(ctx, db, "payments", "status_detail") {
		if _, err := db.ExecContext(ctx, `ALTER TABLE payments ADD COLUMN status_detail VARCHAR(64) NOT NULL DEFAULT '' AFTER status`); err != nil {
			return fmt.Errorf("add payments.status_detail: %w", err)
		}
		utils.LogEvent("", "db", "add_column", "payments.status_detail")
	}
	return nil
}
