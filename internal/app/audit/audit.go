// Package audit persists the HTTP exchanges read from the exchange queue.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Exchange is one supplier request and its response as published by the
// HTTP client.
type Exchange struct {
	MessageID    string `validate:"required"`
	MessageType  string `validate:"required"`
	SupplierCode string `validate:"required"`
	TraceID      string
	TenantID     string
	TenantName   string
	OrderID      string
	BookingRef   string
	SentAt       *time.Time
	Request      string
	Response     string
}

// Store saves exchanges. Saving the same message id twice is a no-op.
type Store interface {
	Save(ctx context.Context, e *Exchange) error
}

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	message_id    TEXT PRIMARY KEY,
	message_type  TEXT NOT NULL,
	supplier_code TEXT NOT NULL,
	trace_id      TEXT,
	tenant_id     TEXT,
	tenant_name   TEXT,
	order_id      TEXT,
	booking_ref   TEXT,
	sent_at       TIMESTAMPTZ,
	request       TEXT NOT NULL,
	response      TEXT NOT NULL,
	received_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps exchanges in the exchanges table.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

// Migrate creates the exchanges table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create exchanges table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, e *Exchange) error {
	query := `
		INSERT INTO exchanges (message_id, message_type, supplier_code, trace_id, tenant_id,
			tenant_name, order_id, booking_ref, sent_at, request, response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (message_id) DO NOTHING
	`
	_, err := s.DB.ExecContext(ctx, query,
		e.MessageID, e.MessageType, e.SupplierCode,
		nullable(e.TraceID), nullable(e.TenantID), nullable(e.TenantName),
		nullable(e.OrderID), nullable(e.BookingRef),
		e.SentAt, e.Request, e.Response)
	if err != nil {
		return fmt.Errorf("failed to insert exchange: %w", err)
	}
	return nil
}

// Get returns the stored exchange with the given message id.
func (s *PostgresStore) Get(ctx context.Context, messageID string) (*Exchange, error) {
	query := `
		SELECT message_id, message_type, supplier_code, trace_id, tenant_id,
			tenant_name, order_id, booking_ref, sent_at, request, response
		FROM exchanges
		WHERE message_id = $1
	`
	var e Exchange
	var traceID, tenantID, tenantName, orderID, bookingRef sql.NullString
	var sentAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, messageID).Scan(
		&e.MessageID, &e.MessageType, &e.SupplierCode,
		&traceID, &tenantID, &tenantName, &orderID, &bookingRef,
		&sentAt, &e.Request, &e.Response)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange: %w", err)
	}
	e.TraceID, e.TenantID, e.TenantName = traceID.String, tenantID.String, tenantName.String
	e.OrderID, e.BookingRef = orderID.String, bookingRef.String
	if sentAt.Valid {
		e.SentAt = &sentAt.Time
	}
	return &e, nil
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
