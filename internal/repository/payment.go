package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tiendapos/credit-ledger/internal/domain"
)

const paymentColumns = `id, credit_id, store_id, amount, payment_date, method,
	cash_amount, transfer_amount, received_by, received_by_name, status,
	cancelled_at, cancelled_by, cancelled_by_name, cancellation_reason, created_at`

type PaymentRecordRepository struct {
	db *sql.DB
}

func NewPaymentRecordRepository(db *sql.DB) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

func (r *PaymentRecordRepository) Create(ctx context.Context, tx *sql.Tx, p *domain.PaymentRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payment_records (
			id, credit_id, store_id, amount, payment_date, method,
			cash_amount, transfer_amount, received_by, received_by_name,
			status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.CreditID, p.StoreID, p.Amount, p.PaymentDate, p.Method,
		p.CashAmount, p.TransferAmount, p.ReceivedBy, p.ReceivedByName,
		p.Status, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentRecordRepository) GetByID(ctx context.Context, storeID, id uuid.UUID) (*domain.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE id = $1 AND store_id = $2`, id, storeID,
	)
	p, err := scanPaymentRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

func (r *PaymentRecordRepository) ListByCredit(ctx context.Context, creditID uuid.UUID) ([]domain.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_records
		WHERE credit_id = $1 ORDER BY payment_date, created_at`, creditID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByCredit: %w", err)
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		p, err := scanPaymentRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByCredit: scan: %w", err)
		}
		records = append(records, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByCredit: rows: %w", err)
	}
	return records, nil
}

// LatestActive returns the most recent active payment for a credit, used
// to rebuild the last-payment snapshot after a cancellation. Returns
// ErrNotFound when no active payments remain.
func (r *PaymentRecordRepository) LatestActive(ctx context.Context, tx *sql.Tx, creditID uuid.UUID) (*domain.PaymentRecord, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_records
		WHERE credit_id = $1 AND status = $2
		ORDER BY payment_date DESC, created_at DESC LIMIT 1`,
		creditID, domain.PaymentRecordStatusActive,
	)
	p, err := scanPaymentRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("LatestActive: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("LatestActive: %w", err)
	}
	return p, nil
}

// SumActive returns the sum of active payment amounts for a credit; it
// must always equal the credit's paid_amount.
func (r *PaymentRecordRepository) SumActive(ctx context.Context, tx *sql.Tx, creditID uuid.UUID) (int64, error) {
	var sum int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payment_records
		WHERE credit_id = $1 AND status = $2`,
		creditID, domain.PaymentRecordStatusActive,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("SumActive: %w", err)
	}
	return sum, nil
}

func (r *PaymentRecordRepository) Cancel(ctx context.Context, tx *sql.Tx, id uuid.UUID, actor domain.Actor, reason string, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_records SET
			status = $1, cancelled_at = $2, cancelled_by = $3,
			cancelled_by_name = $4, cancellation_reason = $5
		WHERE id = $6 AND status = $7`,
		domain.PaymentRecordStatusCancelled, at, actor.ID, actor.Name, reason,
		id, domain.PaymentRecordStatusActive,
	)
	if err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Cancel: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Cancel: %w", domain.ErrPaymentCancelled)
	}
	return nil
}

func scanPaymentRecord(s scanner) (*domain.PaymentRecord, error) {
	var p domain.PaymentRecord
	var cancelledBy uuid.NullUUID

	err := s.Scan(
		&p.ID, &p.CreditID, &p.StoreID, &p.Amount, &p.PaymentDate, &p.Method,
		&p.CashAmount, &p.TransferAmount, &p.ReceivedBy, &p.ReceivedByName, &p.Status,
		&p.CancelledAt, &cancelledBy, &p.CancelledByName, &p.CancellationReason,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cancelledBy.Valid {
		p.CancelledBy = &cancelledBy.UUID
	}

	return &p, nil
}
