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

const creditColumns = `id, store_id, sale_id, client_id, client_name, invoice_number,
	total_amount, paid_amount, pending_amount, status, due_date,
	last_payment_amount, last_payment_date, last_payment_by, last_payment_by_name,
	cancelled_at, cancelled_by, cancelled_by_name, cancellation_reason,
	version, created_at, updated_at`

type CreditRepository struct {
	db *sql.DB
}

func NewCreditRepository(db *sql.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) Create(ctx context.Context, tx *sql.Tx, credit *domain.Credit) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO credits (
			id, store_id, sale_id, client_id, client_name, invoice_number,
			total_amount, paid_amount, pending_amount, status, due_date,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		credit.ID, credit.StoreID, credit.SaleID, credit.ClientID, credit.ClientName,
		credit.InvoiceNumber, credit.TotalAmount, credit.PaidAmount, credit.PendingAmount,
		credit.Status, credit.DueDate, credit.Version, credit.CreatedAt, credit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *CreditRepository) GetByID(ctx context.Context, storeID, id uuid.UUID) (*domain.Credit, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+creditColumns+` FROM credits WHERE id = $1 AND store_id = $2`, id, storeID,
	)
	c, err := scanCredit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

func (r *CreditRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, storeID, id uuid.UUID) (*domain.Credit, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+creditColumns+` FROM credits WHERE id = $1 AND store_id = $2 FOR UPDATE`, id, storeID,
	)
	c, err := scanCredit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return c, nil
}

func (r *CreditRepository) ListByClient(ctx context.Context, storeID, clientID uuid.UUID) ([]domain.Credit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+creditColumns+` FROM credits
		WHERE store_id = $1 AND client_id = $2 ORDER BY created_at`,
		storeID, clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByClient: %w", err)
	}
	defer rows.Close()

	var credits []domain.Credit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByClient: scan: %w", err)
		}
		credits = append(credits, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByClient: rows: %w", err)
	}
	return credits, nil
}

// UpdateAmounts writes the recomputed amounts, derived status and
// last-payment snapshot as one atomic, version-guarded statement.
func (r *CreditRepository) UpdateAmounts(ctx context.Context, tx *sql.Tx, credit *domain.Credit, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE credits SET
			paid_amount = $1, pending_amount = $2, status = $3,
			last_payment_amount = $4, last_payment_date = $5,
			last_payment_by = $6, last_payment_by_name = $7,
			version = $8, updated_at = now()
		WHERE id = $9 AND version = $10`,
		credit.PaidAmount, credit.PendingAmount, credit.Status,
		credit.LastPaymentAmount, credit.LastPaymentDate,
		credit.LastPaymentBy, credit.LastPaymentByName,
		newVersion, credit.ID, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateAmounts: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateAmounts: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateAmounts: %w", domain.ErrVersionConflict)
	}
	return nil
}

// Cancel freezes the credit's amounts and stamps the cancellation audit
// fields. Amounts are intentionally left untouched.
func (r *CreditRepository) Cancel(ctx context.Context, tx *sql.Tx, id uuid.UUID, actor domain.Actor, reason string, at time.Time, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE credits SET
			status = $1, cancelled_at = $2, cancelled_by = $3,
			cancelled_by_name = $4, cancellation_reason = $5,
			version = $6, updated_at = now()
		WHERE id = $7 AND version = $8`,
		domain.CreditStatusCancelled, at, actor.ID, actor.Name, reason,
		newVersion, id, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Cancel: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Cancel: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanCredit(s scanner) (*domain.Credit, error) {
	var c domain.Credit
	var saleID, lastPaymentBy, cancelledBy uuid.NullUUID

	err := s.Scan(
		&c.ID, &c.StoreID, &saleID, &c.ClientID, &c.ClientName, &c.InvoiceNumber,
		&c.TotalAmount, &c.PaidAmount, &c.PendingAmount, &c.Status, &c.DueDate,
		&c.LastPaymentAmount, &c.LastPaymentDate, &lastPaymentBy, &c.LastPaymentByName,
		&c.CancelledAt, &cancelledBy, &c.CancelledByName, &c.CancellationReason,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if saleID.Valid {
		c.SaleID = &saleID.UUID
	}
	if lastPaymentBy.Valid {
		c.LastPaymentBy = &lastPaymentBy.UUID
	}
	if cancelledBy.Valid {
		c.CancelledBy = &cancelledBy.UUID
	}

	return &c, nil
}
