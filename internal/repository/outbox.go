package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/tiendapos/credit-ledger/internal/domain"
)

const ledgerEventColumns = `id, kind, action, payload, status, attempts, last_attempt, created_at`

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create enqueues an event inside the transaction of the ledger mutation
// it describes, so the event commits if and only if the mutation does.
func (r *OutboxRepository) Create(ctx context.Context, tx *sql.Tx, event *domain.LedgerEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_events (id, kind, action, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Kind, event.Action, event.Payload,
		event.Status, event.Attempts, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]domain.LedgerEvent, error) {
	// FOR UPDATE SKIP LOCKED prevents multiple dispatchers from claiming the same event
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerEventColumns+` FROM ledger_events
		WHERE status = $1 ORDER BY created_at LIMIT $2 FOR UPDATE SKIP LOCKED`,
		domain.LedgerEventStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("GetPending: %w", err)
	}
	defer rows.Close()

	var events []domain.LedgerEvent
	for rows.Next() {
		e, err := scanLedgerEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("GetPending: scan: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetPending: rows: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LedgerEventStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ledger_events SET status = $1, attempts = attempts + 1, last_attempt = now()
		WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func scanLedgerEvent(s scanner) (*domain.LedgerEvent, error) {
	var e domain.LedgerEvent
	err := s.Scan(
		&e.ID, &e.Kind, &e.Action, &e.Payload,
		&e.Status, &e.Attempts, &e.LastAttempt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
