package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tiendapos/credit-ledger/internal/domain"
	"github.com/tiendapos/credit-ledger/internal/logging"
)

// CancelCredit marks a credit as cancelled and freezes its amounts at
// their current values. Associated payment records stay active: the
// money was received, cancelling the credit only means no further
// collection will be pursued.
func (s *Service) CancelCredit(ctx context.Context, storeID, creditID uuid.UUID, actor domain.Actor, reason string) (*domain.Credit, error) {
	log := logging.FromContext(ctx)

	if reason == "" {
		return nil, fmt.Errorf("CancelCredit: %w", domain.ErrEmptyReason)
	}

	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CancelCredit: begin tx: %w", mapStoreErr(err))
	}
	defer tx.Rollback()

	credit, err := s.credits.GetForUpdate(ctx, tx, storeID, creditID)
	if err != nil {
		return nil, fmt.Errorf("CancelCredit: %w", mapStoreErr(err))
	}

	if credit.IsCancelled() {
		return nil, fmt.Errorf("CancelCredit: %w", domain.ErrCreditCancelled)
	}

	now := time.Now().UTC()
	if err := s.credits.Cancel(ctx, tx, credit.ID, actor, reason, now, credit.Version+1); err != nil {
		return nil, fmt.Errorf("CancelCredit: %w", mapStoreErr(err))
	}

	prevStatus := credit.Status
	credit.Status = domain.CreditStatusCancelled
	credit.CancelledAt = &now
	credit.CancelledBy = &actor.ID
	credit.CancelledByName = &actor.Name
	credit.CancellationReason = &reason
	credit.Version++

	event, err := newAuditEvent(domain.ActionCreditCancelled, actor, credit, nil, &prevStatus, now)
	if err != nil {
		return nil, fmt.Errorf("CancelCredit: %w", err)
	}
	if err := s.outbox.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("CancelCredit: enqueue audit: %w", mapStoreErr(err))
	}

	// The sales service mirrors the credit's status on the sale; delivery
	// is best-effort and decoupled from this transaction's outcome only
	// in time, not in content.
	if credit.SaleID != nil {
		mirror, err := newSaleMirrorEvent(credit, now)
		if err != nil {
			return nil, fmt.Errorf("CancelCredit: %w", err)
		}
		if err := s.outbox.Create(ctx, tx, mirror); err != nil {
			return nil, fmt.Errorf("CancelCredit: enqueue sale mirror: %w", mapStoreErr(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CancelCredit: commit: %w", mapStoreErr(err))
	}

	log.Info("credit cancelled",
		"credit_id", credit.ID,
		"previous_status", prevStatus,
		"pending_amount", credit.PendingAmount,
		"cancelled_by", actor.ID,
	)

	return credit, nil
}

// CancelPayment reverses one payment's monetary effect from its owning
// credit: the inverse of ApplyPayment for that record.
func (s *Service) CancelPayment(ctx context.Context, storeID, paymentID uuid.UUID, actor domain.Actor, reason string) (*domain.Credit, *domain.PaymentRecord, error) {
	log := logging.FromContext(ctx)

	if reason == "" {
		return nil, nil, fmt.Errorf("CancelPayment: %w", domain.ErrEmptyReason)
	}

	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	record, err := s.payments.GetByID(ctx, storeID, paymentID)
	if err != nil {
		return nil, nil, fmt.Errorf("CancelPayment: %w", mapStoreErr(err))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("CancelPayment: begin tx: %w", mapStoreErr(err))
	}
	defer tx.Rollback()

	// Lock the credit first; the payment row is only ever mutated under
	// its credit's lock.
	credit, err := s.credits.GetForUpdate(ctx, tx, storeID, record.CreditID)
	if err != nil {
		return nil, nil, fmt.Errorf("CancelPayment: %w", mapStoreErr(err))
	}

	if credit.IsCancelled() {
		return nil, nil, fmt.Errorf("CancelPayment: %w", domain.ErrCreditCancelled)
	}
	if !record.IsActive() {
		return nil, nil, fmt.Errorf("CancelPayment: %w", domain.ErrPaymentCancelled)
	}
	if credit.PaidAmount-record.Amount < 0 {
		// Unreachable if the record's amount was added by ApplyPayment;
		// indicates corrupted data, so abort loudly.
		log.Error("payment reversal would drive paid amount negative",
			"credit_id", credit.ID,
			"payment_id", record.ID,
			"paid_amount", credit.PaidAmount,
			"payment_amount", record.Amount,
		)
		return nil, nil, fmt.Errorf("CancelPayment: paid %d < payment %d: %w",
			credit.PaidAmount, record.Amount, domain.ErrInvariantViolation)
	}

	now := time.Now().UTC()
	if err := s.payments.Cancel(ctx, tx, record.ID, actor, reason, now); err != nil {
		return nil, nil, fmt.Errorf("CancelPayment: %w", mapStoreErr(err))
	}

	record.Status = domain.PaymentRecordStatusCancelled
	record.CancelledAt = &now
	record.CancelledBy = &actor.ID
	record.CancelledByName = &actor.Name
	record.CancellationReason = &reason

	prevStatus := credit.Status
	credit.PaidAmount -= record.Amount
	credit.PendingAmount = credit.TotalAmount - credit.PaidAmount
	credit.Status = domain.DeriveStatus(credit.TotalAmount, credit.PaidAmount)

	latest, err := s.payments.LatestActive(ctx, tx, credit.ID)
	switch {
	case err == nil:
		setLastPayment(credit, latest)
	case errors.Is(err, domain.ErrNotFound):
		clearLastPayment(credit)
	default:
		return nil, nil, fmt.Errorf("CancelPayment: refresh snapshot: %w", mapStoreErr(err))
	}

	if err := s.credits.UpdateAmounts(ctx, tx, credit, credit.Version+1); err != nil {
		return nil, nil, fmt.Errorf("CancelPayment: update credit: %w", mapStoreErr(err))
	}
	credit.Version++

	// Reconcile before committing: active payments must still account for
	// every paid unit.
	sum, err := s.payments.SumActive(ctx, tx, credit.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("CancelPayment: reconcile: %w", mapStoreErr(err))
	}
	if sum != credit.PaidAmount {
		log.Error("active payments no longer sum to paid amount",
			"credit_id", credit.ID,
			"paid_amount", credit.PaidAmount,
			"active_sum", sum,
		)
		return nil, nil, fmt.Errorf("CancelPayment: active sum %d != paid %d: %w",
			sum, credit.PaidAmount, domain.ErrInvariantViolation)
	}

	event, err := newAuditEvent(domain.ActionPaymentCancelled, actor, credit, record, &prevStatus, now)
	if err != nil {
		return nil, nil, fmt.Errorf("CancelPayment: %w", err)
	}
	if err := s.outbox.Create(ctx, tx, event); err != nil {
		return nil, nil, fmt.Errorf("CancelPayment: enqueue audit: %w", mapStoreErr(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("CancelPayment: commit: %w", mapStoreErr(err))
	}

	log.Info("payment cancelled",
		"credit_id", credit.ID,
		"payment_id", record.ID,
		"amount", record.Amount,
		"paid_amount", credit.PaidAmount,
		"pending_amount", credit.PendingAmount,
		"status", credit.Status,
	)

	return credit, record, nil
}

func newSaleMirrorEvent(credit *domain.Credit, now time.Time) (*domain.LedgerEvent, error) {
	payload, err := json.Marshal(domain.SaleMirrorPayload{
		SaleID:       *credit.SaleID,
		CreditID:     credit.ID,
		CreditStatus: credit.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("newSaleMirrorEvent: marshal: %w", err)
	}

	return &domain.LedgerEvent{
		ID:        uuid.New(),
		Kind:      domain.LedgerEventKindSaleMirror,
		Action:    domain.ActionCreditCancelled,
		Payload:   payload,
		Status:    domain.LedgerEventStatusPending,
		CreatedAt: now,
	}, nil
}
