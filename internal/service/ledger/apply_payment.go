package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tiendapos/credit-ledger/internal/domain"
	"github.com/tiendapos/credit-ledger/internal/logging"
)

type ApplyPaymentRequest struct {
	Amount         int64
	PaymentDate    time.Time
	Method         domain.PaymentMethod
	CashAmount     *int64
	TransferAmount *int64
	Actor          domain.Actor
}

// ApplyPayment applies one payment to one credit as a single transaction.
// Payments that would drive the pending balance negative are rejected
// outright, never clamped, so operators see and correct input errors.
func (s *Service) ApplyPayment(ctx context.Context, storeID, creditID uuid.UUID, req ApplyPaymentRequest) (*domain.Credit, *domain.PaymentRecord, error) {
	log := logging.FromContext(ctx)

	if err := validatePayment(req); err != nil {
		return nil, nil, fmt.Errorf("ApplyPayment: %w", err)
	}

	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("ApplyPayment: begin tx: %w", mapStoreErr(err))
	}
	defer tx.Rollback()

	credit, err := s.credits.GetForUpdate(ctx, tx, storeID, creditID)
	if err != nil {
		return nil, nil, fmt.Errorf("ApplyPayment: %w", mapStoreErr(err))
	}

	if credit.IsCancelled() {
		return nil, nil, fmt.Errorf("ApplyPayment: %w", domain.ErrCreditCancelled)
	}
	if req.Amount > credit.PendingAmount {
		return nil, nil, fmt.Errorf("ApplyPayment: amount %d exceeds pending %d: %w",
			req.Amount, credit.PendingAmount, domain.ErrOverpayment)
	}

	now := time.Now().UTC()
	record := &domain.PaymentRecord{
		ID:             uuid.New(),
		CreditID:       credit.ID,
		StoreID:        storeID,
		Amount:         req.Amount,
		PaymentDate:    req.PaymentDate,
		Method:         req.Method,
		CashAmount:     req.CashAmount,
		TransferAmount: req.TransferAmount,
		ReceivedBy:     req.Actor.ID,
		ReceivedByName: req.Actor.Name,
		Status:         domain.PaymentRecordStatusActive,
		CreatedAt:      now,
	}

	if err := s.payments.Create(ctx, tx, record); err != nil {
		return nil, nil, fmt.Errorf("ApplyPayment: create record: %w", mapStoreErr(err))
	}

	prevStatus := credit.Status
	credit.PaidAmount += req.Amount
	credit.PendingAmount = credit.TotalAmount - credit.PaidAmount
	credit.Status = domain.DeriveStatus(credit.TotalAmount, credit.PaidAmount)
	setLastPayment(credit, record)

	if err := s.credits.UpdateAmounts(ctx, tx, credit, credit.Version+1); err != nil {
		return nil, nil, fmt.Errorf("ApplyPayment: update credit: %w", mapStoreErr(err))
	}
	credit.Version++

	event, err := newAuditEvent(domain.ActionPaymentApplied, req.Actor, credit, record, &prevStatus, now)
	if err != nil {
		return nil, nil, fmt.Errorf("ApplyPayment: %w", err)
	}
	if err := s.outbox.Create(ctx, tx, event); err != nil {
		return nil, nil, fmt.Errorf("ApplyPayment: enqueue audit: %w", mapStoreErr(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("ApplyPayment: commit: %w", mapStoreErr(err))
	}

	log.Info("payment applied",
		"credit_id", credit.ID,
		"payment_id", record.ID,
		"amount", req.Amount,
		"paid_amount", credit.PaidAmount,
		"pending_amount", credit.PendingAmount,
		"status", credit.Status,
	)

	return credit, record, nil
}

func validatePayment(req ApplyPaymentRequest) error {
	if req.Amount <= 0 {
		return fmt.Errorf("validatePayment: %w", domain.ErrInvalidAmount)
	}
	if !req.Method.IsValid() {
		return fmt.Errorf("validatePayment: %w", domain.ErrInvalidMethod)
	}

	if req.Method == domain.PaymentMethodMixed {
		if req.CashAmount == nil || req.TransferAmount == nil {
			return fmt.Errorf("validatePayment: %w", domain.ErrSplitMismatch)
		}
		if *req.CashAmount < 0 || *req.TransferAmount < 0 {
			return fmt.Errorf("validatePayment: %w", domain.ErrSplitMismatch)
		}
		if *req.CashAmount+*req.TransferAmount != req.Amount {
			return fmt.Errorf("validatePayment: %w", domain.ErrSplitMismatch)
		}
		return nil
	}

	if req.CashAmount != nil || req.TransferAmount != nil {
		return fmt.Errorf("validatePayment: split only allowed for mixed method: %w", domain.ErrSplitMismatch)
	}
	return nil
}

func setLastPayment(c *domain.Credit, p *domain.PaymentRecord) {
	c.LastPaymentAmount = &p.Amount
	c.LastPaymentDate = &p.PaymentDate
	c.LastPaymentBy = &p.ReceivedBy
	c.LastPaymentByName = &p.ReceivedByName
}

func clearLastPayment(c *domain.Credit) {
	c.LastPaymentAmount = nil
	c.LastPaymentDate = nil
	c.LastPaymentBy = nil
	c.LastPaymentByName = nil
}
