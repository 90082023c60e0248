package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tiendapos/credit-ledger/internal/domain"
	"github.com/tiendapos/credit-ledger/internal/logging"
)

type creditRepo interface {
	Create(ctx context.Context, tx *sql.Tx, credit *domain.Credit) error
	GetByID(ctx context.Context, storeID, id uuid.UUID) (*domain.Credit, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, storeID, id uuid.UUID) (*domain.Credit, error)
	ListByClient(ctx context.Context, storeID, clientID uuid.UUID) ([]domain.Credit, error)
	UpdateAmounts(ctx context.Context, tx *sql.Tx, credit *domain.Credit, newVersion int64) error
	Cancel(ctx context.Context, tx *sql.Tx, id uuid.UUID, actor domain.Actor, reason string, at time.Time, newVersion int64) error
}

type paymentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, p *domain.PaymentRecord) error
	GetByID(ctx context.Context, storeID, id uuid.UUID) (*domain.PaymentRecord, error)
	ListByCredit(ctx context.Context, creditID uuid.UUID) ([]domain.PaymentRecord, error)
	LatestActive(ctx context.Context, tx *sql.Tx, creditID uuid.UUID) (*domain.PaymentRecord, error)
	SumActive(ctx context.Context, tx *sql.Tx, creditID uuid.UUID) (int64, error)
	Cancel(ctx context.Context, tx *sql.Tx, id uuid.UUID, actor domain.Actor, reason string, at time.Time) error
}

type outboxRepo interface {
	Create(ctx context.Context, tx *sql.Tx, event *domain.LedgerEvent) error
}

type Service struct {
	credits  creditRepo
	payments paymentRepo
	outbox   outboxRepo
	db       *sql.DB

	// Upper bound for any single store round trip.
	storeTimeout time.Duration
}

func NewService(credits creditRepo, payments paymentRepo, outbox outboxRepo, db *sql.DB, storeTimeout time.Duration) *Service {
	return &Service{
		credits:      credits,
		payments:     payments,
		outbox:       outbox,
		db:           db,
		storeTimeout: storeTimeout,
	}
}

type CreateCreditRequest struct {
	SaleID        *uuid.UUID
	ClientID      uuid.UUID
	ClientName    string
	InvoiceNumber string
	TotalAmount   int64
	DueDate       *time.Time
	Actor         domain.Actor
}

func (s *Service) CreateCredit(ctx context.Context, storeID uuid.UUID, req CreateCreditRequest) (*domain.Credit, error) {
	log := logging.FromContext(ctx)

	if req.TotalAmount <= 0 {
		return nil, fmt.Errorf("CreateCredit: %w", domain.ErrInvalidAmount)
	}

	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	now := time.Now().UTC()
	credit := &domain.Credit{
		ID:            uuid.New(),
		StoreID:       storeID,
		SaleID:        req.SaleID,
		ClientID:      req.ClientID,
		ClientName:    req.ClientName,
		InvoiceNumber: req.InvoiceNumber,
		TotalAmount:   req.TotalAmount,
		PaidAmount:    0,
		PendingAmount: req.TotalAmount,
		Status:        domain.DeriveStatus(req.TotalAmount, 0),
		DueDate:       req.DueDate,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateCredit: begin tx: %w", mapStoreErr(err))
	}
	defer tx.Rollback()

	if err := s.credits.Create(ctx, tx, credit); err != nil {
		return nil, fmt.Errorf("CreateCredit: %w", mapStoreErr(err))
	}

	event, err := newAuditEvent(domain.ActionCreditCreated, req.Actor, credit, nil, nil, now)
	if err != nil {
		return nil, fmt.Errorf("CreateCredit: %w", err)
	}
	if err := s.outbox.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("CreateCredit: enqueue audit: %w", mapStoreErr(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateCredit: commit: %w", mapStoreErr(err))
	}

	log.Info("credit created",
		"credit_id", credit.ID,
		"store_id", storeID,
		"client_id", credit.ClientID,
		"total_amount", credit.TotalAmount,
	)

	return credit, nil
}

func (s *Service) GetCredit(ctx context.Context, storeID, creditID uuid.UUID) (*domain.Credit, error) {
	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	c, err := s.credits.GetByID(ctx, storeID, creditID)
	if err != nil {
		return nil, fmt.Errorf("GetCredit: %w", mapStoreErr(err))
	}
	return c, nil
}

func (s *Service) ListClientCredits(ctx context.Context, storeID, clientID uuid.UUID) ([]domain.Credit, error) {
	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	credits, err := s.credits.ListByClient(ctx, storeID, clientID)
	if err != nil {
		return nil, fmt.Errorf("ListClientCredits: %w", mapStoreErr(err))
	}
	return credits, nil
}

func (s *Service) ListPayments(ctx context.Context, storeID, creditID uuid.UUID) ([]domain.PaymentRecord, error) {
	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	if _, err := s.credits.GetByID(ctx, storeID, creditID); err != nil {
		return nil, fmt.Errorf("ListPayments: %w", mapStoreErr(err))
	}

	records, err := s.payments.ListByCredit(ctx, creditID)
	if err != nil {
		return nil, fmt.Errorf("ListPayments: %w", mapStoreErr(err))
	}
	return records, nil
}

func (s *Service) boundStore(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// mapStoreErr surfaces an exhausted store deadline as ErrStoreTimeout so
// callers can retry with backoff instead of treating it as a bug.
func mapStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrStoreTimeout, err)
	}
	return err
}

func newAuditEvent(action string, actor domain.Actor, credit *domain.Credit, payment *domain.PaymentRecord, prevStatus *domain.CreditStatus, now time.Time) (*domain.LedgerEvent, error) {
	details := domain.AuditDetails{
		CreditID:       credit.ID,
		PreviousStatus: prevStatus,
		PaidAmount:     credit.PaidAmount,
		PendingAmount:  credit.PendingAmount,
	}
	newStatus := credit.Status
	details.NewStatus = &newStatus

	if payment != nil {
		details.PaymentID = &payment.ID
		details.Amount = &payment.Amount
	}
	if credit.CancellationReason != nil {
		details.Reason = credit.CancellationReason
	}
	if payment != nil && payment.CancellationReason != nil {
		details.Reason = payment.CancellationReason
	}

	payload, err := json.Marshal(domain.AuditPayload{
		Action:    action,
		Module:    "credits",
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Details:   details,
		Timestamp: now,
	})
	if err != nil {
		return nil, fmt.Errorf("newAuditEvent: marshal: %w", err)
	}

	return &domain.LedgerEvent{
		ID:        uuid.New(),
		Kind:      domain.LedgerEventKindAudit,
		Action:    action,
		Payload:   payload,
		Status:    domain.LedgerEventStatusPending,
		CreatedAt: now,
	}, nil
}
