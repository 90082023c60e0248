package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tiendapos/credit-ledger/internal/domain"
)

type outboxRepo interface {
	GetPending(ctx context.Context, limit int) ([]domain.LedgerEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LedgerEventStatus) error
}

// AuditPublisher delivers audit events to the activity-log collaborator.
type AuditPublisher interface {
	Publish(ctx context.Context, action string, payload []byte) error
}

// SaleNotifier tells the sale-management collaborator to update its
// creditStatus mirror field.
type SaleNotifier interface {
	NotifyCreditStatus(ctx context.Context, payload domain.SaleMirrorPayload) error
}

// OutboxDispatcher drains committed ledger events and delivers them to
// the side-channel collaborators. Delivery is at-least-once: a failed
// attempt is logged and the event stays pending for the next poll; the
// ledger mutation it belongs to has already committed and is never
// rolled back from here.
type OutboxDispatcher struct {
	outbox    outboxRepo
	audit     AuditPublisher
	sales     SaleNotifier
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewOutboxDispatcher(outbox outboxRepo, audit AuditPublisher, sales SaleNotifier, logger *slog.Logger, interval time.Duration, batchSize int) *OutboxDispatcher {
	return &OutboxDispatcher{
		outbox:    outbox,
		audit:     audit,
		sales:     sales,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (d *OutboxDispatcher) Start(ctx context.Context) {
	d.logger.Info("outbox dispatcher started", "interval", d.interval)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

func (d *OutboxDispatcher) poll(ctx context.Context) {
	events, err := d.outbox.GetPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("failed to fetch pending ledger events", "error", err)
		return
	}

	for _, event := range events {
		err := d.dispatch(ctx, event)
		if errors.Is(err, errEventParked) {
			continue
		}
		if err != nil {
			d.logger.Error("failed to dispatch ledger event",
				"ledger_event_id", event.ID,
				"kind", event.Kind,
				"action", event.Action,
				"error", err,
			)
			if err := d.outbox.UpdateStatus(ctx, event.ID, domain.LedgerEventStatusPending); err != nil {
				d.logger.Error("failed to record dispatch attempt", "ledger_event_id", event.ID, "error", err)
			}
			continue
		}

		if err := d.outbox.UpdateStatus(ctx, event.ID, domain.LedgerEventStatusDispatched); err != nil {
			d.logger.Error("failed to mark event dispatched", "ledger_event_id", event.ID, "error", err)
		}
	}
}

func (d *OutboxDispatcher) dispatch(ctx context.Context, event domain.LedgerEvent) error {
	switch event.Kind {
	case domain.LedgerEventKindAudit:
		if err := d.audit.Publish(ctx, event.Action, event.Payload); err != nil {
			return fmt.Errorf("dispatch: publish audit: %w", err)
		}
		return nil

	case domain.LedgerEventKindSaleMirror:
		var payload domain.SaleMirrorPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			d.logger.Error("malformed sale mirror payload", "ledger_event_id", event.ID, "error", err)
			return d.park(ctx, event.ID)
		}
		if err := d.sales.NotifyCreditStatus(ctx, payload); err != nil {
			return fmt.Errorf("dispatch: notify sales: %w", err)
		}
		return nil

	default:
		d.logger.Error("unknown ledger event kind", "ledger_event_id", event.ID, "kind", event.Kind)
		return d.park(ctx, event.ID)
	}
}

// errEventParked tells poll the event was already marked failed and needs
// no further bookkeeping this cycle.
var errEventParked = errors.New("ledger event parked")

// park permanently fails an event that can never be delivered.
func (d *OutboxDispatcher) park(ctx context.Context, id uuid.UUID) error {
	if err := d.outbox.UpdateStatus(ctx, id, domain.LedgerEventStatusFailed); err != nil {
		d.logger.Error("failed to park ledger event", "ledger_event_id", id, "error", err)
	}
	return errEventParked
}
