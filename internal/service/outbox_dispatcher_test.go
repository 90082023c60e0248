package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiendapos/credit-ledger/internal/domain"
)

type fakeOutbox struct {
	events   []domain.LedgerEvent
	statuses map[uuid.UUID]domain.LedgerEventStatus
	attempts map[uuid.UUID]int
}

func newFakeOutbox(events ...domain.LedgerEvent) *fakeOutbox {
	return &fakeOutbox{
		events:   events,
		statuses: make(map[uuid.UUID]domain.LedgerEventStatus),
		attempts: make(map[uuid.UUID]int),
	}
}

func (f *fakeOutbox) GetPending(ctx context.Context, limit int) ([]domain.LedgerEvent, error) {
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeOutbox) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LedgerEventStatus) error {
	f.statuses[id] = status
	f.attempts[id]++
	return nil
}

type fakeAudit struct {
	published []string
	err       error
}

func (f *fakeAudit) Publish(ctx context.Context, action string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, action)
	return nil
}

type fakeSales struct {
	notified []domain.SaleMirrorPayload
	err      error
}

func (f *fakeSales) NotifyCreditStatus(ctx context.Context, payload domain.SaleMirrorPayload) error {
	if f.err != nil {
		return f.err
	}
	f.notified = append(f.notified, payload)
	return nil
}

func auditEvent(t *testing.T) domain.LedgerEvent {
	t.Helper()
	payload, err := json.Marshal(domain.AuditPayload{
		Action:    domain.ActionPaymentApplied,
		Module:    "credits",
		ActorID:   uuid.New(),
		ActorName: "Carlos Ruiz",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	return domain.LedgerEvent{
		ID:      uuid.New(),
		Kind:    domain.LedgerEventKindAudit,
		Action:  domain.ActionPaymentApplied,
		Payload: payload,
		Status:  domain.LedgerEventStatusPending,
	}
}

func saleMirrorEvent(t *testing.T) domain.LedgerEvent {
	t.Helper()
	payload, err := json.Marshal(domain.SaleMirrorPayload{
		SaleID:       uuid.New(),
		CreditID:     uuid.New(),
		CreditStatus: domain.CreditStatusCancelled,
	})
	require.NoError(t, err)

	return domain.LedgerEvent{
		ID:      uuid.New(),
		Kind:    domain.LedgerEventKindSaleMirror,
		Action:  domain.ActionCreditCancelled,
		Payload: payload,
		Status:  domain.LedgerEventStatusPending,
	}
}

func newTestDispatcher(outbox *fakeOutbox, audit *fakeAudit, sales *fakeSales) *OutboxDispatcher {
	return NewOutboxDispatcher(outbox, audit, sales, slog.Default(), time.Second, 10)
}

func TestOutboxDispatcher_DispatchesBothKinds(t *testing.T) {
	audit := auditEvent(t)
	mirror := saleMirrorEvent(t)
	outbox := newFakeOutbox(audit, mirror)
	auditSink := &fakeAudit{}
	salesSink := &fakeSales{}

	d := newTestDispatcher(outbox, auditSink, salesSink)
	d.poll(context.Background())

	assert.Equal(t, []string{domain.ActionPaymentApplied}, auditSink.published)
	require.Len(t, salesSink.notified, 1)
	assert.Equal(t, domain.CreditStatusCancelled, salesSink.notified[0].CreditStatus)

	assert.Equal(t, domain.LedgerEventStatusDispatched, outbox.statuses[audit.ID])
	assert.Equal(t, domain.LedgerEventStatusDispatched, outbox.statuses[mirror.ID])
}

func TestOutboxDispatcher_FailureKeepsEventPending(t *testing.T) {
	audit := auditEvent(t)
	outbox := newFakeOutbox(audit)
	auditSink := &fakeAudit{err: errors.New("broker unavailable")}

	d := newTestDispatcher(outbox, auditSink, &fakeSales{})
	d.poll(context.Background())

	assert.Equal(t, domain.LedgerEventStatusPending, outbox.statuses[audit.ID])
	assert.Equal(t, 1, outbox.attempts[audit.ID])

	// The broker recovers; the next poll delivers it.
	auditSink.err = nil
	d.poll(context.Background())

	assert.Equal(t, domain.LedgerEventStatusDispatched, outbox.statuses[audit.ID])
}

func TestOutboxDispatcher_MalformedPayloadParked(t *testing.T) {
	broken := domain.LedgerEvent{
		ID:      uuid.New(),
		Kind:    domain.LedgerEventKindSaleMirror,
		Action:  domain.ActionCreditCancelled,
		Payload: []byte("{not json"),
		Status:  domain.LedgerEventStatusPending,
	}
	outbox := newFakeOutbox(broken)
	salesSink := &fakeSales{}

	d := newTestDispatcher(outbox, &fakeAudit{}, salesSink)
	d.poll(context.Background())

	assert.Empty(t, salesSink.notified)
	assert.Equal(t, domain.LedgerEventStatusFailed, outbox.statuses[broken.ID])
}
