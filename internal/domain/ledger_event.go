package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type LedgerEventKind string

const (
	// LedgerEventKindAudit is published to the activity-log collaborator.
	LedgerEventKindAudit LedgerEventKind = "audit"
	// LedgerEventKindSaleMirror notifies the sale-management collaborator
	// that a sale-linked credit changed status.
	LedgerEventKindSaleMirror LedgerEventKind = "sale_mirror"
)

type LedgerEventStatus string

const (
	LedgerEventStatusPending    LedgerEventStatus = "pending"
	LedgerEventStatusDispatched LedgerEventStatus = "dispatched"
	LedgerEventStatusFailed     LedgerEventStatus = "failed"
)

const (
	ActionCreditCreated    = "credit.created"
	ActionPaymentApplied   = "payment.applied"
	ActionCreditCancelled  = "credit.cancelled"
	ActionPaymentCancelled = "payment.cancelled"
)

// LedgerEvent is an outbox row. It is written in the same transaction as
// the ledger mutation it describes and delivered asynchronously; delivery
// is at-least-once and never rolls back the committed mutation.
type LedgerEvent struct {
	ID          uuid.UUID
	Kind        LedgerEventKind
	Action      string
	Payload     json.RawMessage
	Status      LedgerEventStatus
	Attempts    int
	LastAttempt *time.Time
	CreatedAt   time.Time
}

// AuditPayload matches the activity-log collaborator contract.
type AuditPayload struct {
	Action    string       `json:"action"`
	Module    string       `json:"module"`
	ActorID   uuid.UUID    `json:"actor_id"`
	ActorName string       `json:"actor_name"`
	Details   AuditDetails `json:"details"`
	Timestamp time.Time    `json:"timestamp"`
}

type AuditDetails struct {
	CreditID       uuid.UUID     `json:"credit_id"`
	PaymentID      *uuid.UUID    `json:"payment_id,omitempty"`
	Amount         *int64        `json:"amount,omitempty"`
	PreviousStatus *CreditStatus `json:"previous_status,omitempty"`
	NewStatus      *CreditStatus `json:"new_status,omitempty"`
	Reason         *string       `json:"reason,omitempty"`
	PaidAmount     int64         `json:"paid_amount"`
	PendingAmount  int64         `json:"pending_amount"`
}

// SaleMirrorPayload is posted to the sales service so it can update the
// sale's creditStatus mirror field.
type SaleMirrorPayload struct {
	SaleID       uuid.UUID    `json:"sale_id"`
	CreditID     uuid.UUID    `json:"credit_id"`
	CreditStatus CreditStatus `json:"credit_status"`
}
