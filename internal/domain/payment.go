package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodMixed    PaymentMethod = "mixed"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodMixed:
		return true
	default:
		return false
	}
}

type PaymentRecordStatus string

const (
	PaymentRecordStatusActive    PaymentRecordStatus = "active"
	PaymentRecordStatusCancelled PaymentRecordStatus = "cancelled"
)

// PaymentRecord is one payment event applied to exactly one credit.
// Once cancelled its monetary effect is reversed from the owning credit
// and the record stays inert forever.
type PaymentRecord struct {
	ID       uuid.UUID
	CreditID uuid.UUID
	StoreID  uuid.UUID

	Amount      int64
	PaymentDate time.Time
	Method      PaymentMethod
	// Split of a mixed payment; both nil unless Method is mixed.
	CashAmount     *int64
	TransferAmount *int64

	ReceivedBy     uuid.UUID
	ReceivedByName string

	Status             PaymentRecordStatus
	CancelledAt        *time.Time
	CancelledBy        *uuid.UUID
	CancelledByName    *string
	CancellationReason *string

	CreatedAt time.Time
}

func (p *PaymentRecord) IsActive() bool {
	return p.Status == PaymentRecordStatusActive
}
