package domain

import (
	"time"

	"github.com/google/uuid"
)

type CreditStatus string

const (
	CreditStatusPending   CreditStatus = "pending"
	CreditStatusPartial   CreditStatus = "partial"
	CreditStatusCompleted CreditStatus = "completed"
	CreditStatusOverdue   CreditStatus = "overdue"
	CreditStatusCancelled CreditStatus = "cancelled"
)

// Credit is one outstanding invoice-linked debt owed by a client.
// PaidAmount/PendingAmount are maintained together under the credit's
// row lock; PendingAmount is always TotalAmount - PaidAmount.
type Credit struct {
	ID            uuid.UUID
	StoreID       uuid.UUID
	SaleID        *uuid.UUID
	ClientID      uuid.UUID
	ClientName    string
	InvoiceNumber string
	TotalAmount   int64
	PaidAmount    int64
	PendingAmount int64
	Status        CreditStatus
	DueDate       *time.Time

	// Snapshot of the most recent active payment, for display only.
	LastPaymentAmount *int64
	LastPaymentDate   *time.Time
	LastPaymentBy     *uuid.UUID
	LastPaymentByName *string

	CancelledAt        *time.Time
	CancelledBy        *uuid.UUID
	CancelledByName    *string
	CancellationReason *string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeriveStatus is the single place a credit's status is computed from its
// amounts. Cancellation is the only status set outside this function.
func DeriveStatus(totalAmount, paidAmount int64) CreditStatus {
	switch {
	case totalAmount-paidAmount == 0:
		return CreditStatusCompleted
	case paidAmount > 0:
		return CreditStatusPartial
	default:
		return CreditStatusPending
	}
}

// StatusAt refines the stored status to overdue when the due date has
// passed and the credit still carries a pending balance. The refinement
// is computed at read time and never written back.
func (c *Credit) StatusAt(now time.Time) CreditStatus {
	if c.Status == CreditStatusCancelled || c.Status == CreditStatusCompleted {
		return c.Status
	}
	if c.DueDate != nil && now.After(*c.DueDate) && c.PendingAmount > 0 {
		return CreditStatusOverdue
	}
	return c.Status
}

func (c *Credit) IsCancelled() bool {
	return c.Status == CreditStatusCancelled
}
