package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidMethod      = errors.New("invalid payment method")
	ErrSplitMismatch      = errors.New("cash and transfer amounts must sum to the payment amount")
	ErrEmptyReason        = errors.New("cancellation reason is required")
	ErrOverpayment        = errors.New("amount exceeds pending balance")
	ErrCreditCancelled    = errors.New("credit is cancelled")
	ErrPaymentCancelled   = errors.New("payment record is already cancelled")
	ErrInvariantViolation = errors.New("ledger invariant violated")
	ErrVersionConflict    = errors.New("optimistic lock conflict")
	ErrStoreTimeout       = errors.New("ledger store timed out")
)
