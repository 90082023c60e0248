package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrOverpayment      = &AppError{http.StatusUnprocessableEntity, "OVERPAYMENT", "Payment exceeds the credit's pending amount"}
	ErrCreditCancelled  = &AppError{http.StatusUnprocessableEntity, "CREDIT_CANCELLED", "Credit is cancelled"}
	ErrPaymentCancelled = &AppError{http.StatusUnprocessableEntity, "PAYMENT_CANCELLED", "Payment record is already cancelled"}
	ErrVersionConflict  = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrStoreTimeout     = &AppError{http.StatusGatewayTimeout, "STORE_TIMEOUT", "Ledger store did not respond in time"}

	ErrInvalidAmount  = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidMethod  = &AppError{http.StatusBadRequest, "INVALID_PAYMENT_METHOD", "Payment method must be cash, transfer or mixed"}
	ErrSplitMismatch  = &AppError{http.StatusBadRequest, "SPLIT_MISMATCH", "Cash and transfer amounts must sum to the payment amount"}
	ErrEmptyReason    = &AppError{http.StatusBadRequest, "EMPTY_REASON", "Cancellation reason is required"}
	ErrInvalidStoreID = &AppError{http.StatusBadRequest, "INVALID_STORE_ID", "Store id must be a valid UUID"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
