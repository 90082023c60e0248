package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tiendapos/credit-ledger/internal/auth"
	"github.com/tiendapos/credit-ledger/internal/domain"
	"github.com/tiendapos/credit-ledger/internal/logging"
	"github.com/tiendapos/credit-ledger/internal/service/ledger"
)

type ledgerService interface {
	CreateCredit(ctx context.Context, storeID uuid.UUID, req ledger.CreateCreditRequest) (*domain.Credit, error)
	GetCredit(ctx context.Context, storeID, creditID uuid.UUID) (*domain.Credit, error)
	ListClientCredits(ctx context.Context, storeID, clientID uuid.UUID) ([]domain.Credit, error)
	ListPayments(ctx context.Context, storeID, creditID uuid.UUID) ([]domain.PaymentRecord, error)
	ApplyPayment(ctx context.Context, storeID, creditID uuid.UUID, req ledger.ApplyPaymentRequest) (*domain.Credit, *domain.PaymentRecord, error)
	CancelCredit(ctx context.Context, storeID, creditID uuid.UUID, actor domain.Actor, reason string) (*domain.Credit, error)
	CancelPayment(ctx context.Context, storeID, paymentID uuid.UUID, actor domain.Actor, reason string) (*domain.Credit, *domain.PaymentRecord, error)
	SummarizeClient(ctx context.Context, storeID, clientID uuid.UUID, includeCancelled bool) (*ledger.ClientSummary, error)
}

type CreditHandler struct {
	ledger ledgerService
}

func NewCreditHandler(ledger ledgerService) *CreditHandler {
	return &CreditHandler{ledger: ledger}
}

type createCreditRequest struct {
	SaleID        *uuid.UUID `json:"sale_id"`
	ClientID      string     `json:"client_id"`
	ClientName    string     `json:"client_name"`
	InvoiceNumber string     `json:"invoice_number"`
	TotalAmount   int64      `json:"total_amount"`
	DueDate       *string    `json:"due_date"`
}

func (r createCreditRequest) Validate() []FieldError {
	var errs []FieldError

	if r.ClientID == "" {
		errs = append(errs, FieldError{Field: "client_id", Message: "required"})
	} else if _, err := uuid.Parse(r.ClientID); err != nil {
		errs = append(errs, FieldError{Field: "client_id", Message: "must be a valid UUID"})
	}

	if r.ClientName == "" {
		errs = append(errs, FieldError{Field: "client_name", Message: "required"})
	}

	if r.InvoiceNumber == "" {
		errs = append(errs, FieldError{Field: "invoice_number", Message: "required"})
	}

	if r.TotalAmount <= 0 {
		errs = append(errs, FieldError{Field: "total_amount", Message: "must be greater than 0"})
	}

	if r.DueDate != nil {
		if _, err := parseDate(*r.DueDate); err != nil {
			errs = append(errs, FieldError{Field: "due_date", Message: "must be RFC 3339 or YYYY-MM-DD"})
		}
	}

	return errs
}

type applyPaymentRequest struct {
	Amount         int64  `json:"amount"`
	PaymentDate    string `json:"payment_date"`
	Method         string `json:"method"`
	CashAmount     *int64 `json:"cash_amount"`
	TransferAmount *int64 `json:"transfer_amount"`
}

func (r applyPaymentRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	if r.Method == "" {
		errs = append(errs, FieldError{Field: "method", Message: "required"})
	} else if !domain.PaymentMethod(r.Method).IsValid() {
		errs = append(errs, FieldError{Field: "method", Message: "must be cash, transfer, or mixed"})
	}

	if r.PaymentDate != "" {
		if _, err := parseDate(r.PaymentDate); err != nil {
			errs = append(errs, FieldError{Field: "payment_date", Message: "must be RFC 3339 or YYYY-MM-DD"})
		}
	}

	return errs
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (r cancelRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Reason == "" {
		errs = append(errs, FieldError{Field: "reason", Message: "required"})
	}
	return errs
}

type creditDTO struct {
	ID            uuid.UUID  `json:"id"`
	StoreID       uuid.UUID  `json:"store_id"`
	SaleID        *uuid.UUID `json:"sale_id,omitempty"`
	ClientID      uuid.UUID  `json:"client_id"`
	ClientName    string     `json:"client_name"`
	InvoiceNumber string     `json:"invoice_number"`
	TotalAmount   int64      `json:"total_amount"`
	PaidAmount    int64      `json:"paid_amount"`
	PendingAmount int64      `json:"pending_amount"`
	Status        string     `json:"status"`
	DueDate       *time.Time `json:"due_date,omitempty"`

	LastPaymentAmount *int64     `json:"last_payment_amount,omitempty"`
	LastPaymentDate   *time.Time `json:"last_payment_date,omitempty"`
	LastPaymentByName *string    `json:"last_payment_by_name,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledByName    *string    `json:"cancelled_by_name,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCreditDTO(c *domain.Credit, now time.Time) creditDTO {
	return creditDTO{
		ID:                 c.ID,
		StoreID:            c.StoreID,
		SaleID:             c.SaleID,
		ClientID:           c.ClientID,
		ClientName:         c.ClientName,
		InvoiceNumber:      c.InvoiceNumber,
		TotalAmount:        c.TotalAmount,
		PaidAmount:         c.PaidAmount,
		PendingAmount:      c.PendingAmount,
		Status:             string(c.StatusAt(now)),
		DueDate:            c.DueDate,
		LastPaymentAmount:  c.LastPaymentAmount,
		LastPaymentDate:    c.LastPaymentDate,
		LastPaymentByName:  c.LastPaymentByName,
		CancelledAt:        c.CancelledAt,
		CancelledByName:    c.CancelledByName,
		CancellationReason: c.CancellationReason,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

type paymentRecordDTO struct {
	ID             uuid.UUID `json:"id"`
	CreditID       uuid.UUID `json:"credit_id"`
	Amount         int64     `json:"amount"`
	PaymentDate    time.Time `json:"payment_date"`
	Method         string    `json:"method"`
	CashAmount     *int64    `json:"cash_amount,omitempty"`
	TransferAmount *int64    `json:"transfer_amount,omitempty"`
	ReceivedByName string    `json:"received_by_name"`
	Status         string    `json:"status"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledByName    *string    `json:"cancelled_by_name,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func toPaymentRecordDTO(p *domain.PaymentRecord) paymentRecordDTO {
	return paymentRecordDTO{
		ID:                 p.ID,
		CreditID:           p.CreditID,
		Amount:             p.Amount,
		PaymentDate:        p.PaymentDate,
		Method:             string(p.Method),
		CashAmount:         p.CashAmount,
		TransferAmount:     p.TransferAmount,
		ReceivedByName:     p.ReceivedByName,
		Status:             string(p.Status),
		CancelledAt:        p.CancelledAt,
		CancelledByName:    p.CancelledByName,
		CancellationReason: p.CancellationReason,
		CreatedAt:          p.CreatedAt,
	}
}

type clientSummaryDTO struct {
	ClientID      uuid.UUID       `json:"client_id"`
	ClientName    string          `json:"client_name"`
	CreditCount   int             `json:"credit_count"`
	TotalAmount   int64           `json:"total_amount"`
	PaidAmount    int64           `json:"paid_amount"`
	PendingAmount int64           `json:"pending_amount"`
	Status        string          `json:"status"`
	Progress      decimal.Decimal `json:"progress"`
}

func (h *CreditHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	storeID, appErr := storeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	clientID, _ := uuid.Parse(req.ClientID)
	var dueDate *time.Time
	if req.DueDate != nil {
		d, _ := parseDate(*req.DueDate)
		dueDate = &d
	}

	credit, err := h.ledger.CreateCredit(r.Context(), storeID, ledger.CreateCreditRequest{
		SaleID:        req.SaleID,
		ClientID:      clientID,
		ClientName:    req.ClientName,
		InvoiceNumber: req.InvoiceNumber,
		TotalAmount:   req.TotalAmount,
		DueDate:       dueDate,
		Actor:         actor,
	})
	if err != nil {
		log.Warn("credit creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/stores/%s/credits/%s", storeID, credit.ID))
	RespondSuccess(w, http.StatusCreated, toCreditDTO(credit, time.Now().UTC()))
}

func (h *CreditHandler) Get(w http.ResponseWriter, r *http.Request) {
	storeID, appErr := storeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	creditID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	credit, err := h.ledger.GetCredit(r.Context(), storeID, creditID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("credit lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toCreditDTO(credit, time.Now().UTC()))
}

func (h *CreditHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	storeID, appErr := storeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	creditID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req applyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	paymentDate := time.Now().UTC()
	if req.PaymentDate != "" {
		paymentDate, _ = parseDate(req.PaymentDate)
	}

	credit, record, err := h.ledger.ApplyPayment(r.Context(), storeID, creditID, ledger.ApplyPaymentRequest{
		Amount:         req.Amount,
		PaymentDate:    paymentDate,
		Method:         domain.PaymentMethod(req.Method),
		CashAmount:     req.CashAmount,
		TransferAmount: req.TransferAmount,
		Actor:          actor,
	})
	if err != nil {
		log.Warn("payment application failed", "credit_id", creditID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, map[string]any{
		"credit":  toCreditDTO(credit, time.Now().UTC()),
		"payment": toPaymentRecordDTO(record),
	})
}

func (h *CreditHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	storeID, appErr := storeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	creditID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	records, err := h.ledger.ListPayments(r.Context(), storeID, creditID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment listing failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]paymentRecordDTO, len(records))
	for i := range records {
		dtos[i] = toPaymentRecordDTO(&records[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *CreditHandler) CancelCredit(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	storeID, appErr := storeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	creditID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	credit, err := h.ledger.CancelCredit(r.Context(), storeID, creditID, actor, req.Reason)
	if err != nil {
		log.Warn("credit cancellation failed", "credit_id", creditID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toCreditDTO(credit, time.Now().UTC()))
}

func (h *CreditHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	storeID, appErr := storeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	paymentID, err := uuid.Parse(r.PathValue("paymentID"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	credit, record, err := h.ledger.CancelPayment(r.Context(), storeID, paymentID, actor, req.Reason)
	if err != nil {
		log.Warn("payment cancellation failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"credit":  toCreditDTO(credit, time.Now().UTC()),
		"payment": toPaymentRecordDTO(record),
	})
}

func (h *CreditHandler) ListClientCredits(w http.ResponseWriter, r *http.Request) {
	storeID, appErr := storeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	clientID, err := uuid.Parse(r.PathValue("clientID"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	credits, err := h.ledger.ListClientCredits(r.Context(), storeID, clientID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("client credit listing failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	now := time.Now().UTC()
	dtos := make([]creditDTO, len(credits))
	for i := range credits {
		dtos[i] = toCreditDTO(&credits[i], now)
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *CreditHandler) ClientSummary(w http.ResponseWriter, r *http.Request) {
	storeID, appErr := storeFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	clientID, err := uuid.Parse(r.PathValue("clientID"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	includeCancelled := r.URL.Query().Get("include_cancelled") == "true"

	summary, err := h.ledger.SummarizeClient(r.Context(), storeID, clientID, includeCancelled)
	if err != nil {
		logging.FromContext(r.Context()).Warn("client summary failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, clientSummaryDTO{
		ClientID:      summary.ClientID,
		ClientName:    summary.ClientName,
		CreditCount:   summary.CreditCount,
		TotalAmount:   summary.TotalAmount,
		PaidAmount:    summary.PaidAmount,
		PendingAmount: summary.PendingAmount,
		Status:        string(summary.Status),
		Progress:      summary.Progress,
	})
}

func storeFromPath(r *http.Request) (uuid.UUID, *AppError) {
	storeID, err := uuid.Parse(r.PathValue("storeID"))
	if err != nil {
		return uuid.Nil, ErrInvalidStoreID
	}
	return storeID, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
