package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiendapos/credit-ledger/internal/auth"
	"github.com/tiendapos/credit-ledger/internal/domain"
	"github.com/tiendapos/credit-ledger/internal/service/ledger"
)

type stubLedgerService struct {
	credit  *domain.Credit
	payment *domain.PaymentRecord
	summary *ledger.ClientSummary
	err     error

	appliedReq ledger.ApplyPaymentRequest
}

func (s *stubLedgerService) CreateCredit(_ context.Context, _ uuid.UUID, _ ledger.CreateCreditRequest) (*domain.Credit, error) {
	return s.credit, s.err
}

func (s *stubLedgerService) GetCredit(_ context.Context, _, _ uuid.UUID) (*domain.Credit, error) {
	return s.credit, s.err
}

func (s *stubLedgerService) ListClientCredits(_ context.Context, _, _ uuid.UUID) ([]domain.Credit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Credit{*s.credit}, nil
}

func (s *stubLedgerService) ListPayments(_ context.Context, _, _ uuid.UUID) ([]domain.PaymentRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.PaymentRecord{*s.payment}, nil
}

func (s *stubLedgerService) ApplyPayment(_ context.Context, _, _ uuid.UUID, req ledger.ApplyPaymentRequest) (*domain.Credit, *domain.PaymentRecord, error) {
	s.appliedReq = req
	return s.credit, s.payment, s.err
}

func (s *stubLedgerService) CancelCredit(_ context.Context, _, _ uuid.UUID, _ domain.Actor, _ string) (*domain.Credit, error) {
	return s.credit, s.err
}

func (s *stubLedgerService) CancelPayment(_ context.Context, _, _ uuid.UUID, _ domain.Actor, _ string) (*domain.Credit, *domain.PaymentRecord, error) {
	return s.credit, s.payment, s.err
}

func (s *stubLedgerService) SummarizeClient(_ context.Context, _, _ uuid.UUID, _ bool) (*ledger.ClientSummary, error) {
	return s.summary, s.err
}

func stubCredit() *domain.Credit {
	return &domain.Credit{
		ID:            uuid.New(),
		StoreID:       uuid.New(),
		ClientID:      uuid.New(),
		ClientName:    "Maria Lopez",
		InvoiceNumber: "INV-7001",
		TotalAmount:   100_000,
		PaidAmount:    40_000,
		PendingAmount: 60_000,
		Status:        domain.CreditStatusPartial,
		Version:       2,
	}
}

func newAuthedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	actor := domain.Actor{ID: uuid.New(), Name: "Carlos Ruiz"}
	return req.WithContext(auth.ContextWithActor(req.Context(), actor))
}

func routeMux(h *CreditHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/stores/{storeID}/credits", h.Create)
	mux.HandleFunc("POST /api/v1/stores/{storeID}/credits/{id}/payments", h.ApplyPayment)
	mux.HandleFunc("POST /api/v1/stores/{storeID}/credits/{id}/cancel", h.CancelCredit)
	return mux
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestCreateCredit_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "empty body fields",
			body:     `{}`,
			wantCode: "VALIDATION_FAILED",
		},
		{
			name:     "negative total",
			body:     fmt.Sprintf(`{"client_id":%q,"client_name":"Maria","invoice_number":"INV-1","total_amount":-5}`, uuid.NewString()),
			wantCode: "VALIDATION_FAILED",
		},
		{
			name:     "malformed json",
			body:     `{"client_id":`,
			wantCode: "INVALID_REQUEST",
		},
		{
			name:     "bad client uuid",
			body:     `{"client_id":"not-a-uuid","client_name":"Maria","invoice_number":"INV-1","total_amount":100}`,
			wantCode: "VALIDATION_FAILED",
		},
	}

	h := NewCreditHandler(&stubLedgerService{credit: stubCredit()})
	mux := routeMux(h)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := newAuthedRequest(t, http.MethodPost,
				"/api/v1/stores/"+uuid.NewString()+"/credits", tc.body)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			resp := decodeResponse(t, rec)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestCreateCredit_InvalidStoreID(t *testing.T) {
	h := NewCreditHandler(&stubLedgerService{credit: stubCredit()})
	mux := routeMux(h)

	body := fmt.Sprintf(`{"client_id":%q,"client_name":"Maria","invoice_number":"INV-1","total_amount":100}`, uuid.NewString())
	req := newAuthedRequest(t, http.MethodPost, "/api/v1/stores/not-a-uuid/credits", body)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_STORE_ID", resp.Error.Code)
}

func TestApplyPayment_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "overpayment",
			svcErr:     fmt.Errorf("ApplyPayment: %w", domain.ErrOverpayment),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "OVERPAYMENT",
		},
		{
			name:       "credit cancelled",
			svcErr:     fmt.Errorf("ApplyPayment: %w", domain.ErrCreditCancelled),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "CREDIT_CANCELLED",
		},
		{
			name:       "version conflict",
			svcErr:     fmt.Errorf("ApplyPayment: %w", domain.ErrVersionConflict),
			wantStatus: http.StatusConflict,
			wantCode:   "VERSION_CONFLICT",
		},
		{
			name:       "store timeout",
			svcErr:     fmt.Errorf("ApplyPayment: %w", domain.ErrStoreTimeout),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "STORE_TIMEOUT",
		},
		{
			name:       "not found",
			svcErr:     fmt.Errorf("ApplyPayment: %w", domain.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "RESOURCE_NOT_FOUND",
		},
		{
			name:       "invariant violation hides detail",
			svcErr:     fmt.Errorf("ApplyPayment: %w", domain.ErrInvariantViolation),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewCreditHandler(&stubLedgerService{err: tc.svcErr})
			mux := routeMux(h)

			req := newAuthedRequest(t, http.MethodPost,
				fmt.Sprintf("/api/v1/stores/%s/credits/%s/payments", uuid.NewString(), uuid.NewString()),
				`{"amount":5000,"method":"cash"}`)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			resp := decodeResponse(t, rec)
			assert.Equal(t, tc.wantStatus, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestApplyPayment_PassesActorAndMethod(t *testing.T) {
	stub := &stubLedgerService{credit: stubCredit(), payment: &domain.PaymentRecord{
		ID: uuid.New(), Method: domain.PaymentMethodMixed, Status: domain.PaymentRecordStatusActive,
	}}
	h := NewCreditHandler(stub)
	mux := routeMux(h)

	req := newAuthedRequest(t, http.MethodPost,
		fmt.Sprintf("/api/v1/stores/%s/credits/%s/payments", uuid.NewString(), uuid.NewString()),
		`{"amount":5000,"method":"mixed","cash_amount":3000,"transfer_amount":2000}`)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.PaymentMethodMixed, stub.appliedReq.Method)
	assert.Equal(t, "Carlos Ruiz", stub.appliedReq.Actor.Name)
	require.NotNil(t, stub.appliedReq.CashAmount)
	assert.Equal(t, int64(3000), *stub.appliedReq.CashAmount)
}

func TestCancelCredit_RequiresReason(t *testing.T) {
	h := NewCreditHandler(&stubLedgerService{credit: stubCredit()})
	mux := routeMux(h)

	req := newAuthedRequest(t, http.MethodPost,
		fmt.Sprintf("/api/v1/stores/%s/credits/%s/cancel", uuid.NewString(), uuid.NewString()),
		`{"reason":""}`)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}
