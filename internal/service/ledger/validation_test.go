package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiendapos/credit-ledger/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestValidatePayment(t *testing.T) {
	tests := []struct {
		name    string
		req     ApplyPaymentRequest
		wantErr error
	}{
		{
			name: "valid cash payment",
			req:  ApplyPaymentRequest{Amount: 5000, Method: domain.PaymentMethodCash},
		},
		{
			name: "valid transfer payment",
			req:  ApplyPaymentRequest{Amount: 5000, Method: domain.PaymentMethodTransfer},
		},
		{
			name: "valid mixed payment",
			req: ApplyPaymentRequest{
				Amount: 5000, Method: domain.PaymentMethodMixed,
				CashAmount: int64Ptr(3000), TransferAmount: int64Ptr(2000),
			},
		},
		{
			name: "mixed with zero cash part",
			req: ApplyPaymentRequest{
				Amount: 5000, Method: domain.PaymentMethodMixed,
				CashAmount: int64Ptr(0), TransferAmount: int64Ptr(5000),
			},
		},
		{
			name:    "amount zero",
			req:     ApplyPaymentRequest{Amount: 0, Method: domain.PaymentMethodCash},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "amount negative",
			req:     ApplyPaymentRequest{Amount: -100, Method: domain.PaymentMethodCash},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "unknown method",
			req:     ApplyPaymentRequest{Amount: 5000, Method: domain.PaymentMethod("check")},
			wantErr: domain.ErrInvalidMethod,
		},
		{
			name:    "mixed missing split",
			req:     ApplyPaymentRequest{Amount: 5000, Method: domain.PaymentMethodMixed},
			wantErr: domain.ErrSplitMismatch,
		},
		{
			name: "mixed missing transfer part",
			req: ApplyPaymentRequest{
				Amount: 5000, Method: domain.PaymentMethodMixed,
				CashAmount: int64Ptr(5000),
			},
			wantErr: domain.ErrSplitMismatch,
		},
		{
			name: "mixed split does not sum",
			req: ApplyPaymentRequest{
				Amount: 5000, Method: domain.PaymentMethodMixed,
				CashAmount: int64Ptr(3000), TransferAmount: int64Ptr(1000),
			},
			wantErr: domain.ErrSplitMismatch,
		},
		{
			name: "mixed negative cash part",
			req: ApplyPaymentRequest{
				Amount: 5000, Method: domain.PaymentMethodMixed,
				CashAmount: int64Ptr(-1000), TransferAmount: int64Ptr(6000),
			},
			wantErr: domain.ErrSplitMismatch,
		},
		{
			name: "cash payment must not carry split",
			req: ApplyPaymentRequest{
				Amount: 5000, Method: domain.PaymentMethodCash,
				CashAmount: int64Ptr(5000),
			},
			wantErr: domain.ErrSplitMismatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePayment(tc.req)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
