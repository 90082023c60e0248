package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		paid  int64
		want  CreditStatus
	}{
		{"no payments", 100_000, 0, CreditStatusPending},
		{"partially paid", 100_000, 40_000, CreditStatusPartial},
		{"fully paid", 100_000, 100_000, CreditStatusCompleted},
		{"one unit short", 100_000, 99_999, CreditStatusPartial},
		{"minimal credit fully paid", 1, 1, CreditStatusCompleted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.total, tc.paid))
		})
	}
}

func TestStatusAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -5)
	future := now.AddDate(0, 0, 5)

	tests := []struct {
		name   string
		credit Credit
		want   CreditStatus
	}{
		{
			name:   "pending past due date becomes overdue",
			credit: Credit{Status: CreditStatusPending, PendingAmount: 100_000, DueDate: &past},
			want:   CreditStatusOverdue,
		},
		{
			name:   "partial past due date becomes overdue",
			credit: Credit{Status: CreditStatusPartial, PendingAmount: 60_000, DueDate: &past},
			want:   CreditStatusOverdue,
		},
		{
			name:   "pending before due date stays pending",
			credit: Credit{Status: CreditStatusPending, PendingAmount: 100_000, DueDate: &future},
			want:   CreditStatusPending,
		},
		{
			name:   "no due date never overdue",
			credit: Credit{Status: CreditStatusPending, PendingAmount: 100_000},
			want:   CreditStatusPending,
		},
		{
			name:   "completed is never overdue",
			credit: Credit{Status: CreditStatusCompleted, PendingAmount: 0, DueDate: &past},
			want:   CreditStatusCompleted,
		},
		{
			name:   "cancelled is never overdue",
			credit: Credit{Status: CreditStatusCancelled, PendingAmount: 40_000, DueDate: &past},
			want:   CreditStatusCancelled,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.credit.StatusAt(now))
		})
	}
}
