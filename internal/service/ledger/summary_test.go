package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tiendapos/credit-ledger/internal/domain"
)

func clientCredit(total, paid int64, status domain.CreditStatus) domain.Credit {
	return domain.Credit{
		ID:            uuid.New(),
		ClientName:    "Maria Lopez",
		TotalAmount:   total,
		PaidAmount:    paid,
		PendingAmount: total - paid,
		Status:        status,
	}
}

func TestSummarize(t *testing.T) {
	clientID := uuid.New()

	t.Run("no credits", func(t *testing.T) {
		s := summarize(clientID, nil, false)

		assert.Equal(t, 0, s.CreditCount)
		assert.Equal(t, int64(0), s.TotalAmount)
		assert.Equal(t, int64(0), s.PendingAmount)
		assert.Equal(t, domain.CreditStatusPending, s.Status)
		assert.True(t, s.Progress.IsZero())
	})

	t.Run("mixed credits sum into partial", func(t *testing.T) {
		credits := []domain.Credit{
			clientCredit(100_000, 40_000, domain.CreditStatusPartial),
			clientCredit(50_000, 50_000, domain.CreditStatusCompleted),
		}

		s := summarize(clientID, credits, false)

		assert.Equal(t, 2, s.CreditCount)
		assert.Equal(t, int64(150_000), s.TotalAmount)
		assert.Equal(t, int64(90_000), s.PaidAmount)
		assert.Equal(t, int64(60_000), s.PendingAmount)
		assert.Equal(t, domain.CreditStatusPartial, s.Status)
		assert.True(t, s.Progress.Equal(decimal.RequireFromString("0.6")), "progress was %s", s.Progress)
	})

	t.Run("all credits completed", func(t *testing.T) {
		credits := []domain.Credit{
			clientCredit(100_000, 100_000, domain.CreditStatusCompleted),
			clientCredit(50_000, 50_000, domain.CreditStatusCompleted),
		}

		s := summarize(clientID, credits, false)

		assert.Equal(t, domain.CreditStatusCompleted, s.Status)
		assert.Equal(t, int64(0), s.PendingAmount)
		assert.True(t, s.Progress.Equal(decimal.NewFromInt(1)))
	})

	t.Run("cancelled credits are skipped by default", func(t *testing.T) {
		cancelled := clientCredit(80_000, 20_000, domain.CreditStatusCancelled)
		credits := []domain.Credit{
			clientCredit(100_000, 40_000, domain.CreditStatusPartial),
			cancelled,
		}

		s := summarize(clientID, credits, false)

		assert.Equal(t, 1, s.CreditCount)
		assert.Equal(t, int64(100_000), s.TotalAmount)
		assert.Equal(t, int64(60_000), s.PendingAmount)
	})

	t.Run("cancelled credits included on request", func(t *testing.T) {
		credits := []domain.Credit{
			clientCredit(100_000, 40_000, domain.CreditStatusPartial),
			clientCredit(80_000, 20_000, domain.CreditStatusCancelled),
		}

		s := summarize(clientID, credits, true)

		assert.Equal(t, 2, s.CreditCount)
		assert.Equal(t, int64(180_000), s.TotalAmount)
		assert.Equal(t, int64(60_000), s.PaidAmount)
	})

	t.Run("only cancelled credits and none included reads as pending", func(t *testing.T) {
		credits := []domain.Credit{
			clientCredit(80_000, 20_000, domain.CreditStatusCancelled),
		}

		s := summarize(clientID, credits, false)

		assert.Equal(t, 0, s.CreditCount)
		assert.Equal(t, domain.CreditStatusPending, s.Status)
	})
}
