package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tiendapos/credit-ledger/internal/domain"
)

// ClientSummary consolidates a client's credits into one read-only view.
// It performs no mutation.
type ClientSummary struct {
	ClientID      uuid.UUID
	ClientName    string
	CreditCount   int
	TotalAmount   int64
	PaidAmount    int64
	PendingAmount int64
	Status        domain.CreditStatus
	// Fraction of the summed total already collected, for display.
	Progress decimal.Decimal
}

// SummarizeClient groups all of a client's credits into one summary.
// With includeCancelled the sums reflect historical totals including
// cancelled debt; without it, only collectible credits are counted so
// the pending figure does not mislead collections.
func (s *Service) SummarizeClient(ctx context.Context, storeID, clientID uuid.UUID, includeCancelled bool) (*ClientSummary, error) {
	ctx, cancel := s.boundStore(ctx)
	defer cancel()

	credits, err := s.credits.ListByClient(ctx, storeID, clientID)
	if err != nil {
		return nil, fmt.Errorf("SummarizeClient: %w", mapStoreErr(err))
	}

	return summarize(clientID, credits, includeCancelled), nil
}

func summarize(clientID uuid.UUID, credits []domain.Credit, includeCancelled bool) *ClientSummary {
	summary := &ClientSummary{
		ClientID: clientID,
		Status:   domain.CreditStatusPending,
		Progress: decimal.Zero,
	}

	for _, c := range credits {
		if c.IsCancelled() && !includeCancelled {
			continue
		}
		summary.ClientName = c.ClientName
		summary.CreditCount++
		summary.TotalAmount += c.TotalAmount
		summary.PaidAmount += c.PaidAmount
		summary.PendingAmount += c.PendingAmount
	}

	if summary.TotalAmount > 0 {
		summary.Progress = decimal.NewFromInt(summary.PaidAmount).
			Div(decimal.NewFromInt(summary.TotalAmount)).
			Round(4)
	}

	switch {
	case summary.CreditCount > 0 && summary.PendingAmount == 0:
		summary.Status = domain.CreditStatusCompleted
	case summary.PaidAmount > 0:
		summary.Status = domain.CreditStatusPartial
	}

	return summary
}
