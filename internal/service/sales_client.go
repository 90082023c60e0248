package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tiendapos/credit-ledger/internal/domain"
	"github.com/tiendapos/credit-ledger/internal/logging"
)

// SalesClient notifies the sale-management service that a sale-linked
// credit changed status, so the sale's creditStatus mirror stays in sync.
type SalesClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSalesClient(baseURL string) *SalesClient {
	return &SalesClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *SalesClient) NotifyCreditStatus(ctx context.Context, payload domain.SaleMirrorPayload) error {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("NotifyCreditStatus: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/internal/sales/%s/credit-status", c.baseURL, payload.SaleID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("NotifyCreditStatus: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("NotifyCreditStatus: send: %w", err)
	}
	defer resp.Body.Close()

	log.Info("sale mirror notification sent",
		"sale_id", payload.SaleID,
		"credit_id", payload.CreditID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("NotifyCreditStatus: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
