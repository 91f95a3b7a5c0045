package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPGateway submits charges to the deployed payment gateway. The
// transaction id travels as the idempotency key header so the gateway can
// deduplicate retried charges.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type chargeResponse struct {
	PaymentID string `json:"payment_id"`
	Error     string `json:"error"`
}

func (g *HTTPGateway) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	body, err := json.Marshal(map[string]string{
		"order_id": req.OrderID,
		"amount":   req.Amount,
	})
	if err != nil {
		return "", fmt.Errorf("marshal charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charge", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.TransactionID)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("charge request failed: %w", err)
	}
	defer resp.Body.Close()

	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode charge response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", fmt.Errorf("charge declined: %s", out.Error)
		}
		return "", fmt.Errorf("charge returned status %d", resp.StatusCode)
	}
	return out.PaymentID, nil
}
