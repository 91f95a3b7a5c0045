package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPLookup queries the deployed inventory service for availability.
type HTTPLookup struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLookup(baseURL string) *HTTPLookup {
	return &HTTPLookup{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (l *HTTPLookup) Lookup(ctx context.Context, productID int64, color string) (*Availability, error) {
	q := url.Values{}
	q.Set("product_id", strconv.FormatInt(productID, 10))
	q.Set("color", color)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/availability?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build availability request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("availability request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrProductNotFound
	default:
		return nil, fmt.Errorf("availability request returned status %d", resp.StatusCode)
	}

	var avail Availability
	if err := json.NewDecoder(resp.Body).Decode(&avail); err != nil {
		return nil, fmt.Errorf("decode availability response: %w", err)
	}
	return &avail, nil
}
