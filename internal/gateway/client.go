package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// HTTPDoer defines the http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client posts signed payment requests to the external gateway.
type Client struct {
	endpoint string
	http     HTTPDoer
}

// NewClient builds a gateway client for the given endpoint.
func NewClient(endpoint string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     doer,
	}
}

// CreatePayment sends a payment creation request and decodes the synchronous
// answer. Transport errors (including timeouts) are returned as-is so the
// caller can leave its ledger entry pending.
func (c *Client) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/create", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}

	var out CreateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("gateway: decode response (status %d): %w", resp.StatusCode, err)
	}
	return &out, nil
}
