package dhl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parceldeck/broker/pkg/carrier"
)

// HTTPAPIClientConfig holds configuration for the real API client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	APIKey    string
	AccountID string
	Timeout   time.Duration
}

// HTTPAPIClient is the production implementation of APIClient.
type HTTPAPIClient struct {
	cfg        HTTPAPIClientConfig
	httpClient *http.Client
}

// NewHTTPAPIClient creates a new HTTP API client.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPAPIClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// GetRates calls POST /rates.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	var resp RatesResponse
	if err := c.do(ctx, http.MethodPost, "/rates", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateShipment calls POST /shipments.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	var resp ShipmentResponse
	if err := c.do(ctx, http.MethodPost, "/shipments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTracking calls GET /tracking/{trackingNumber}.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error) {
	var resp TrackingResponse
	if err := c.do(ctx, http.MethodGet, "/tracking/"+trackingNumber, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelShipment calls DELETE /shipments/{trackingNumber}.
func (c *HTTPAPIClient) CancelShipment(ctx context.Context, trackingNumber string) (*CancelShipmentResponse, error) {
	var resp CancelShipmentResponse
	if err := c.do(ctx, http.MethodDelete, "/shipments/"+trackingNumber, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPAPIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("DHL-API-Key", c.cfg.APIKey)
	req.Header.Set("Account-Number", c.cfg.AccountID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return carrier.NewError(carrierKey, "NETWORK_ERROR", "request failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *HTTPAPIClient) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr APIError
	if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Title == "" {
		apiErr = APIError{Status: resp.StatusCode, Title: fmt.Sprintf("HTTP_%d", resp.StatusCode), Detail: string(raw)}
	}

	cerr := carrier.NewError(carrierKey, apiErr.Title, apiErr.Detail).
		WithStatusCode(resp.StatusCode).WithCause(&apiErr)

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return cerr.WithCause(carrier.ErrAuthenticationFailed)
	case resp.StatusCode == http.StatusTooManyRequests:
		return cerr.WithCause(carrier.ErrRateLimited).WithRetryable(true)
	case resp.StatusCode >= 500:
		return cerr.WithCause(carrier.ErrServiceUnavailable).WithRetryable(true)
	default:
		return cerr
	}
}
