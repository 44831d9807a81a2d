package glovo

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
	BaseURL string
	APIKey  string
	Timeout time.Duration
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

// EstimateOrder calls POST /v2/laas/estimate.
func (c *HTTPAPIClient) EstimateOrder(ctx context.Context, req *EstimateRequest) (*EstimateResponse, error) {
	var resp EstimateResponse
	if err := c.do(ctx, http.MethodPost, "/v2/laas/estimate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateParcel calls POST /v2/laas/parcels.
func (c *HTTPAPIClient) CreateParcel(ctx context.Context, req *ParcelRequest) (*ParcelResponse, error) {
	var resp ParcelResponse
	if err := c.do(ctx, http.MethodPost, "/v2/laas/parcels", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetParcel calls GET /v2/laas/parcels/{id}.
func (c *HTTPAPIClient) GetParcel(ctx context.Context, parcelID string) (*ParcelStatusResponse, error) {
	var resp ParcelStatusResponse
	if err := c.do(ctx, http.MethodGet, "/v2/laas/parcels/"+parcelID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelParcel calls POST /v2/laas/parcels/{id}/cancel.
func (c *HTTPAPIClient) CancelParcel(ctx context.Context, parcelID string) (*ParcelCancelResponse, error) {
	var resp ParcelCancelResponse
	if err := c.do(ctx, http.MethodPost, "/v2/laas/parcels/"+parcelID+"/cancel", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateAddressBookEntry calls POST /v2/laas/addresses.
func (c *HTTPAPIClient) CreateAddressBookEntry(ctx context.Context, req *AddressBookRequest) (*AddressBookResponse, error) {
	var resp AddressBookResponse
	if err := c.do(ctx, http.MethodPost, "/v2/laas/addresses", req, &resp); err != nil {
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
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
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
	if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Code == "" {
		apiErr = APIError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: string(raw)}
	}

	cerr := carrier.NewError(carrierKey, apiErr.Code, apiErr.Message).
		WithStatusCode(resp.StatusCode).WithCause(&apiErr)

	switch {
	case resp.StatusCode == http.StatusConflict:
		return cerr.WithCause(carrier.ErrAddressConflict)
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
