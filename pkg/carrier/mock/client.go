// Package mock provides a scriptable carrier implementation for tests and
// local development.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/parceldeck/broker/pkg/carrier"
)

// Client is a mock carrier. Every method can be overridden with an OnX hook;
// without hooks it returns deterministic canned data. All invocations are
// recorded so tests can assert call counts and arguments.
type Client struct {
	key carrier.Key

	OnGetQuote      func(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error)
	OnCreateOrder   func(ctx context.Context, req *carrier.CreateOrderRequest) (*carrier.CreateOrderResponse, error)
	OnTrackOrder    func(ctx context.Context, externalOrderID string) (*carrier.TrackResponse, error)
	OnCancelOrder   func(ctx context.Context, externalOrderID string) (*carrier.CancelResponse, error)
	OnCreateAddress func(ctx context.Context, req *carrier.CreateAddressRequest) (string, error)
	OnServiceable   func(req *carrier.QuoteRequest) bool

	mu           sync.Mutex
	calls        map[string]int
	cancelledIDs []string
	orderReqs    []*carrier.CreateOrderRequest
}

// New creates a new mock carrier with the given key.
func New(key carrier.Key) *Client {
	return &Client{
		key:   key,
		calls: make(map[string]int),
	}
}

// Key returns the carrier key.
func (c *Client) Key() carrier.Key {
	return c.key
}

// Serviceable reports route coverage; by default the mock serves everything.
func (c *Client) Serviceable(req *carrier.QuoteRequest) bool {
	if c.OnServiceable != nil {
		return c.OnServiceable(req)
	}
	return true
}

// GetQuote returns a mock quote.
func (c *Client) GetQuote(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	c.record("GetQuote")
	if c.OnGetQuote != nil {
		return c.OnGetQuote(ctx, req)
	}
	return &carrier.Quote{
		Carrier:        c.key,
		Price:          carrier.Money{Amount: 150000, Currency: "NGN"},
		RawServiceType: "standard",
		RawETA:         "2-3 days",
		Meta:           map[string]string{"service_id": "mock-standard"},
	}, nil
}

// CreateOrder creates a mock shipment.
func (c *Client) CreateOrder(ctx context.Context, req *carrier.CreateOrderRequest) (*carrier.CreateOrderResponse, error) {
	c.record("CreateOrder")
	c.mu.Lock()
	c.orderReqs = append(c.orderReqs, req)
	c.mu.Unlock()
	if c.OnCreateOrder != nil {
		return c.OnCreateOrder(ctx, req)
	}
	now := time.Now()
	orderID := fmt.Sprintf("%s-order-%d", c.key, now.UnixNano())
	return &carrier.CreateOrderResponse{
		ExternalOrderID: orderID,
		TrackingRef:     fmt.Sprintf("TRK-%s-%d", c.key, now.UnixNano()%1000000),
		TrackingURL:     fmt.Sprintf("https://track.%s.mock/%s", c.key, orderID),
		Status:          carrier.StatusConfirmed,
		RawStatus:       "confirmed",
		Price:           carrier.Money{Amount: 150000, Currency: "NGN"},
	}, nil
}

// TrackOrder returns a mock tracking snapshot.
func (c *Client) TrackOrder(ctx context.Context, externalOrderID string) (*carrier.TrackResponse, error) {
	c.record("TrackOrder")
	if c.OnTrackOrder != nil {
		return c.OnTrackOrder(ctx, externalOrderID)
	}
	return &carrier.TrackResponse{
		Status:    carrier.StatusInTransit,
		RawStatus: "in_transit",
		UpdatedAt: time.Now(),
		Raw:       json.RawMessage(fmt.Sprintf(`{"order_id":%q}`, externalOrderID)),
	}, nil
}

// CancelOrder cancels a mock shipment and records the cancelled id.
func (c *Client) CancelOrder(ctx context.Context, externalOrderID string) (*carrier.CancelResponse, error) {
	c.record("CancelOrder")
	c.mu.Lock()
	c.cancelledIDs = append(c.cancelledIDs, externalOrderID)
	c.mu.Unlock()
	if c.OnCancelOrder != nil {
		return c.OnCancelOrder(ctx, externalOrderID)
	}
	return &carrier.CancelResponse{
		ExternalOrderID: externalOrderID,
		Status:          carrier.StatusCancelled,
	}, nil
}

// CreateAddress registers a mock address-book entry.
func (c *Client) CreateAddress(ctx context.Context, req *carrier.CreateAddressRequest) (string, error) {
	c.record("CreateAddress")
	if c.OnCreateAddress != nil {
		return c.OnCreateAddress(ctx, req)
	}
	return fmt.Sprintf("%s-addr-%d", c.key, c.Calls("CreateAddress")), nil
}

// Calls returns the number of recorded invocations of a method.
func (c *Client) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// CancelledIDs returns the external order ids passed to CancelOrder.
func (c *Client) CancelledIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.cancelledIDs))
	copy(out, c.cancelledIDs)
	return out
}

// OrderRequests returns the requests passed to CreateOrder.
func (c *Client) OrderRequests() []*carrier.CreateOrderRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*carrier.CreateOrderRequest, len(c.orderReqs))
	copy(out, c.orderReqs)
	return out
}

func (c *Client) record(method string) {
	c.mu.Lock()
	c.calls[method]++
	c.mu.Unlock()
}
