// Package carrier provides an abstraction layer for third-party delivery providers.
package carrier

import (
	"context"
)

// Carrier defines the interface that all delivery providers must implement.
type Carrier interface {
	// Key returns the stable provider identifier (e.g. "glovo", "dhl").
	Key() Key

	// GetQuote returns a priced, time-estimated offer for a shipment.
	GetQuote(ctx context.Context, req *QuoteRequest) (*Quote, error)

	// CreateOrder creates a binding shipment with the provider.
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)

	// TrackOrder returns the provider's current view of an order.
	TrackOrder(ctx context.Context, externalOrderID string) (*TrackResponse, error)

	// CancelOrder cancels an existing shipment.
	CancelOrder(ctx context.Context, externalOrderID string) (*CancelResponse, error)

	// Serviceable reports whether the provider covers the requested route.
	// It is a pure function of the request shape (e.g. a provider may only
	// serve domestic routes, another only international ones).
	Serviceable(req *QuoteRequest) bool
}

// AddressRegistrar is an optional capability for providers that keep a
// reusable address book. Registering a pickup location once and passing the
// returned id on subsequent calls avoids duplicate-registration rejections.
type AddressRegistrar interface {
	// CreateAddress registers a pickup location and returns the
	// provider-issued address-book id.
	CreateAddress(ctx context.Context, req *CreateAddressRequest) (string, error)
}
