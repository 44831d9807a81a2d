package glovo

import (
	"context"
)

// APIClient defines the interface for Glovo On-Demand API operations.
// The abstraction allows a mock implementation during testing and the real
// HTTP implementation in production.
type APIClient interface {
	// EstimateOrder fetches a delivery price estimate
	EstimateOrder(ctx context.Context, req *EstimateRequest) (*EstimateResponse, error)

	// CreateParcel creates a delivery order
	CreateParcel(ctx context.Context, req *ParcelRequest) (*ParcelResponse, error)

	// GetParcel retrieves the current state of an order
	GetParcel(ctx context.Context, parcelID string) (*ParcelStatusResponse, error)

	// CancelParcel cancels an order
	CancelParcel(ctx context.Context, parcelID string) (*ParcelCancelResponse, error)

	// CreateAddressBookEntry registers a reusable pickup address
	CreateAddressBookEntry(ctx context.Context, req *AddressBookRequest) (*AddressBookResponse, error)
}

// ============================================================================
// API Request/Response Types
// ============================================================================

// Point is a pickup or drop-off location.
type Point struct {
	AddressBookID string   `json:"address_book_id,omitempty"`
	RawAddress    string   `json:"raw_address,omitempty"`
	City          string   `json:"city,omitempty"`
	Coordinates   *LatLng  `json:"coordinates,omitempty"`
	Details       string   `json:"details,omitempty"`
	ContactName   string   `json:"contact_name,omitempty"`
	ContactPhone  string   `json:"contact_phone,omitempty"`
}

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PackageDetails describes the parcel.
type PackageDetails struct {
	Description string  `json:"description"`
	WeightKG    float64 `json:"weight_kg,omitempty"`
	IsDocument  bool    `json:"is_document,omitempty"`
}

// EstimateRequest asks for a price estimate.
// POST /v2/laas/estimate
type EstimateRequest struct {
	Pickup   Point          `json:"pickup"`
	Delivery Point          `json:"delivery"`
	Package  PackageDetails `json:"package"`
}

// EstimateResponse carries the estimate.
type EstimateResponse struct {
	QuoteID       string  `json:"quote_id"`
	TotalAmount   float64 `json:"total_amount"`
	Currency      string  `json:"currency"`
	EstimatedTime string  `json:"estimated_time_of_arrival"` // e.g. "45 mins"
	ServiceType   string  `json:"service_type"`              // e.g. "EXPRESS_ON_DEMAND"
}

// ParcelRequest creates a delivery order.
// POST /v2/laas/parcels
type ParcelRequest struct {
	QuoteID    string         `json:"quote_id,omitempty"`
	PartnerRef string         `json:"partner_reference"`
	Pickup     Point          `json:"pickup"`
	Delivery   Point          `json:"delivery"`
	Package    PackageDetails `json:"package"`
}

// ParcelResponse confirms an order.
type ParcelResponse struct {
	TrackingNumber string  `json:"tracking_number"`
	OrderCode      string  `json:"order_code"`
	Status         string  `json:"status"` // CREATED, ACCEPTED, ...
	TotalAmount    float64 `json:"total_amount"`
	Currency       string  `json:"currency"`
	TrackingURL    string  `json:"tracking_url"`
}

// ParcelStatusResponse is the current state of an order.
// GET /v2/laas/parcels/{id}
type ParcelStatusResponse struct {
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
	UpdatedAt      string `json:"updated_at"` // RFC3339
}

// ParcelCancelResponse acknowledges a cancellation.
// POST /v2/laas/parcels/{id}/cancel
type ParcelCancelResponse struct {
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
}

// AddressBookRequest registers a reusable pickup address.
// POST /v2/laas/addresses
type AddressBookRequest struct {
	FormattedAddress string  `json:"formatted_address"`
	Coordinates      *LatLng `json:"coordinates,omitempty"`
	ContactPhone     string  `json:"contact_phone"`
}

// AddressBookResponse carries the issued address id.
type AddressBookResponse struct {
	AddressBookID string `json:"address_book_id"`
}

// APIError is an error payload from the Glovo API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
