package dhl

import (
	"context"
)

// APIClient defines the interface for DHL Express API operations.
type APIClient interface {
	// GetRates fetches shipping rates
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)

	// CreateShipment books an international shipment
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// GetTracking retrieves tracking information
	GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error)

	// CancelShipment cancels a booked shipment
	CancelShipment(ctx context.Context, trackingNumber string) (*CancelShipmentResponse, error)
}

// ============================================================================
// API Request/Response Types
// ============================================================================

// RateAddress is one side of a rated route.
type RateAddress struct {
	CityName    string `json:"cityName"`
	CountryCode string `json:"countryCode"`
	PostalCode  string `json:"postalCode,omitempty"`
	AddressLine string `json:"addressLine1"`
}

// RatePackage describes the parcel for rating.
type RatePackage struct {
	Weight      float64 `json:"weight"` // kg
	Length      float64 `json:"length,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Description string  `json:"description,omitempty"`
}

// RatesRequest asks for product rates on a route.
// POST /rates
type RatesRequest struct {
	Shipper    RateAddress   `json:"shipperDetails"`
	Receiver   RateAddress   `json:"receiverDetails"`
	Packages   []RatePackage `json:"packages"`
	IsDocument bool          `json:"isCustomsDeclarable"`
}

// RateProduct is one offered product.
type RateProduct struct {
	ProductCode  string  `json:"productCode"`
	ProductName  string  `json:"productName"`
	TotalPrice   float64 `json:"totalPrice"`
	Currency     string  `json:"priceCurrency"`
	DeliveryTime string  `json:"estimatedDeliveryTime"` // e.g. "3-5 days"
}

// RatesResponse carries the offered products.
type RatesResponse struct {
	Products []RateProduct `json:"products"`
}

// ShipmentRequest books a shipment.
// POST /shipments
type ShipmentRequest struct {
	ProductCode      string        `json:"productCode"`
	CustomerRef      string        `json:"customerReference"`
	Shipper          RateAddress   `json:"shipperDetails"`
	Receiver         RateAddress   `json:"receiverDetails"`
	ShipperName      string        `json:"shipperName"`
	ShipperPhone     string        `json:"shipperPhone"`
	ReceiverName     string        `json:"receiverName"`
	ReceiverPhone    string        `json:"receiverPhone"`
	Packages         []RatePackage `json:"packages"`
	DeclaredValue    float64       `json:"declaredValue,omitempty"`
	DeclaredCurrency string        `json:"declaredValueCurrency,omitempty"`
}

// ShipmentResponse confirms a booking.
type ShipmentResponse struct {
	ShipmentTrackingNumber string  `json:"shipmentTrackingNumber"`
	Status                 string  `json:"status"`
	TotalPrice             float64 `json:"totalPrice"`
	Currency               string  `json:"priceCurrency"`
	TrackingURL            string  `json:"trackingUrl"`
}

// TrackingEvent is one scan event.
type TrackingEvent struct {
	Timestamp   string `json:"timestamp"`
	StatusCode  string `json:"statusCode"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// TrackingResponse is the current tracking state.
// GET /tracking/{trackingNumber}
type TrackingResponse struct {
	TrackingNumber string          `json:"shipmentTrackingNumber"`
	Status         string          `json:"status"`
	Events         []TrackingEvent `json:"events"`
}

// CancelShipmentResponse acknowledges a cancellation.
// DELETE /shipments/{trackingNumber}
type CancelShipmentResponse struct {
	TrackingNumber string `json:"shipmentTrackingNumber"`
	Status         string `json:"status"`
}

// APIError is an error payload from the DHL API.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Title + ": " + e.Detail
}
