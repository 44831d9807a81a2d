package dhl

import (
	"context"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors bool

	OnGetRates       func(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
	OnCreateShipment func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnGetTracking    func(ctx context.Context, trackingNumber string) (*TrackingResponse, error)
	OnCancelShipment func(ctx context.Context, trackingNumber string) (*CancelShipmentResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// GetRates returns mock rates.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	if m.SimulateErrors {
		return nil, &APIError{Status: 500, Title: "MOCK_ERROR", Detail: "simulated API error"}
	}
	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}
	return &RatesResponse{
		Products: []RateProduct{
			{
				ProductCode:  "P",
				ProductName:  "EXPRESS WORLDWIDE",
				TotalPrice:   85000.00,
				Currency:     "NGN",
				DeliveryTime: "3-5 days",
			},
			{
				ProductCode:  "K",
				ProductName:  "EXPRESS 9:00",
				TotalPrice:   124000.00,
				Currency:     "NGN",
				DeliveryTime: "2 days",
			},
		},
	}, nil
}

// CreateShipment returns a mock booking.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if m.SimulateErrors {
		return nil, &APIError{Status: 500, Title: "MOCK_ERROR", Detail: "simulated API error"}
	}
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}
	tracking := "DHL" + uuid.New().String()[:10]
	return &ShipmentResponse{
		ShipmentTrackingNumber: tracking,
		Status:                 "created",
		TotalPrice:             85000.00,
		Currency:               "NGN",
		TrackingURL:            "https://www.dhl.com/track?number=" + tracking,
	}, nil
}

// GetTracking returns mock tracking state.
func (m *MockAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error) {
	if m.SimulateErrors {
		return nil, &APIError{Status: 500, Title: "MOCK_ERROR", Detail: "simulated API error"}
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, trackingNumber)
	}
	return &TrackingResponse{
		TrackingNumber: trackingNumber,
		Status:         "transit",
	}, nil
}

// CancelShipment returns a mock cancellation.
func (m *MockAPIClient) CancelShipment(ctx context.Context, trackingNumber string) (*CancelShipmentResponse, error) {
	if m.SimulateErrors {
		return nil, &APIError{Status: 500, Title: "MOCK_ERROR", Detail: "simulated API error"}
	}
	if m.OnCancelShipment != nil {
		return m.OnCancelShipment(ctx, trackingNumber)
	}
	return &CancelShipmentResponse{
		TrackingNumber: trackingNumber,
		Status:         "cancelled",
	}, nil
}
