package glovo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors bool

	OnEstimateOrder     func(ctx context.Context, req *EstimateRequest) (*EstimateResponse, error)
	OnCreateParcel      func(ctx context.Context, req *ParcelRequest) (*ParcelResponse, error)
	OnGetParcel         func(ctx context.Context, parcelID string) (*ParcelStatusResponse, error)
	OnCancelParcel      func(ctx context.Context, parcelID string) (*ParcelCancelResponse, error)
	OnCreateAddressBook func(ctx context.Context, req *AddressBookRequest) (*AddressBookResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// EstimateOrder returns a mock estimate.
func (m *MockAPIClient) EstimateOrder(ctx context.Context, req *EstimateRequest) (*EstimateResponse, error) {
	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "simulated API error"}
	}
	if m.OnEstimateOrder != nil {
		return m.OnEstimateOrder(ctx, req)
	}
	return &EstimateResponse{
		QuoteID:       "glv-quote-" + uuid.New().String()[:8],
		TotalAmount:   1850.00,
		Currency:      "NGN",
		EstimatedTime: "45 mins",
		ServiceType:   "EXPRESS_ON_DEMAND",
	}, nil
}

// CreateParcel returns a mock order confirmation.
func (m *MockAPIClient) CreateParcel(ctx context.Context, req *ParcelRequest) (*ParcelResponse, error) {
	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "simulated API error"}
	}
	if m.OnCreateParcel != nil {
		return m.OnCreateParcel(ctx, req)
	}
	tracking := "GLV" + uuid.New().String()[:8]
	return &ParcelResponse{
		TrackingNumber: tracking,
		OrderCode:      "order-" + uuid.New().String()[:8],
		Status:         "CREATED",
		TotalAmount:    1850.00,
		Currency:       "NGN",
		TrackingURL:    fmt.Sprintf("https://tracking.glovoapp.com/%s", tracking),
	}, nil
}

// GetParcel returns a mock status.
func (m *MockAPIClient) GetParcel(ctx context.Context, parcelID string) (*ParcelStatusResponse, error) {
	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "simulated API error"}
	}
	if m.OnGetParcel != nil {
		return m.OnGetParcel(ctx, parcelID)
	}
	return &ParcelStatusResponse{
		TrackingNumber: parcelID,
		Status:         "ACTIVE",
		UpdatedAt:      time.Now().Format(time.RFC3339),
	}, nil
}

// CancelParcel returns a mock cancellation.
func (m *MockAPIClient) CancelParcel(ctx context.Context, parcelID string) (*ParcelCancelResponse, error) {
	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "simulated API error"}
	}
	if m.OnCancelParcel != nil {
		return m.OnCancelParcel(ctx, parcelID)
	}
	return &ParcelCancelResponse{
		TrackingNumber: parcelID,
		Status:         "CANCELED",
	}, nil
}

// CreateAddressBookEntry returns a mock address id.
func (m *MockAPIClient) CreateAddressBookEntry(ctx context.Context, req *AddressBookRequest) (*AddressBookResponse, error) {
	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "simulated API error"}
	}
	if m.OnCreateAddressBook != nil {
		return m.OnCreateAddressBook(ctx, req)
	}
	return &AddressBookResponse{
		AddressBookID: "glv-addr-" + uuid.New().String()[:8],
	}, nil
}
