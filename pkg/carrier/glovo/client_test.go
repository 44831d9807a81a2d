package glovo_test

import (
	"context"
	"testing"

	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/parceldeck/broker/pkg/carrier/glovo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *glovo.MockAPIClient) *glovo.Client {
	logger := otelzap.New(zap.NewNop())
	return glovo.NewWithAPIClient(
		glovo.Config{},
		mockClient,
		logger,
		nil,
	)
}

func lagosRequest() *carrier.QuoteRequest {
	return &carrier.QuoteRequest{
		Pickup: carrier.Location{
			Address: "12 Marina Road",
			City:    "Lagos",
			Country: "NG",
			Contact: carrier.Contact{Name: "Ada", Phone: "+2348011111111"},
		},
		Delivery: carrier.Location{
			Address: "3 Allen Avenue, Ikeja",
			City:    "Lagos",
			Country: "NG",
			Contact: carrier.Contact{Name: "Chidi", Phone: "+2348022222222"},
		},
		Item: carrier.Item{Description: "documents", WeightKG: 1.2},
	}
}

func TestClient_Serviceable(t *testing.T) {
	client := newTestClient(glovo.NewMockAPIClient())

	req := lagosRequest()
	assert.True(t, client.Serviceable(req), "intra-city domestic route")

	crossCity := lagosRequest()
	crossCity.Delivery.City = "Abuja"
	assert.False(t, client.Serviceable(crossCity), "cross-city route")

	international := lagosRequest()
	international.Delivery.Country = "GH"
	assert.False(t, client.Serviceable(international), "international route")

	caseInsensitive := lagosRequest()
	caseInsensitive.Delivery.City = "LAGOS"
	assert.True(t, client.Serviceable(caseInsensitive), "city match ignores case")
}

func TestClient_GetQuote_Success(t *testing.T) {
	mockAPI := glovo.NewMockAPIClient()
	client := newTestClient(mockAPI)

	resp, err := client.GetQuote(context.Background(), lagosRequest())

	require.NoError(t, err)
	assert.Equal(t, carrier.KeyGlovo, resp.Carrier)
	// Mock returns 1850.00 NGN; amounts are carried in kobo.
	assert.Equal(t, int64(185000), resp.Price.Amount)
	assert.Equal(t, "NGN", resp.Price.Currency)
	assert.Equal(t, "45 mins", resp.RawETA)
	assert.Equal(t, "EXPRESS_ON_DEMAND", resp.RawServiceType)
	assert.NotEmpty(t, resp.Meta["rate_id"])
}

func TestClient_GetQuote_APIError(t *testing.T) {
	mockAPI := glovo.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	_, err := client.GetQuote(context.Background(), lagosRequest())
	assert.Error(t, err)
}

func TestClient_GetQuote_CustomMock(t *testing.T) {
	mockAPI := glovo.NewMockAPIClient()
	mockAPI.OnEstimateOrder = func(ctx context.Context, req *glovo.EstimateRequest) (*glovo.EstimateResponse, error) {
		return &glovo.EstimateResponse{
			QuoteID:       "custom-quote-123",
			TotalAmount:   2499.99,
			Currency:      "NGN",
			EstimatedTime: "30 mins",
			ServiceType:   "STANDARD",
		}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.GetQuote(context.Background(), lagosRequest())

	require.NoError(t, err)
	assert.Equal(t, "custom-quote-123", resp.Meta["rate_id"])
	assert.Equal(t, int64(249999), resp.Price.Amount)
	assert.Equal(t, "30 mins", resp.RawETA)
}

func TestClient_CreateOrder_Success(t *testing.T) {
	mockAPI := glovo.NewMockAPIClient()
	client := newTestClient(mockAPI)

	resp, err := client.CreateOrder(context.Background(), &carrier.CreateOrderRequest{
		Request:   lagosRequest(),
		Reference: "ref-123",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.ExternalOrderID)
	assert.Equal(t, resp.ExternalOrderID, resp.TrackingRef)
	assert.NotEmpty(t, resp.TrackingURL)
	assert.Equal(t, carrier.StatusPending, resp.Status)
	assert.Equal(t, "CREATED", resp.RawStatus)
}

func TestClient_CreateOrder_PassesRateID(t *testing.T) {
	mockAPI := glovo.NewMockAPIClient()
	var gotQuoteID string
	mockAPI.OnCreateParcel = func(ctx context.Context, req *glovo.ParcelRequest) (*glovo.ParcelResponse, error) {
		gotQuoteID = req.QuoteID
		return &glovo.ParcelResponse{
			TrackingNumber: "GLV1",
			Status:         "ACCEPTED",
			TotalAmount:    1850,
			Currency:       "NGN",
		}, nil
	}
	client := newTestClient(mockAPI)

	req := lagosRequest()
	req.Meta = map[string]string{"rate_id": "glv-quote-abc"}
	_, err := client.CreateOrder(context.Background(), &carrier.CreateOrderRequest{
		Request:   req,
		Reference: "ref-456",
	})

	require.NoError(t, err)
	assert.Equal(t, "glv-quote-abc", gotQuoteID)
}

func TestClient_TrackOrder_Success(t *testing.T) {
	client := newTestClient(glovo.NewMockAPIClient())

	resp, err := client.TrackOrder(context.Background(), "GLV123")

	require.NoError(t, err)
	assert.Equal(t, carrier.StatusInTransit, resp.Status)
	assert.Equal(t, "ACTIVE", resp.RawStatus)
	assert.NotEmpty(t, resp.Raw)
}

func TestClient_CancelOrder_Success(t *testing.T) {
	client := newTestClient(glovo.NewMockAPIClient())

	resp, err := client.CancelOrder(context.Background(), "GLV123")

	require.NoError(t, err)
	assert.Equal(t, "GLV123", resp.ExternalOrderID)
	assert.Equal(t, carrier.StatusCancelled, resp.Status)
}

func TestClient_CreateAddress_Success(t *testing.T) {
	client := newTestClient(glovo.NewMockAPIClient())

	id, err := client.CreateAddress(context.Background(), &carrier.CreateAddressRequest{
		FormattedAddress: "12 marina road lagos",
		Phone:            "+2348011111111",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		raw  string
		want carrier.Status
	}{
		{"CREATED", carrier.StatusPending},
		{"ACCEPTED", carrier.StatusConfirmed},
		{"COURIER_ASSIGNED", carrier.StatusAssigned},
		{"PICKED_UP", carrier.StatusPickedUp},
		{"ACTIVE", carrier.StatusInTransit},
		{"ARRIVING", carrier.StatusOutForDelivery},
		{"DELIVERED", carrier.StatusDelivered},
		{"CANCELED", carrier.StatusCancelled},
		{"EXPIRED", carrier.StatusFailed},
		{"SOMETHING_NEW", carrier.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			mockAPI := glovo.NewMockAPIClient()
			mockAPI.OnGetParcel = func(ctx context.Context, parcelID string) (*glovo.ParcelStatusResponse, error) {
				return &glovo.ParcelStatusResponse{TrackingNumber: parcelID, Status: tt.raw}, nil
			}
			client := newTestClient(mockAPI)

			resp, err := client.TrackOrder(context.Background(), "GLV123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, tt.raw, resp.RawStatus)
		})
	}
}
