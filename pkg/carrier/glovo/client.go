// Package glovo provides integration with the Glovo on-demand delivery API.
package glovo

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierKey = carrier.KeyGlovo

// Config holds Glovo configuration.
type Config struct {
	APIKey  string
	BaseURL string
	UseMock bool // When true, uses the mock API client
}

// Client is the Glovo carrier client. It implements carrier.Carrier and
// carrier.AddressRegistrar, delegating wire calls to the underlying APIClient.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Glovo client. If cfg.UseMock is true, it uses a mock API
// client; otherwise the real HTTP client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: 30 * time.Second,
		})
	}
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// NewWithAPIClient creates a Glovo client with a custom API client, useful
// for injecting mocks in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// Key returns the carrier key.
func (c *Client) Key() carrier.Key {
	return carrierKey
}

// Serviceable reports route coverage: Glovo rides are intra-city only.
func (c *Client) Serviceable(req *carrier.QuoteRequest) bool {
	if req.International() {
		return false
	}
	return strings.EqualFold(req.Pickup.City, req.Delivery.City)
}

// GetQuote returns a delivery estimate from Glovo.
func (c *Client) GetQuote(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	c.logger.Ctx(ctx).Info("Getting Glovo estimate",
		zap.String("pickup_city", req.Pickup.City),
		zap.String("delivery_city", req.Delivery.City),
	)

	apiResp, err := c.apiClient.EstimateOrder(ctx, &EstimateRequest{
		Pickup:   locationToPoint(req.Pickup),
		Delivery: locationToPoint(req.Delivery),
		Package:  itemToPackage(req.Item),
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("Glovo API error", zap.Error(err))
		return nil, err
	}

	return &carrier.Quote{
		Carrier:        carrierKey,
		Price:          toMinorUnits(apiResp.TotalAmount, apiResp.Currency),
		RawServiceType: apiResp.ServiceType,
		RawETA:         apiResp.EstimatedTime,
		Meta:           map[string]string{"rate_id": apiResp.QuoteID},
	}, nil
}

// CreateOrder creates a delivery with Glovo.
func (c *Client) CreateOrder(ctx context.Context, req *carrier.CreateOrderRequest) (*carrier.CreateOrderResponse, error) {
	c.logger.Ctx(ctx).Info("Creating Glovo order",
		zap.String("reference", req.Reference),
	)

	apiResp, err := c.apiClient.CreateParcel(ctx, &ParcelRequest{
		QuoteID:    req.Request.Meta["rate_id"],
		PartnerRef: req.Reference,
		Pickup:     locationToPoint(req.Request.Pickup),
		Delivery:   locationToPoint(req.Request.Delivery),
		Package:    itemToPackage(req.Request.Item),
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("Glovo API error", zap.Error(err))
		return nil, err
	}

	return &carrier.CreateOrderResponse{
		ExternalOrderID: apiResp.TrackingNumber,
		TrackingRef:     apiResp.TrackingNumber,
		TrackingURL:     apiResp.TrackingURL,
		Status:          mapStatus(apiResp.Status),
		RawStatus:       apiResp.Status,
		Price:           toMinorUnits(apiResp.TotalAmount, apiResp.Currency),
	}, nil
}

// TrackOrder returns Glovo's current view of an order.
func (c *Client) TrackOrder(ctx context.Context, externalOrderID string) (*carrier.TrackResponse, error) {
	apiResp, err := c.apiClient.GetParcel(ctx, externalOrderID)
	if err != nil {
		c.logger.Ctx(ctx).Error("Glovo API error", zap.Error(err))
		return nil, err
	}

	updatedAt, _ := time.Parse(time.RFC3339, apiResp.UpdatedAt)
	raw, _ := json.Marshal(apiResp)
	return &carrier.TrackResponse{
		Status:    mapStatus(apiResp.Status),
		RawStatus: apiResp.Status,
		UpdatedAt: updatedAt,
		Raw:       raw,
	}, nil
}

// CancelOrder cancels a delivery with Glovo.
func (c *Client) CancelOrder(ctx context.Context, externalOrderID string) (*carrier.CancelResponse, error) {
	c.logger.Ctx(ctx).Info("Cancelling Glovo order",
		zap.String("external_order_id", externalOrderID),
	)

	apiResp, err := c.apiClient.CancelParcel(ctx, externalOrderID)
	if err != nil {
		c.logger.Ctx(ctx).Error("Glovo API error", zap.Error(err))
		return nil, err
	}

	return &carrier.CancelResponse{
		ExternalOrderID: apiResp.TrackingNumber,
		Status:          mapStatus(apiResp.Status),
	}, nil
}

// CreateAddress registers a reusable pickup address in Glovo's address book.
func (c *Client) CreateAddress(ctx context.Context, req *carrier.CreateAddressRequest) (string, error) {
	apiResp, err := c.apiClient.CreateAddressBookEntry(ctx, &AddressBookRequest{
		FormattedAddress: req.FormattedAddress,
		Coordinates:      coordsToLatLng(req.Coordinates),
		ContactPhone:     req.Phone,
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("Glovo API error", zap.Error(err))
		return "", err
	}
	return apiResp.AddressBookID, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func locationToPoint(loc carrier.Location) Point {
	return Point{
		AddressBookID: loc.AddressBookID,
		RawAddress:    loc.Address,
		City:          loc.City,
		Coordinates:   coordsToLatLng(loc.Coordinates),
		ContactName:   loc.Contact.Name,
		ContactPhone:  loc.Contact.Phone,
	}
}

func coordsToLatLng(c *carrier.Coordinates) *LatLng {
	if c == nil {
		return nil
	}
	return &LatLng{Latitude: c.Latitude, Longitude: c.Longitude}
}

func itemToPackage(item carrier.Item) PackageDetails {
	return PackageDetails{
		Description: item.Description,
		WeightKG:    item.WeightKG,
		IsDocument:  item.IsDocument,
	}
}

func toMinorUnits(amount float64, currency string) carrier.Money {
	return carrier.Money{
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
	}
}

func mapStatus(status string) carrier.Status {
	switch status {
	case "CREATED", "SCHEDULED":
		return carrier.StatusPending
	case "ACCEPTED", "CONFIRMED":
		return carrier.StatusConfirmed
	case "COURIER_ASSIGNED":
		return carrier.StatusAssigned
	case "PICKED", "PICKED_UP":
		return carrier.StatusPickedUp
	case "ACTIVE", "IN_PROGRESS":
		return carrier.StatusInTransit
	case "ARRIVING":
		return carrier.StatusOutForDelivery
	case "DELIVERED":
		return carrier.StatusDelivered
	case "CANCELED", "CANCELLED":
		return carrier.StatusCancelled
	case "FAILED", "EXPIRED":
		return carrier.StatusFailed
	default:
		return carrier.StatusPending
	}
}
