// Package dhl provides integration with the DHL Express shipping API.
package dhl

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierKey = carrier.KeyDhl

// Config holds DHL configuration.
type Config struct {
	APIKey    string
	AccountID string
	BaseURL   string
	UseMock   bool
}

// Client is the DHL carrier client.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new DHL client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			AccountID: cfg.AccountID,
			Timeout:   30 * time.Second,
		})
	}
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// NewWithAPIClient creates a DHL client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// Key returns the carrier key.
func (c *Client) Key() carrier.Key {
	return carrierKey
}

// Serviceable reports route coverage: DHL handles cross-border routes only;
// domestic last-mile goes to the local riders.
func (c *Client) Serviceable(req *carrier.QuoteRequest) bool {
	return req.International()
}

// GetQuote returns the cheapest DHL product for the route.
func (c *Client) GetQuote(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	c.logger.Ctx(ctx).Info("Getting DHL rates",
		zap.String("origin_country", req.Pickup.Country),
		zap.String("destination_country", req.Delivery.Country),
	)

	apiResp, err := c.apiClient.GetRates(ctx, &RatesRequest{
		Shipper:    locationToAddress(req.Pickup),
		Receiver:   locationToAddress(req.Delivery),
		Packages:   []RatePackage{itemToPackage(req.Item)},
		IsDocument: req.Item.IsDocument,
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL API error", zap.Error(err))
		return nil, err
	}
	if len(apiResp.Products) == 0 {
		return nil, carrier.NewError(carrierKey, "NO_PRODUCTS", "no products offered for route").
			WithCause(carrier.ErrUnsupportedRoute)
	}

	best := apiResp.Products[0]
	for _, p := range apiResp.Products[1:] {
		if p.TotalPrice < best.TotalPrice {
			best = p
		}
	}

	return &carrier.Quote{
		Carrier:        carrierKey,
		Price:          toMinorUnits(best.TotalPrice, best.Currency),
		RawServiceType: best.ProductName,
		RawETA:         best.DeliveryTime,
		Meta:           map[string]string{"service_id": best.ProductCode},
	}, nil
}

// CreateOrder books an international shipment with DHL.
func (c *Client) CreateOrder(ctx context.Context, req *carrier.CreateOrderRequest) (*carrier.CreateOrderResponse, error) {
	c.logger.Ctx(ctx).Info("Creating DHL shipment",
		zap.String("reference", req.Reference),
	)

	shipReq := &ShipmentRequest{
		ProductCode:   req.Request.Meta["service_id"],
		CustomerRef:   req.Reference,
		Shipper:       locationToAddress(req.Request.Pickup),
		Receiver:      locationToAddress(req.Request.Delivery),
		ShipperName:   req.Request.Pickup.Contact.Name,
		ShipperPhone:  req.Request.Pickup.Contact.Phone,
		ReceiverName:  req.Request.Delivery.Contact.Name,
		ReceiverPhone: req.Request.Delivery.Contact.Phone,
		Packages:      []RatePackage{itemToPackage(req.Request.Item)},
	}
	if shipReq.ProductCode == "" {
		shipReq.ProductCode = "P"
	}
	if v := req.Request.Item.DeclaredValue; v != nil {
		shipReq.DeclaredValue = float64(v.Amount) / 100
		shipReq.DeclaredCurrency = v.Currency
	}

	apiResp, err := c.apiClient.CreateShipment(ctx, shipReq)
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL API error", zap.Error(err))
		return nil, err
	}

	return &carrier.CreateOrderResponse{
		ExternalOrderID: apiResp.ShipmentTrackingNumber,
		TrackingRef:     apiResp.ShipmentTrackingNumber,
		TrackingURL:     apiResp.TrackingURL,
		Status:          mapStatus(apiResp.Status),
		RawStatus:       apiResp.Status,
		Price:           toMinorUnits(apiResp.TotalPrice, apiResp.Currency),
	}, nil
}

// TrackOrder returns DHL's current view of a shipment.
func (c *Client) TrackOrder(ctx context.Context, externalOrderID string) (*carrier.TrackResponse, error) {
	apiResp, err := c.apiClient.GetTracking(ctx, externalOrderID)
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL API error", zap.Error(err))
		return nil, err
	}

	updatedAt := time.Now()
	if len(apiResp.Events) > 0 {
		if t, err := time.Parse(time.RFC3339, apiResp.Events[0].Timestamp); err == nil {
			updatedAt = t
		}
	}
	raw, _ := json.Marshal(apiResp)
	return &carrier.TrackResponse{
		Status:    mapStatus(apiResp.Status),
		RawStatus: apiResp.Status,
		UpdatedAt: updatedAt,
		Raw:       raw,
	}, nil
}

// CancelOrder cancels a booked shipment.
func (c *Client) CancelOrder(ctx context.Context, externalOrderID string) (*carrier.CancelResponse, error) {
	c.logger.Ctx(ctx).Info("Cancelling DHL shipment",
		zap.String("external_order_id", externalOrderID),
	)

	apiResp, err := c.apiClient.CancelShipment(ctx, externalOrderID)
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL API error", zap.Error(err))
		return nil, err
	}

	return &carrier.CancelResponse{
		ExternalOrderID: apiResp.TrackingNumber,
		Status:          mapStatus(apiResp.Status),
	}, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func locationToAddress(loc carrier.Location) RateAddress {
	return RateAddress{
		CityName:    loc.City,
		CountryCode: loc.Country,
		PostalCode:  loc.PostalCode,
		AddressLine: loc.Address,
	}
}

func itemToPackage(item carrier.Item) RatePackage {
	pkg := RatePackage{
		Weight:      item.WeightKG,
		Description: item.Description,
	}
	if item.Dimensions != nil {
		pkg.Length = item.Dimensions.Length
		pkg.Width = item.Dimensions.Width
		pkg.Height = item.Dimensions.Height
	}
	return pkg
}

func toMinorUnits(amount float64, currency string) carrier.Money {
	return carrier.Money{
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
	}
}

func mapStatus(status string) carrier.Status {
	switch status {
	case "created", "booked":
		return carrier.StatusPending
	case "confirmed", "pickup_scheduled":
		return carrier.StatusConfirmed
	case "picked_up":
		return carrier.StatusPickedUp
	case "transit", "in_transit":
		return carrier.StatusInTransit
	case "with_courier", "out_for_delivery":
		return carrier.StatusOutForDelivery
	case "delivered":
		return carrier.StatusDelivered
	case "cancelled", "canceled":
		return carrier.StatusCancelled
	case "failure", "exception":
		return carrier.StatusFailed
	default:
		return carrier.StatusPending
	}
}
