package server

import (
	"time"

	"github.com/parceldeck/broker/internal/order"
	"github.com/parceldeck/broker/internal/quote"
	"github.com/parceldeck/broker/internal/storage"
	"github.com/parceldeck/broker/pkg/carrier"
)

// CoordinatesDTO is a geographic point.
type CoordinatesDTO struct {
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
}

// ContactDTO identifies the person at one end of the route.
type ContactDTO struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// LocationDTO is one end of a shipment route.
type LocationDTO struct {
	Address     string          `json:"address" validate:"required"`
	City        string          `json:"city" validate:"required"`
	State       string          `json:"state,omitempty"`
	Country     string          `json:"country" validate:"required,iso3166_1_alpha2"`
	PostalCode  string          `json:"postal_code,omitempty"`
	Coordinates *CoordinatesDTO `json:"coordinates,omitempty"`
	Contact     ContactDTO      `json:"contact" validate:"required"`
}

// MoneyDTO is an amount in minor units.
type MoneyDTO struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// DimensionsDTO is parcel dimensions in centimetres.
type DimensionsDTO struct {
	Length float64 `json:"length" validate:"required,gt=0"`
	Width  float64 `json:"width" validate:"required,gt=0"`
	Height float64 `json:"height" validate:"required,gt=0"`
}

// ItemDTO describes the parcel being shipped.
type ItemDTO struct {
	Description   string         `json:"description" validate:"required"`
	WeightKG      float64        `json:"weight_kg" validate:"required,gt=0"`
	DeclaredValue *MoneyDTO      `json:"declared_value,omitempty"`
	IsDocument    bool           `json:"is_document,omitempty"`
	Dimensions    *DimensionsDTO `json:"dimensions,omitempty"`
	Quantity      int            `json:"quantity,omitempty" validate:"omitempty,gt=0"`
}

// QuoteRequestDTO is the body of POST /v1/quotes.
type QuoteRequestDTO struct {
	Pickup   LocationDTO `json:"pickup" validate:"required"`
	Delivery LocationDTO `json:"delivery" validate:"required"`
	Item     ItemDTO     `json:"item" validate:"required"`
}

// QuoteResponseDTO is the body of a successful quote aggregation.
type QuoteResponseDTO struct {
	Quotes []quote.ProviderQuote `json:"quotes"`
}

// CreateOrderDTO is the body of POST /v1/orders.
type CreateOrderDTO struct {
	Carrier string          `json:"carrier" validate:"required"`
	Request QuoteRequestDTO `json:"request" validate:"required"`
}

// CancelOrderDTO is the body of POST /v1/orders/{id}/cancel.
type CancelOrderDTO struct {
	Reason string `json:"reason,omitempty"`
}

// OrderDTO is the caller-facing view of a persisted order. Internal cost
// breakdowns (platform fee, provider cost) are never serialized here.
type OrderDTO struct {
	OrderID         string        `json:"order_id"`
	Carrier         string        `json:"carrier"`
	ExternalOrderID string        `json:"external_order_id"`
	TrackingRef     string        `json:"tracking_ref"`
	TrackingURL     string        `json:"tracking_url,omitempty"`
	Price           carrier.Money `json:"price"`
	Status          string        `json:"status"`
	Phase           string        `json:"phase"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// CreateOrderResponseDTO is the body of a successful order creation.
type CreateOrderResponseDTO struct {
	OrderID         string        `json:"order_id"`
	Carrier         string        `json:"carrier"`
	ExternalOrderID string        `json:"external_order_id"`
	TrackingRef     string        `json:"tracking_ref"`
	Status          string        `json:"status"`
	Phase           string        `json:"phase"`
	Price           carrier.Money `json:"price"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (d *QuoteRequestDTO) toRequest() *carrier.QuoteRequest {
	return &carrier.QuoteRequest{
		Pickup:   d.Pickup.toLocation(),
		Delivery: d.Delivery.toLocation(),
		Item:     d.Item.toItem(),
	}
}

func (d *LocationDTO) toLocation() carrier.Location {
	loc := carrier.Location{
		Address:    d.Address,
		City:       d.City,
		State:      d.State,
		Country:    d.Country,
		PostalCode: d.PostalCode,
		Contact: carrier.Contact{
			Name:  d.Contact.Name,
			Phone: d.Contact.Phone,
			Email: d.Contact.Email,
		},
	}
	if d.Coordinates != nil {
		loc.Coordinates = &carrier.Coordinates{
			Latitude:  d.Coordinates.Latitude,
			Longitude: d.Coordinates.Longitude,
		}
	}
	return loc
}

func (d *ItemDTO) toItem() carrier.Item {
	item := carrier.Item{
		Description: d.Description,
		WeightKG:    d.WeightKG,
		IsDocument:  d.IsDocument,
		Quantity:    d.Quantity,
	}
	if d.DeclaredValue != nil {
		item.DeclaredValue = &carrier.Money{
			Amount:   d.DeclaredValue.Amount,
			Currency: d.DeclaredValue.Currency,
		}
	}
	if d.Dimensions != nil {
		item.Dimensions = &carrier.Dimensions{
			Length: d.Dimensions.Length,
			Width:  d.Dimensions.Width,
			Height: d.Dimensions.Height,
		}
	}
	return item
}

// phase buckets the fine-grained status vocabulary into the three lifecycle
// phases shown to callers.
func phase(status carrier.Status) string {
	switch status {
	case carrier.StatusPending, carrier.StatusConfirmed, carrier.StatusAssigned:
		return "pending"
	case carrier.StatusPickedUp, carrier.StatusInTransit, carrier.StatusOutForDelivery:
		return "active"
	case carrier.StatusDelivered, carrier.StatusCancelled, carrier.StatusFailed:
		return "completed"
	default:
		return "pending"
	}
}

func orderToDTO(o *storage.Order) OrderDTO {
	return OrderDTO{
		OrderID:         o.ID,
		Carrier:         o.CarrierKey,
		ExternalOrderID: o.ExternalOrderID,
		TrackingRef:     o.TrackingRef,
		TrackingURL:     o.TrackingURL,
		Price:           carrier.Money{Amount: o.TotalCost, Currency: o.Currency},
		Status:          o.Status,
		Phase:           phase(carrier.Status(o.Status)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func resultToDTO(r *order.Result) CreateOrderResponseDTO {
	return CreateOrderResponseDTO{
		OrderID:         r.OrderID,
		Carrier:         string(r.CarrierKey),
		ExternalOrderID: r.ExternalOrderID,
		TrackingRef:     r.TrackingRef,
		Status:          string(r.Status),
		Phase:           phase(r.Status),
		Price:           r.Price,
	}
}
