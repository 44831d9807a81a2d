package carrier

import (
	"encoding/json"
	"strings"
	"time"
)

// Key is the stable lowercase identifier of a delivery provider. It is used
// as the rate-limiter bucket key, the registry key, and the persisted partner
// record's natural key.
type Key string

const (
	KeyGlovo    Key = "glovo"
	KeyFaramove Key = "faramove"
	KeyFez      Key = "fez"
	KeyGig      Key = "gig"
	KeyDhl      Key = "dhl"
)

// Status represents the normalized status of a shipment.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusAssigned       Status = "assigned"
	StatusPickedUp       Status = "picked_up"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusFailed         Status = "failed"
)

// Terminal reports whether no further status transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusFailed
}

// ServiceLevel is the four-way speed classification shown to callers.
type ServiceLevel string

const (
	ServiceEconomy  ServiceLevel = "economy"
	ServiceStandard ServiceLevel = "standard"
	ServiceExpress  ServiceLevel = "express"
	ServiceSameday  ServiceLevel = "sameday"
)

// Money is a monetary amount in minor units (kobo, cents). Integer minor
// units keep wallet arithmetic exact.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Coordinates is a geographic point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Contact identifies the person at a pickup or delivery location.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Location is one end of a shipment route.
type Location struct {
	Address     string       `json:"address"`
	City        string       `json:"city"`
	State       string       `json:"state"`
	Country     string       `json:"country"` // ISO 3166-1 alpha-2
	PostalCode  string       `json:"postal_code,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Contact     Contact      `json:"contact"`

	// AddressBookID is a provider-issued reusable id for a previously
	// registered location. Populated by the aggregator before fan-out,
	// never by callers.
	AddressBookID string `json:"address_book_id,omitempty"`
}

// Dimensions of a parcel in centimetres.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Item describes the parcel being shipped.
type Item struct {
	Description   string      `json:"description"`
	WeightKG      float64     `json:"weight_kg"`
	DeclaredValue *Money      `json:"declared_value,omitempty"`
	IsDocument    bool        `json:"is_document,omitempty"`
	Dimensions    *Dimensions `json:"dimensions,omitempty"`
	Quantity      int         `json:"quantity,omitempty"`
}

// QuoteRequest is the unified shipment request fanned out to providers.
// Callers treat it as immutable; adapters receive augmented copies.
type QuoteRequest struct {
	Item     Item              `json:"item"`
	Pickup   Location          `json:"pickup"`
	Delivery Location          `json:"delivery"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// International reports whether the route crosses a country border.
func (r *QuoteRequest) International() bool {
	return !strings.EqualFold(r.Pickup.Country, r.Delivery.Country)
}

// Clone returns a deep-enough copy that an adapter may augment (resolved
// coordinates, address-book id) without mutating the caller's request.
func (r *QuoteRequest) Clone() *QuoteRequest {
	cp := *r
	if r.Pickup.Coordinates != nil {
		c := *r.Pickup.Coordinates
		cp.Pickup.Coordinates = &c
	}
	if r.Delivery.Coordinates != nil {
		c := *r.Delivery.Coordinates
		cp.Delivery.Coordinates = &c
	}
	if r.Meta != nil {
		cp.Meta = make(map[string]string, len(r.Meta))
		for k, v := range r.Meta {
			cp.Meta[k] = v
		}
	}
	return &cp
}

// Quote is a single provider's raw offer. Price, ETA and service type are the
// provider's own vocabulary; normalization happens downstream.
type Quote struct {
	Carrier        Key               `json:"carrier"`
	Price          Money             `json:"price"`
	RawServiceType string            `json:"raw_service_type"`
	RawETA         string            `json:"raw_eta"`
	Meta           map[string]string `json:"meta,omitempty"`
}

// CreateOrderRequest asks a provider to create a binding shipment.
type CreateOrderRequest struct {
	Request *QuoteRequest `json:"request"`

	// Reference is the platform-side idempotency reference passed upstream.
	Reference string `json:"reference"`
}

// CreateOrderResponse is the provider's confirmation of a shipment.
type CreateOrderResponse struct {
	ExternalOrderID string `json:"external_order_id"`
	TrackingRef     string `json:"tracking_ref"`
	TrackingURL     string `json:"tracking_url,omitempty"`
	Status          Status `json:"status"`
	RawStatus       string `json:"raw_status"`
	Price           Money  `json:"price"`
}

// TrackResponse is a provider's current view of an order.
type TrackResponse struct {
	Status    Status          `json:"status"`
	RawStatus string          `json:"raw_status"`
	UpdatedAt time.Time       `json:"updated_at"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// CancelResponse acknowledges a cancellation.
type CancelResponse struct {
	ExternalOrderID string `json:"external_order_id"`
	Status          Status `json:"status"`
}

// CreateAddressRequest registers a pickup location in a provider's address book.
type CreateAddressRequest struct {
	FormattedAddress string       `json:"formatted_address"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	Phone            string       `json:"phone"`
}
