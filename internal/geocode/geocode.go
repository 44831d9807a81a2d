// Package geocode normalizes free-text addresses through an external
// geocoding API into a canonical formatted address plus coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/parceldeck/broker/pkg/carrier"
)

// ErrNoResult indicates the geocoder could not resolve the address.
var ErrNoResult = errors.New("geocode: no result")

// Place is a canonical, geocoded address.
type Place struct {
	FormattedAddress string
	Coordinates      carrier.Coordinates
	PostalCode       string
}

// Geocoder resolves a raw address string into a canonical Place.
type Geocoder interface {
	Normalize(ctx context.Context, rawAddress string) (*Place, error)
}

// Config holds HTTP geocoder configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPGeocoder calls a Google-style geocoding endpoint.
type HTTPGeocoder struct {
	cfg        Config
	httpClient *http.Client
}

// NewHTTP creates a geocoder against cfg.BaseURL.
func NewHTTP(cfg Config) *HTTPGeocoder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPGeocoder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// Normalize resolves rawAddress via the geocoding API.
func (g *HTTPGeocoder) Normalize(ctx context.Context, rawAddress string) (*Place, error) {
	q := url.Values{}
	q.Set("address", rawAddress)
	q.Set("key", g.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/json?%s", g.cfg.BaseURL, q.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("geocode decode: %w", err)
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		return nil, ErrNoResult
	}

	first := body.Results[0]
	place := &Place{
		FormattedAddress: first.FormattedAddress,
		Coordinates: carrier.Coordinates{
			Latitude:  first.Geometry.Location.Lat,
			Longitude: first.Geometry.Location.Lng,
		},
	}
	for _, comp := range first.AddressComponents {
		for _, typ := range comp.Types {
			if typ == "postal_code" {
				place.PostalCode = comp.LongName
			}
		}
	}
	return place, nil
}
