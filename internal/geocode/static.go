package geocode

import (
	"context"
	"strings"
)

// Static is a deterministic, network-free geocoder for tests and local
// development. It canonicalizes whitespace and echoes the input back as
// the formatted address.
type Static struct{}

// NewStatic creates a static geocoder.
func NewStatic() Static { return Static{} }

// Normalize canonicalizes rawAddress without any network call.
func (Static) Normalize(ctx context.Context, rawAddress string) (*Place, error) {
	formatted := strings.Join(strings.Fields(rawAddress), " ")
	if formatted == "" {
		return nil, ErrNoResult
	}
	return &Place{FormattedAddress: formatted}, nil
}
