package addressbook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/parceldeck/broker/internal/geocode"
	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Resolver resolves a raw pickup location to a provider address-book id,
// creating the registration at most once per canonical address.
//
// The read-then-write here is a deliberate check-then-act race: two callers
// resolving the same new address may both miss the cache and both register.
// The second registration surfaces a provider conflict, which resolves to the
// fail-open path below, so the race costs one duplicate call rather than a
// global lock on every miss.
type Resolver struct {
	geocoder  geocode.Geocoder
	registrar carrier.AddressRegistrar
	store     Store
	logger    *otelzap.Logger
}

// NewResolver creates a resolver over the given collaborators.
func NewResolver(geocoder geocode.Geocoder, registrar carrier.AddressRegistrar, store Store, logger *otelzap.Logger) *Resolver {
	return &Resolver{
		geocoder:  geocoder,
		registrar: registrar,
		store:     store,
		logger:    logger,
	}
}

// GetOrCreate returns the provider address-book id for loc, registering the
// address on a cache miss. A provider-side conflict (already registered under
// another account) returns an empty id and no error: the caller proceeds
// without that optimization instead of aborting.
func (r *Resolver) GetOrCreate(ctx context.Context, loc carrier.Location, defaultPhone string) (string, error) {
	place, hash, err := r.canonicalize(ctx, loc)
	if err != nil {
		return "", err
	}
	if hash == "" {
		return "", nil
	}

	if entry, err := r.store.Get(ctx, hash); err == nil {
		// Refresh UpdatedAt so a time-based janitor keeps hot entries.
		_ = r.store.Upsert(ctx, entry)
		return entry.ProviderAddressID, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	phone := loc.Contact.Phone
	if phone == "" {
		phone = defaultPhone
	}

	id, err := r.registrar.CreateAddress(ctx, &carrier.CreateAddressRequest{
		FormattedAddress: place.FormattedAddress,
		Coordinates:      coordinatesOf(place),
		Phone:            phone,
	})
	if err != nil {
		if errors.Is(err, carrier.ErrAddressConflict) {
			r.logger.Ctx(ctx).Warn("address already registered upstream, proceeding without address-book id",
				zap.String("address_hash", hash))
			return "", nil
		}
		return "", err
	}

	if err := r.store.Upsert(ctx, &Entry{
		Hash:              hash,
		FormattedAddress:  place.FormattedAddress,
		PhoneNumber:       phone,
		ProviderAddressID: id,
	}); err != nil {
		// The registration exists upstream; losing the cache write only
		// costs a future duplicate attempt.
		r.logger.Ctx(ctx).Warn("failed to cache address registration",
			zap.String("address_hash", hash), zap.Error(err))
	}
	return id, nil
}

// Lookup returns the cached provider address-book id for loc without ever
// calling the provider. The second return reports whether an id was found.
func (r *Resolver) Lookup(ctx context.Context, loc carrier.Location) (string, bool) {
	_, hash, err := r.canonicalize(ctx, loc)
	if err != nil || hash == "" {
		return "", false
	}
	entry, err := r.store.Get(ctx, hash)
	if err != nil {
		return "", false
	}
	return entry.ProviderAddressID, true
}

func (r *Resolver) canonicalize(ctx context.Context, loc carrier.Location) (*geocode.Place, string, error) {
	raw := strings.Join([]string{loc.Address, loc.City, loc.State, loc.Country}, ", ")
	place, err := r.geocoder.Normalize(ctx, raw)
	if err != nil {
		if errors.Is(err, geocode.ErrNoResult) {
			r.logger.Ctx(ctx).Warn("geocoder could not resolve address, skipping address-book resolution",
				zap.String("city", loc.City))
			return nil, "", nil
		}
		return nil, "", err
	}
	return place, HashAddress(place.FormattedAddress), nil
}

func coordinatesOf(place *geocode.Place) *carrier.Coordinates {
	if place.Coordinates == (carrier.Coordinates{}) {
		return nil
	}
	c := place.Coordinates
	return &c
}

// HashAddress hashes the canonical form of a formatted address: lowercased,
// trimmed, inner whitespace collapsed, then SHA-256.
func HashAddress(formatted string) string {
	canonical := strings.ToLower(strings.Join(strings.Fields(formatted), " "))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
