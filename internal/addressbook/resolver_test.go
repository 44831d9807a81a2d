package addressbook_test

import (
	"context"
	"errors"
	"testing"

	"github.com/parceldeck/broker/internal/addressbook"
	"github.com/parceldeck/broker/internal/geocode"
	"github.com/parceldeck/broker/internal/storage"
	"github.com/parceldeck/broker/internal/telemetry"
	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/parceldeck/broker/pkg/carrier/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultPhone = "+2348000000000"

func marinaRoad() carrier.Location {
	return carrier.Location{
		Address: "12 Marina Road",
		City:    "Lagos",
		Country: "NG",
		Contact: carrier.Contact{Name: "Ada", Phone: "+2348011111111"},
	}
}

func newResolver(registrar carrier.AddressRegistrar, store addressbook.Store) *addressbook.Resolver {
	return addressbook.NewResolver(geocode.NewStatic(), registrar, store, telemetry.NewNopLogger())
}

func TestResolver_RegistersOnFirstUse(t *testing.T) {
	registrar := mock.New(carrier.KeyGlovo)
	store := storage.NewMemoryAddressStore()
	resolver := newResolver(registrar, store)

	id, err := resolver.GetOrCreate(context.Background(), marinaRoad(), defaultPhone)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, registrar.Calls("CreateAddress"))
	assert.Equal(t, 1, store.Len())
}

func TestResolver_SecondCallHitsCache(t *testing.T) {
	registrar := mock.New(carrier.KeyGlovo)
	resolver := newResolver(registrar, storage.NewMemoryAddressStore())
	ctx := context.Background()

	first, err := resolver.GetOrCreate(ctx, marinaRoad(), defaultPhone)
	require.NoError(t, err)

	second, err := resolver.GetOrCreate(ctx, marinaRoad(), defaultPhone)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, registrar.Calls("CreateAddress"), "repeat resolutions must not re-register")
}

func TestResolver_CanonicalizationCollapsesVariants(t *testing.T) {
	registrar := mock.New(carrier.KeyGlovo)
	resolver := newResolver(registrar, storage.NewMemoryAddressStore())
	ctx := context.Background()

	base, err := resolver.GetOrCreate(ctx, marinaRoad(), defaultPhone)
	require.NoError(t, err)

	variant := marinaRoad()
	variant.Address = "  12   MARINA  ROAD"
	got, err := resolver.GetOrCreate(ctx, variant, defaultPhone)
	require.NoError(t, err)

	assert.Equal(t, base, got, "case and whitespace variants share one registration")
	assert.Equal(t, 1, registrar.Calls("CreateAddress"))
}

func TestResolver_ConflictFailsOpen(t *testing.T) {
	registrar := mock.New(carrier.KeyGlovo)
	registrar.OnCreateAddress = func(ctx context.Context, req *carrier.CreateAddressRequest) (string, error) {
		return "", carrier.NewError(carrier.KeyGlovo, "CONFLICT", "already registered").
			WithCause(carrier.ErrAddressConflict)
	}
	resolver := newResolver(registrar, storage.NewMemoryAddressStore())

	id, err := resolver.GetOrCreate(context.Background(), marinaRoad(), defaultPhone)
	require.NoError(t, err, "an upstream conflict is not the caller's failure")
	assert.Empty(t, id)
}

func TestResolver_UpstreamErrorSurfaces(t *testing.T) {
	upstream := errors.New("address book down")
	registrar := mock.New(carrier.KeyGlovo)
	registrar.OnCreateAddress = func(ctx context.Context, req *carrier.CreateAddressRequest) (string, error) {
		return "", upstream
	}
	resolver := newResolver(registrar, storage.NewMemoryAddressStore())

	_, err := resolver.GetOrCreate(context.Background(), marinaRoad(), defaultPhone)
	assert.True(t, errors.Is(err, upstream))
}

func TestResolver_DefaultPhoneBacksMissingContact(t *testing.T) {
	var gotPhone string
	registrar := mock.New(carrier.KeyGlovo)
	registrar.OnCreateAddress = func(ctx context.Context, req *carrier.CreateAddressRequest) (string, error) {
		gotPhone = req.Phone
		return "glv-addr-1", nil
	}
	resolver := newResolver(registrar, storage.NewMemoryAddressStore())

	loc := marinaRoad()
	loc.Contact.Phone = ""
	_, err := resolver.GetOrCreate(context.Background(), loc, defaultPhone)
	require.NoError(t, err)
	assert.Equal(t, defaultPhone, gotPhone)
}

func TestResolver_LookupNeverCallsProvider(t *testing.T) {
	registrar := mock.New(carrier.KeyGlovo)
	resolver := newResolver(registrar, storage.NewMemoryAddressStore())
	ctx := context.Background()

	_, found := resolver.Lookup(ctx, marinaRoad())
	assert.False(t, found)
	assert.Equal(t, 0, registrar.Calls("CreateAddress"))

	id, err := resolver.GetOrCreate(ctx, marinaRoad(), defaultPhone)
	require.NoError(t, err)

	got, found := resolver.Lookup(ctx, marinaRoad())
	assert.True(t, found)
	assert.Equal(t, id, got)
	assert.Equal(t, 1, registrar.Calls("CreateAddress"))
}

func TestHashAddress_Canonicalizes(t *testing.T) {
	a := addressbook.HashAddress("12 Marina Road, Lagos")
	b := addressbook.HashAddress("  12   marina ROAD,   lagos ")
	c := addressbook.HashAddress("13 Marina Road, Lagos")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
