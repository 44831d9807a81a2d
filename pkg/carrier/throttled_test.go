package carrier_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/parceldeck/broker/pkg/carrier/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGate records slot requests per key and can be scripted to refuse.
type countingGate struct {
	mu    sync.Mutex
	waits map[string]int
	err   error
}

func newCountingGate() *countingGate {
	return &countingGate{waits: make(map[string]int)}
}

func (g *countingGate) AwaitSlot(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.waits[key]++
	return g.err
}

func (g *countingGate) count(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waits[key]
}

func TestThrottled_EveryCallConsumesSlot(t *testing.T) {
	gate := newCountingGate()
	inner := mock.New(carrier.KeyGlovo)
	wrapped := carrier.Throttled(inner, gate)

	ctx := context.Background()
	req := &carrier.QuoteRequest{}

	_, err := wrapped.GetQuote(ctx, req)
	require.NoError(t, err)

	_, err = wrapped.CreateOrder(ctx, &carrier.CreateOrderRequest{Request: req, Reference: "r1"})
	require.NoError(t, err)

	_, err = wrapped.TrackOrder(ctx, "ext-1")
	require.NoError(t, err)

	_, err = wrapped.CancelOrder(ctx, "ext-1")
	require.NoError(t, err)

	assert.Equal(t, 4, gate.count("glovo"))
}

func TestThrottled_GateRefusalStopsCall(t *testing.T) {
	gate := newCountingGate()
	gate.err = context.DeadlineExceeded

	inner := mock.New(carrier.KeyGlovo)
	wrapped := carrier.Throttled(inner, gate)

	_, err := wrapped.GetQuote(context.Background(), &carrier.QuoteRequest{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 0, inner.Calls("GetQuote"), "refused call must not reach the carrier")
}

func TestThrottled_PreservesKeyAndServiceability(t *testing.T) {
	inner := mock.New(carrier.KeyDhl)
	inner.OnServiceable = func(req *carrier.QuoteRequest) bool { return false }
	wrapped := carrier.Throttled(inner, newCountingGate())

	assert.Equal(t, carrier.KeyDhl, wrapped.Key())
	assert.False(t, wrapped.Serviceable(&carrier.QuoteRequest{}))
}

func TestThrottled_PreservesAddressRegistrar(t *testing.T) {
	gate := newCountingGate()
	inner := mock.New(carrier.KeyGlovo)
	wrapped := carrier.Throttled(inner, gate)

	registrar, ok := wrapped.(carrier.AddressRegistrar)
	require.True(t, ok, "wrapping must not hide the address-book capability")

	id, err := registrar.CreateAddress(context.Background(), &carrier.CreateAddressRequest{
		FormattedAddress: "12 marina road lagos",
		Phone:            "+2348011111111",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, gate.count("glovo"), "address registration draws from the same budget")
}
