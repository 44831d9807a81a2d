package carrier

import (
	"context"
)

// Gate admits outbound provider calls. A Gate blocks the calling goroutine
// until the provider's rate budget has a free slot.
type Gate interface {
	AwaitSlot(ctx context.Context, key string) error
}

// Throttled wraps a carrier so that every outbound call consumes one slot
// from the gate before any network I/O. Quote, create, track and cancel all
// draw from the same per-provider budget, since upstream carriers enforce one
// combined limit. Address registration counts too.
func Throttled(c Carrier, gate Gate) Carrier {
	t := &throttled{next: c, gate: gate}
	if ar, ok := c.(AddressRegistrar); ok {
		return &throttledRegistrar{throttled: t, registrar: ar}
	}
	return t
}

type throttled struct {
	next Carrier
	gate Gate
}

func (t *throttled) Key() Key { return t.next.Key() }

func (t *throttled) Serviceable(req *QuoteRequest) bool { return t.next.Serviceable(req) }

func (t *throttled) GetQuote(ctx context.Context, req *QuoteRequest) (*Quote, error) {
	if err := t.gate.AwaitSlot(ctx, string(t.next.Key())); err != nil {
		return nil, err
	}
	return t.next.GetQuote(ctx, req)
}

func (t *throttled) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	if err := t.gate.AwaitSlot(ctx, string(t.next.Key())); err != nil {
		return nil, err
	}
	return t.next.CreateOrder(ctx, req)
}

func (t *throttled) TrackOrder(ctx context.Context, externalOrderID string) (*TrackResponse, error) {
	if err := t.gate.AwaitSlot(ctx, string(t.next.Key())); err != nil {
		return nil, err
	}
	return t.next.TrackOrder(ctx, externalOrderID)
}

func (t *throttled) CancelOrder(ctx context.Context, externalOrderID string) (*CancelResponse, error) {
	if err := t.gate.AwaitSlot(ctx, string(t.next.Key())); err != nil {
		return nil, err
	}
	return t.next.CancelOrder(ctx, externalOrderID)
}

type throttledRegistrar struct {
	*throttled
	registrar AddressRegistrar
}

func (t *throttledRegistrar) CreateAddress(ctx context.Context, req *CreateAddressRequest) (string, error) {
	if err := t.gate.AwaitSlot(ctx, string(t.next.Key())); err != nil {
		return "", err
	}
	return t.registrar.CreateAddress(ctx, req)
}
