// Package quote fans a unified shipment request out to every eligible
// provider concurrently and normalizes the surviving offers into one
// price/ETA/service-level model.
package quote

import (
	"context"
	"fmt"
	"sync"

	"github.com/parceldeck/broker/internal/addressbook"
	"github.com/parceldeck/broker/internal/storage"
	"github.com/parceldeck/broker/internal/telemetry"
	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Aggregator is the read path of the broker: no side effects beyond address
// cache population.
type Aggregator struct {
	registry     *carrier.Registry
	partners     storage.PartnerStore
	resolver     *addressbook.Resolver
	rules        map[carrier.Key]MarkupRule
	defaultPhone string
	logger       *otelzap.Logger
	metrics      *telemetry.Metrics
}

// NewAggregator creates an aggregator. resolver may be nil when no registered
// carrier keeps an address book; metrics may be nil in tests.
func NewAggregator(
	registry *carrier.Registry,
	partners storage.PartnerStore,
	resolver *addressbook.Resolver,
	rules map[carrier.Key]MarkupRule,
	defaultPhone string,
	logger *otelzap.Logger,
	metrics *telemetry.Metrics,
) *Aggregator {
	if rules == nil {
		rules = make(map[carrier.Key]MarkupRule)
	}
	return &Aggregator{
		registry:     registry,
		partners:     partners,
		resolver:     resolver,
		rules:        rules,
		defaultPhone: defaultPhone,
		logger:       logger,
		metrics:      metrics,
	}
}

// GetQuotes returns normalized quotes from every eligible provider. A
// provider's failure only removes that provider's offer; an empty list is a
// valid, non-error outcome. When walletBalance is non-nil, quotes the balance
// cannot cover are filtered out so callers are only shown affordable choices.
func (a *Aggregator) GetQuotes(ctx context.Context, req *carrier.QuoteRequest, walletBalance *carrier.Money) ([]ProviderQuote, error) {
	partners, err := a.partners.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active partners: %w", err)
	}

	eligible := a.eligibleCarriers(req, partners)
	if len(eligible) == 0 {
		return []ProviderQuote{}, nil
	}

	// Resolve the pickup address-book id once, before fan-out, so the
	// concurrent provider calls share one resolution instead of racing to
	// create it independently.
	outbound := req
	if id := a.resolvePickupID(ctx, req, eligible); id != "" {
		outbound = req.Clone()
		outbound.Pickup.AddressBookID = id
	}

	type outcome struct {
		carrier carrier.Key
		quote   *carrier.Quote
	}

	var (
		mu      sync.Mutex
		results []outcome
	)

	// Await-all join: one provider's timeout or rejection must not cancel
	// or suppress the others, so errors stay inside each goroutine.
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range eligible {
		c := c
		g.Go(func() error {
			q, err := c.GetQuote(gctx, outbound)
			if err != nil {
				a.logger.Ctx(ctx).Warn("provider quote failed",
					zap.String("carrier", string(c.Key())),
					zap.Error(err),
				)
				if a.metrics != nil {
					a.metrics.RecordError(string(c.Key()), "quote")
				}
				return nil
			}
			mu.Lock()
			results = append(results, outcome{carrier: c.Key(), quote: q})
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	quotes := make([]ProviderQuote, 0, len(results))
	for _, res := range results {
		partner := partners[res.carrier]
		normalized := Normalize(res.quote, partner, a.rules[res.carrier])
		if walletBalance != nil && normalized.PriceFinal.Amount > walletBalance.Amount {
			continue
		}
		quotes = append(quotes, normalized)
	}
	return quotes, nil
}

// eligibleCarriers intersects registered carriers with active partner records
// and each carrier's own route coverage. Pure with respect to the request.
func (a *Aggregator) eligibleCarriers(req *carrier.QuoteRequest, partners map[carrier.Key]storage.Partner) []carrier.Carrier {
	var eligible []carrier.Carrier
	for _, c := range a.registry.All() {
		if _, ok := partners[c.Key()]; !ok {
			continue
		}
		if !c.Serviceable(req) {
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible
}

func (a *Aggregator) resolvePickupID(ctx context.Context, req *carrier.QuoteRequest, eligible []carrier.Carrier) string {
	if a.resolver == nil {
		return ""
	}
	wantsID := false
	for _, c := range eligible {
		if _, ok := c.(carrier.AddressRegistrar); ok {
			wantsID = true
			break
		}
	}
	if !wantsID {
		return ""
	}
	id, err := a.resolver.GetOrCreate(ctx, req.Pickup, a.defaultPhone)
	if err != nil {
		// The id is an optimization; its absence degrades the request,
		// it never aborts it.
		a.logger.Ctx(ctx).Warn("pickup address resolution failed", zap.Error(err))
		return ""
	}
	return id
}
