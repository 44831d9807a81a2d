package main

import (
	"context"
	"fmt"

	"github.com/parceldeck/broker/internal/addressbook"
	"github.com/parceldeck/broker/internal/config"
	"github.com/parceldeck/broker/internal/geocode"
	"github.com/parceldeck/broker/internal/notify"
	"github.com/parceldeck/broker/internal/order"
	"github.com/parceldeck/broker/internal/quote"
	"github.com/parceldeck/broker/internal/ratelimit"
	"github.com/parceldeck/broker/internal/storage"
	"github.com/parceldeck/broker/internal/telemetry"
	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/parceldeck/broker/pkg/carrier/dhl"
	"github.com/parceldeck/broker/pkg/carrier/glovo"
	"github.com/parceldeck/broker/pkg/carrier/mock"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

// brokerDeps is the wired object graph behind the HTTP server.
type brokerDeps struct {
	Aggregator   *quote.Aggregator
	Orchestrator *order.Orchestrator
	Orders       storage.OrderStore
	Wallets      storage.WalletStore
	Metrics      *telemetry.Metrics

	closers []func()
}

// Close releases held connections in reverse wiring order.
func (d *brokerDeps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func initBroker(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (*brokerDeps, error) {
	deps := &brokerDeps{Metrics: telemetry.NewMetrics()}

	limiter := initLimiter(cfg)
	limiter.OnWait = func(key string) { deps.Metrics.RecordRateLimitWait(key) }
	registry, enabledKeys := initCarrierRegistry(cfg, limiter, logger)

	var (
		orders   storage.OrderStore
		wallets  storage.WalletStore
		partners storage.PartnerStore
		book     addressbook.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := storage.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := storage.EnsurePartners(ctx, db, enabledKeys); err != nil {
			return nil, fmt.Errorf("seeding partners: %w", err)
		}
		orders = storage.NewGormOrderStore(db)
		wallets = storage.NewGormWalletStore(db)
		partners = storage.NewGormPartnerStore(db)
		book = storage.NewGormAddressStore(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores (dev mode)")
		orders = storage.NewMemoryOrderStore()
		wallets = storage.NewMemoryWalletStore(nil)
		partners = storage.NewMemoryPartnerStore(enabledKeys...)
		book = storage.NewMemoryAddressStore()
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		book = storage.NewRedisAddressStore(client, cfg.RedisTTL)
		deps.closers = append(deps.closers, func() { client.Close() })
	}

	resolver := initResolver(cfg, registry, book, logger)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.AMQPURL != "" {
		mq, err := notify.NewRabbitMQ(cfg.AMQPURL, cfg.OrderQueue, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
		}
		notifier = mq
		deps.closers = append(deps.closers, func() { mq.Close() })
	}

	rules := initMarkupRules(cfg)
	deps.Orders = orders
	deps.Wallets = wallets
	deps.Aggregator = quote.NewAggregator(
		registry, partners, resolver, rules, cfg.DefaultContactPhone, logger, deps.Metrics)
	deps.Orchestrator = order.NewOrchestrator(
		registry, partners, orders, wallets, rules, notifier, logger, deps.Metrics)
	return deps, nil
}

func initLimiter(cfg *config.Config) *ratelimit.Limiter {
	rules := make(map[string]ratelimit.Rule)
	for key, block := range carrierBlocks(cfg) {
		if block.Enabled && block.RateLimitMax > 0 {
			rules[string(key)] = ratelimit.Rule{
				MaxRequests: block.RateLimitMax,
				Window:      block.RateLimitWindow,
			}
		}
	}
	return ratelimit.New(ratelimit.RealClock{}, rules)
}

// initCarrierRegistry registers one throttled client per enabled provider.
// Glovo and DHL have real API clients; the domestic riders without one yet run
// on the mock in dev environments.
func initCarrierRegistry(cfg *config.Config, limiter *ratelimit.Limiter, logger *otelzap.Logger) (*carrier.Registry, []carrier.Key) {
	registry := carrier.NewRegistry()
	var enabled []carrier.Key

	var tracer trace.Tracer

	register := func(key carrier.Key, c carrier.Carrier) {
		registry.Register(carrier.Throttled(c, limiter))
		enabled = append(enabled, key)
	}

	if cfg.GlovoEnabled {
		register(carrier.KeyGlovo, glovo.New(glovo.Config{
			APIKey:  cfg.GlovoAPIKey,
			BaseURL: cfg.GlovoBaseURL,
			UseMock: cfg.GlovoUseMock,
		}, logger, tracer))
	}
	if cfg.DhlEnabled {
		register(carrier.KeyDhl, dhl.New(dhl.Config{
			APIKey:    cfg.DhlAPIKey,
			AccountID: cfg.DhlAccountID,
			BaseURL:   cfg.DhlBaseURL,
			UseMock:   cfg.DhlUseMock,
		}, logger, tracer))
	}
	if cfg.FaramoveEnabled {
		register(carrier.KeyFaramove, mock.New(carrier.KeyFaramove))
	}
	if cfg.FezEnabled {
		register(carrier.KeyFez, mock.New(carrier.KeyFez))
	}
	if cfg.GigEnabled {
		register(carrier.KeyGig, mock.New(carrier.KeyGig))
	}

	return registry, enabled
}

// initResolver builds the address resolver against the first registered
// carrier that keeps a provider-side address book. Returns nil when none does.
func initResolver(cfg *config.Config, registry *carrier.Registry, book addressbook.Store, logger *otelzap.Logger) *addressbook.Resolver {
	var registrar carrier.AddressRegistrar
	for _, c := range registry.All() {
		if r, ok := c.(carrier.AddressRegistrar); ok {
			registrar = r
			break
		}
	}
	if registrar == nil {
		return nil
	}

	var geocoder geocode.Geocoder
	if cfg.GeocodingBaseURL != "" {
		geocoder = geocode.NewHTTP(geocode.Config{
			BaseURL: cfg.GeocodingBaseURL,
			APIKey:  cfg.GeocodingAPIKey,
		})
	} else {
		logger.Warn("GEOCODING_BASE_URL not set, using static address normalization",
			zap.String("component", "addressbook"))
		geocoder = geocode.NewStatic()
	}
	return addressbook.NewResolver(geocoder, registrar, book, logger)
}

func initMarkupRules(cfg *config.Config) map[carrier.Key]quote.MarkupRule {
	rules := make(map[carrier.Key]quote.MarkupRule)
	for key, block := range carrierBlocks(cfg) {
		rules[key] = quote.MarkupRule{Flat: block.MarkupFlat, Percent: block.MarkupPercent}
	}
	return rules
}

func carrierBlocks(cfg *config.Config) map[carrier.Key]config.CarrierConfig {
	return map[carrier.Key]config.CarrierConfig{
		carrier.KeyGlovo:    cfg.Glovo(),
		carrier.KeyFaramove: cfg.Faramove(),
		carrier.KeyFez:      cfg.Fez(),
		carrier.KeyGig:      cfg.Gig(),
		carrier.KeyDhl:      cfg.Dhl(),
	}
}
