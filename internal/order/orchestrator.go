// Package order creates binding shipments with external providers and keeps
// the local ledger consistent with them. Order creation is a three-step saga
// (external confirmation, persistence, balance debit) with compensation on
// partial failure: the local ledger and the external carrier state must never
// diverge for longer than one compensating-action attempt.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/parceldeck/broker/internal/notify"
	"github.com/parceldeck/broker/internal/quote"
	"github.com/parceldeck/broker/internal/storage"
	"github.com/parceldeck/broker/internal/telemetry"
	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var (
	// ErrInvalidProvider indicates the chosen provider is unknown or inactive.
	ErrInvalidProvider = errors.New("order: invalid provider")

	// ErrInsufficientBalance indicates the prepaid balance cannot cover the price.
	ErrInsufficientBalance = errors.New("order: insufficient balance")

	// ErrProviderRejected indicates the provider refused the quote or order.
	ErrProviderRejected = errors.New("order: provider rejected")

	// ErrPersistenceFailed indicates a local write failed after the provider
	// confirmed the shipment; compensation was attempted.
	ErrPersistenceFailed = errors.New("order: persistence failed")
)

// CreateInput is one order-creation attempt.
type CreateInput struct {
	CarrierKey carrier.Key
	Request    *carrier.QuoteRequest
	BusinessID string

	// SkipBalanceDebit materializes a previously paid order (e.g. a
	// scheduled shipment) without touching the wallet.
	SkipBalanceDebit bool
}

// Result is the caller-facing outcome of a successful creation. It carries no
// internal cost breakdown.
type Result struct {
	OrderID         string        `json:"order_id"`
	CarrierKey      carrier.Key   `json:"carrier"`
	ExternalOrderID string        `json:"external_order_id"`
	TrackingRef     string        `json:"tracking_ref"`
	Status          carrier.Status `json:"status"`
	Price           carrier.Money `json:"price"`
}

// Orchestrator drives the order-creation saga and the follow-up lifecycle
// operations (status sync, cancellation with refund).
type Orchestrator struct {
	registry *carrier.Registry
	partners storage.PartnerStore
	orders   storage.OrderStore
	wallets  storage.WalletStore
	rules    map[carrier.Key]quote.MarkupRule
	notifier notify.Notifier
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
}

// NewOrchestrator creates an orchestrator. metrics may be nil in tests.
func NewOrchestrator(
	registry *carrier.Registry,
	partners storage.PartnerStore,
	orders storage.OrderStore,
	wallets storage.WalletStore,
	rules map[carrier.Key]quote.MarkupRule,
	notifier notify.Notifier,
	logger *otelzap.Logger,
	metrics *telemetry.Metrics,
) *Orchestrator {
	if rules == nil {
		rules = make(map[carrier.Key]quote.MarkupRule)
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Orchestrator{
		registry: registry,
		partners: partners,
		orders:   orders,
		wallets:  wallets,
		rules:    rules,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// CreateOrder runs the saga: re-quote the chosen provider, check the balance,
// confirm externally, persist, debit. Each step is gated on the previous
// one's success and each post-pivot failure compensates everything already
// committed.
func (o *Orchestrator) CreateOrder(ctx context.Context, input CreateInput) (*Result, error) {
	c, err := o.eligibleCarrier(ctx, input.CarrierKey)
	if err != nil {
		return nil, err
	}

	// The price shown during aggregation may be stale and a client-supplied
	// price is a validation hole, so the authoritative price is always
	// recomputed from the provider immediately before committing.
	freshQuote, err := c.GetQuote(ctx, input.Request)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderRejected, input.CarrierKey, err)
	}
	rule := o.rules[input.CarrierKey]
	providerCost := freshQuote.Price.Amount
	priceFinal := rule.Apply(providerCost)
	currency := freshQuote.Price.Currency

	// Cheapest rejection point: strictly before any external side effect.
	if !input.SkipBalanceDebit {
		balance, err := o.wallets.Balance(ctx, input.BusinessID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("fetching balance: %w", err)
		}
		if balance < priceFinal {
			return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, balance, priceFinal)
		}
	}

	// The fresh quote carries the provider's binding identifiers (rate id,
	// service id, address-book id). They travel to the adapter on a copy so
	// the caller's request stays untouched.
	orderReq := input.Request.Clone()
	for _, key := range quote.EssentialMetaKeys {
		if v, ok := freshQuote.Meta[key]; ok {
			if orderReq.Meta == nil {
				orderReq.Meta = make(map[string]string)
			}
			orderReq.Meta[key] = v
		}
	}

	// Pivot point: after this call returns success a real-world commitment
	// exists that must be reflected or unwound.
	ref := uuid.New().String()
	confirmation, err := c.CreateOrder(ctx, &carrier.CreateOrderRequest{
		Request:   orderReq,
		Reference: ref,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderRejected, input.CarrierKey, err)
	}

	record := &storage.Order{
		ID:               uuid.New().String(),
		BusinessID:       input.BusinessID,
		CarrierKey:       string(input.CarrierKey),
		CustomerOrderRef: ref,
		ExternalOrderID:  confirmation.ExternalOrderID,
		TrackingRef:      confirmation.TrackingRef,
		TrackingURL:      confirmation.TrackingURL,
		TotalCost:        priceFinal,
		PlatformFee:      priceFinal - providerCost,
		ProviderCost:     providerCost,
		Currency:         currency,
		Status:           string(confirmation.Status),
		RawStatus:        confirmation.RawStatus,
		Debited:          !input.SkipBalanceDebit,
		RequestSnapshot:  mustJSON(orderReq),
		ProviderSnapshot: mustJSON(confirmation),
	}
	if err := o.orders.Insert(ctx, record); err != nil {
		o.compensateExternal(ctx, c, confirmation.ExternalOrderID, "persist")
		return nil, fmt.Errorf("%w: inserting order: %v", ErrPersistenceFailed, err)
	}

	if !input.SkipBalanceDebit {
		if err := o.wallets.Debit(ctx, input.BusinessID, priceFinal, "order "+record.ID); err != nil {
			o.compensateExternal(ctx, c, confirmation.ExternalOrderID, "debit")
			if delErr := o.orders.Delete(ctx, record.ID); delErr != nil {
				o.logger.Ctx(ctx).Error("failed to delete order row during debit compensation",
					zap.String("order_id", record.ID),
					zap.String("action_required", "manual_intervention"),
					zap.Error(delErr),
				)
			}
			return nil, fmt.Errorf("%w: debiting wallet: %v", ErrPersistenceFailed, err)
		}
	}

	o.notifier.OrderEvent(ctx, notify.Event{
		Type:       "order.created",
		OrderID:    record.ID,
		BusinessID: input.BusinessID,
		CarrierKey: string(input.CarrierKey),
		Status:     record.Status,
	})

	return &Result{
		OrderID:         record.ID,
		CarrierKey:      input.CarrierKey,
		ExternalOrderID: confirmation.ExternalOrderID,
		TrackingRef:     confirmation.TrackingRef,
		Status:          confirmation.Status,
		Price:           carrier.Money{Amount: priceFinal, Currency: currency},
	}, nil
}

// SyncStatus polls the provider for an order's current status and persists
// any change. The raw provider status is preserved alongside the normalized
// one; bucketing happens only at the presentation layer.
func (o *Orchestrator) SyncStatus(ctx context.Context, orderID string) (*storage.Order, error) {
	record, err := o.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	c, err := o.registry.Get(carrier.Key(record.CarrierKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, record.CarrierKey)
	}

	tracking, err := c.TrackOrder(ctx, record.ExternalOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderRejected, record.CarrierKey, err)
	}

	if string(tracking.Status) != record.Status || tracking.RawStatus != record.RawStatus {
		if err := o.orders.UpdateStatus(ctx, record.ID, string(tracking.Status), tracking.RawStatus); err != nil {
			return nil, fmt.Errorf("%w: updating status: %v", ErrPersistenceFailed, err)
		}
		record.Status = string(tracking.Status)
		record.RawStatus = tracking.RawStatus

		o.notifier.OrderEvent(ctx, notify.Event{
			Type:       "order.status",
			OrderID:    record.ID,
			BusinessID: record.BusinessID,
			CarrierKey: record.CarrierKey,
			Status:     record.Status,
		})
	}
	return record, nil
}

// Cancel cancels an order with the provider, marks it cancelled locally and
// refunds the prepaid balance when the order was debited. Orders already in a
// terminal status are rejected so a repeated Cancel cannot refund twice.
func (o *Orchestrator) Cancel(ctx context.Context, orderID, reason string) (*storage.Order, error) {
	record, err := o.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch carrier.Status(record.Status) {
	case carrier.StatusCancelled, carrier.StatusDelivered, carrier.StatusFailed:
		return nil, fmt.Errorf("%w: order %s is %s", carrier.ErrCancellationNotAllowed, record.ID, record.Status)
	}
	c, err := o.registry.Get(carrier.Key(record.CarrierKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, record.CarrierKey)
	}

	cancellation, err := c.CancelOrder(ctx, record.ExternalOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderRejected, record.CarrierKey, err)
	}

	if err := o.orders.UpdateStatus(ctx, record.ID, string(cancellation.Status), string(cancellation.Status)); err != nil {
		return nil, fmt.Errorf("%w: updating status: %v", ErrPersistenceFailed, err)
	}
	record.Status = string(cancellation.Status)
	record.RawStatus = string(cancellation.Status)

	if record.Debited {
		if err := o.wallets.Credit(ctx, record.BusinessID, record.TotalCost, "refund order "+record.ID); err != nil {
			// The cancellation stands; the missed refund needs follow-up.
			o.logger.Ctx(ctx).Error("failed to refund cancelled order",
				zap.String("order_id", record.ID),
				zap.String("action_required", "manual_intervention"),
				zap.Error(err),
			)
		}
	}

	o.notifier.OrderEvent(ctx, notify.Event{
		Type:       "order.cancelled",
		OrderID:    record.ID,
		BusinessID: record.BusinessID,
		CarrierKey: record.CarrierKey,
		Status:     record.Status,
	})
	return record, nil
}

func (o *Orchestrator) eligibleCarrier(ctx context.Context, key carrier.Key) (carrier.Carrier, error) {
	c, err := o.registry.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, key)
	}
	partner, err := o.partners.ByKey(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, key)
		}
		return nil, fmt.Errorf("loading partner: %w", err)
	}
	if !partner.Active {
		return nil, fmt.Errorf("%w: %s is inactive", ErrInvalidProvider, key)
	}
	return c, nil
}

// compensateExternal tries to unwind the provider-side shipment after a local
// failure. A failed cancellation is logged, never thrown: a real-world
// shipment may now exist with no local record, which only an operator can fix.
func (o *Orchestrator) compensateExternal(ctx context.Context, c carrier.Carrier, externalOrderID, stage string) {
	_, err := c.CancelOrder(ctx, externalOrderID)
	if err != nil {
		o.logger.Ctx(ctx).Error("compensating cancellation failed",
			zap.String("carrier", string(c.Key())),
			zap.String("external_order_id", externalOrderID),
			zap.String("failed_stage", stage),
			zap.String("action_required", "manual_intervention"),
			zap.Error(err),
		)
		if o.metrics != nil {
			o.metrics.RecordCompensation(stage, "failed")
		}
		return
	}
	o.logger.Ctx(ctx).Warn("compensated external order after local failure",
		zap.String("carrier", string(c.Key())),
		zap.String("external_order_id", externalOrderID),
		zap.String("failed_stage", stage),
	)
	if o.metrics != nil {
		o.metrics.RecordCompensation(stage, "ok")
	}
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
