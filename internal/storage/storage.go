// Package storage provides the persistence contracts and implementations for
// the broker: orders, prepaid wallets, partner records and the address cache.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/parceldeck/broker/pkg/carrier"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrInsufficientFunds indicates a debit would take a wallet below zero.
	ErrInsufficientFunds = errors.New("storage: insufficient funds")
)

// Order is the durable record of a brokered shipment. It is inserted only
// after the provider has confirmed the shipment; the raw provider response is
// kept verbatim alongside the request snapshot.
type Order struct {
	ID               string `gorm:"primaryKey;size:36"`
	BusinessID       string `gorm:"index;size:36"`
	CarrierKey       string `gorm:"index;size:32"`
	CustomerOrderRef string `gorm:"uniqueIndex;size:64"`
	ExternalOrderID  string `gorm:"size:128"`
	TrackingRef      string `gorm:"size:128"`
	TrackingURL      string

	// Cost breakdown in minor units. TotalCost is what the business paid;
	// PlatformFee and ProviderCost are internal and never serialized to
	// non-privileged callers.
	TotalCost    int64
	PlatformFee  int64
	ProviderCost int64
	Currency     string `gorm:"size:8"`

	// Debited records whether the wallet was actually charged for this
	// order. Cancellation refunds only debited orders.
	Debited bool

	// Status is the normalized vocabulary; RawStatus preserves the
	// provider's own wording for state-machine purposes.
	Status    string `gorm:"size:32"`
	RawStatus string `gorm:"size:64"`

	RequestSnapshot  json.RawMessage `gorm:"type:jsonb"`
	ProviderSnapshot json.RawMessage `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Wallet is a prepaid balance, one per business, in minor units.
type Wallet struct {
	BusinessID string `gorm:"primaryKey;size:36"`
	Balance    int64
	Currency   string `gorm:"size:8"`
	UpdatedAt  time.Time
}

// WalletTransaction is one debit or credit against a wallet. Amount is
// negative for debits.
type WalletTransaction struct {
	ID         uint   `gorm:"primaryKey"`
	BusinessID string `gorm:"index;size:36"`
	Amount     int64
	Reason     string `gorm:"size:128"`
	CreatedAt  time.Time
}

// Partner is the persisted record of a delivery provider. Its numeric ID is
// the stable provider id surfaced on quotes for later order creation; Active
// is the global on/off switch consulted by the aggregator.
type Partner struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"uniqueIndex;size:32"`
	Name      string `gorm:"size:64"`
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddressEntry is a cached provider address-book registration keyed by the
// content hash of the canonical formatted address.
type AddressEntry struct {
	Hash              string `gorm:"primaryKey;size:64"`
	FormattedAddress  string
	PhoneNumber       string `gorm:"size:32"`
	ProviderAddressID string `gorm:"size:128"`
	UpdatedAt         time.Time
}

// OrderStore is the order persistence contract used by the orchestrator.
type OrderStore interface {
	Insert(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status, rawStatus string) error
	Get(ctx context.Context, id string) (*Order, error)
}

// WalletStore is the prepaid balance contract. Debit must be a single
// conditional decrement so concurrent orders for one business cannot race a
// read-modify-write into a lost update.
type WalletStore interface {
	Balance(ctx context.Context, businessID string) (int64, error)
	Debit(ctx context.Context, businessID string, amount int64, reason string) error
	Credit(ctx context.Context, businessID string, amount int64, reason string) error
}

// PartnerStore exposes provider records.
type PartnerStore interface {
	// Active returns all active partners keyed by carrier key.
	Active(ctx context.Context) (map[carrier.Key]Partner, error)
	ByKey(ctx context.Context, key carrier.Key) (*Partner, error)
}
