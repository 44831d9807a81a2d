package storage

import (
	"context"
	"sync"
	"time"

	"github.com/parceldeck/broker/internal/addressbook"
	"github.com/parceldeck/broker/pkg/carrier"
)

// In-memory store implementations, used by tests and by dev-mode wiring when
// no database is configured. The failure hooks let tests force a store error
// at a precise saga step.

// MemoryOrderStore keeps orders in a map.
type MemoryOrderStore struct {
	mu     sync.Mutex
	orders map[string]*Order

	// InsertErr, when set, is returned by Insert instead of persisting.
	InsertErr error
}

// NewMemoryOrderStore creates an empty order store.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]*Order)}
}

func (s *MemoryOrderStore) Insert(ctx context.Context, order *Order) error {
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *order
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.orders[order.ID] = &cp
	return nil
}

func (s *MemoryOrderStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
	return nil
}

func (s *MemoryOrderStore) UpdateStatus(ctx context.Context, id string, status, rawStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	order.RawStatus = rawStatus
	order.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryOrderStore) Get(ctx context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *order
	return &cp, nil
}

// Count returns the number of stored orders.
func (s *MemoryOrderStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// MemoryWalletStore keeps balances in a map.
type MemoryWalletStore struct {
	mu       sync.Mutex
	balances map[string]int64
	txs      []WalletTransaction

	// DebitErr, when set, is returned by Debit instead of decrementing.
	DebitErr error
}

// NewMemoryWalletStore creates a wallet store seeded with balances.
func NewMemoryWalletStore(balances map[string]int64) *MemoryWalletStore {
	if balances == nil {
		balances = make(map[string]int64)
	}
	return &MemoryWalletStore{balances: balances}
}

func (s *MemoryWalletStore) Balance(ctx context.Context, businessID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[businessID]
	if !ok {
		return 0, ErrNotFound
	}
	return balance, nil
}

func (s *MemoryWalletStore) Debit(ctx context.Context, businessID string, amount int64, reason string) error {
	if s.DebitErr != nil {
		return s.DebitErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[businessID]
	if !ok || balance < amount {
		return ErrInsufficientFunds
	}
	s.balances[businessID] = balance - amount
	s.txs = append(s.txs, WalletTransaction{BusinessID: businessID, Amount: -amount, Reason: reason, CreatedAt: time.Now()})
	return nil
}

func (s *MemoryWalletStore) Credit(ctx context.Context, businessID string, amount int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[businessID]; !ok {
		return ErrNotFound
	}
	s.balances[businessID] += amount
	s.txs = append(s.txs, WalletTransaction{BusinessID: businessID, Amount: amount, Reason: reason, CreatedAt: time.Now()})
	return nil
}

// Transactions returns a copy of the recorded wallet transactions.
func (s *MemoryWalletStore) Transactions() []WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WalletTransaction, len(s.txs))
	copy(out, s.txs)
	return out
}

// MemoryPartnerStore keeps partner records in a map.
type MemoryPartnerStore struct {
	mu       sync.Mutex
	partners map[carrier.Key]Partner
}

// NewMemoryPartnerStore creates a partner store with active rows for keys.
func NewMemoryPartnerStore(keys ...carrier.Key) *MemoryPartnerStore {
	s := &MemoryPartnerStore{partners: make(map[carrier.Key]Partner)}
	for i, key := range keys {
		s.partners[key] = Partner{ID: uint(i + 1), Key: string(key), Name: string(key), Active: true}
	}
	return s
}

// SetActive toggles a partner's active flag.
func (s *MemoryPartnerStore) SetActive(key carrier.Key, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	partner := s.partners[key]
	partner.Active = active
	s.partners[key] = partner
}

func (s *MemoryPartnerStore) Active(ctx context.Context) (map[carrier.Key]Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[carrier.Key]Partner)
	for key, partner := range s.partners {
		if partner.Active {
			out[key] = partner
		}
	}
	return out, nil
}

func (s *MemoryPartnerStore) ByKey(ctx context.Context, key carrier.Key) (*Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	partner, ok := s.partners[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := partner
	return &cp, nil
}

// MemoryAddressStore keeps address cache entries in a map.
type MemoryAddressStore struct {
	mu      sync.Mutex
	entries map[string]*addressbook.Entry
}

// NewMemoryAddressStore creates an empty address store.
func NewMemoryAddressStore() *MemoryAddressStore {
	return &MemoryAddressStore{entries: make(map[string]*addressbook.Entry)}
}

func (s *MemoryAddressStore) Get(ctx context.Context, hash string) (*addressbook.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[hash]
	if !ok {
		return nil, addressbook.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (s *MemoryAddressStore) Upsert(ctx context.Context, entry *addressbook.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	cp.UpdatedAt = time.Now()
	s.entries[entry.Hash] = &cp
	return nil
}

// Len returns the number of cached entries.
func (s *MemoryAddressStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
