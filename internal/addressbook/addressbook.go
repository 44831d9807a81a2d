// Package addressbook maps normalized pickup addresses to provider-issued
// reusable address-book ids. Canonicalizing then hashing collapses the many
// free-text spellings of one physical location into a single provider-side
// registration, which matters because providers rate-limit and reject
// duplicate registrations.
package addressbook

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no cache entry exists for a hash.
var ErrNotFound = errors.New("addressbook: entry not found")

// Entry is one cached address registration, keyed by the content hash of the
// canonical formatted address.
type Entry struct {
	Hash              string
	FormattedAddress  string
	PhoneNumber       string
	ProviderAddressID string
	UpdatedAt         time.Time
}

// Store is the persistence contract for cache entries.
type Store interface {
	// Get returns the entry for hash, or ErrNotFound.
	Get(ctx context.Context, hash string) (*Entry, error)

	// Upsert inserts or refreshes an entry by hash.
	Upsert(ctx context.Context, entry *Entry) error
}
