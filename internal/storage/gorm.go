package storage

import (
	"context"
	"errors"
	"time"

	"github.com/parceldeck/broker/internal/addressbook"
	"github.com/parceldeck/broker/pkg/carrier"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderStore persists orders in postgres.
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore creates an order store over db.
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

func (s *GormOrderStore) Insert(ctx context.Context, order *Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *GormOrderStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&Order{}, "id = ?", id).Error
}

func (s *GormOrderStore) UpdateStatus(ctx context.Context, id string, status, rawStatus string) error {
	res := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "raw_status": rawStatus})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormOrderStore) Get(ctx context.Context, id string) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GormWalletStore persists prepaid balances in postgres.
type GormWalletStore struct {
	db *gorm.DB
}

// NewGormWalletStore creates a wallet store over db.
func NewGormWalletStore(db *gorm.DB) *GormWalletStore {
	return &GormWalletStore{db: db}
}

func (s *GormWalletStore) Balance(ctx context.Context, businessID string) (int64, error) {
	var wallet Wallet
	err := s.db.WithContext(ctx).First(&wallet, "business_id = ?", businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// Debit decrements the balance with a single conditional UPDATE. Zero rows
// affected means the balance was too low (or the wallet does not exist).
func (s *GormWalletStore) Debit(ctx context.Context, businessID string, amount int64, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Wallet{}).
			Where("business_id = ? AND balance >= ?", businessID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientFunds
		}
		return tx.Create(&WalletTransaction{
			BusinessID: businessID,
			Amount:     -amount,
			Reason:     reason,
		}).Error
	})
}

func (s *GormWalletStore) Credit(ctx context.Context, businessID string, amount int64, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Wallet{}).
			Where("business_id = ?", businessID).
			Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(&WalletTransaction{
			BusinessID: businessID,
			Amount:     amount,
			Reason:     reason,
		}).Error
	})
}

// GormPartnerStore reads provider records from postgres.
type GormPartnerStore struct {
	db *gorm.DB
}

// NewGormPartnerStore creates a partner store over db.
func NewGormPartnerStore(db *gorm.DB) *GormPartnerStore {
	return &GormPartnerStore{db: db}
}

func (s *GormPartnerStore) Active(ctx context.Context) (map[carrier.Key]Partner, error) {
	var partners []Partner
	if err := s.db.WithContext(ctx).Where("active = ?", true).Find(&partners).Error; err != nil {
		return nil, err
	}
	out := make(map[carrier.Key]Partner, len(partners))
	for _, p := range partners {
		out[carrier.Key(p.Key)] = p
	}
	return out, nil
}

func (s *GormPartnerStore) ByKey(ctx context.Context, key carrier.Key) (*Partner, error) {
	var partner Partner
	err := s.db.WithContext(ctx).First(&partner, "key = ?", string(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

// EnsurePartners seeds partner rows for the configured carrier keys if they
// are missing, leaving existing rows (and their active flags) untouched.
func EnsurePartners(ctx context.Context, db *gorm.DB, keys []carrier.Key) error {
	for _, key := range keys {
		partner := Partner{Key: string(key), Name: string(key), Active: true}
		if err := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
			Create(&partner).Error; err != nil {
			return err
		}
	}
	return nil
}

// GormAddressStore persists address cache entries in postgres.
type GormAddressStore struct {
	db *gorm.DB
}

// NewGormAddressStore creates an address store over db.
func NewGormAddressStore(db *gorm.DB) *GormAddressStore {
	return &GormAddressStore{db: db}
}

func (s *GormAddressStore) Get(ctx context.Context, hash string) (*addressbook.Entry, error) {
	var row AddressEntry
	err := s.db.WithContext(ctx).First(&row, "hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, addressbook.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &addressbook.Entry{
		Hash:              row.Hash,
		FormattedAddress:  row.FormattedAddress,
		PhoneNumber:       row.PhoneNumber,
		ProviderAddressID: row.ProviderAddressID,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

func (s *GormAddressStore) Upsert(ctx context.Context, entry *addressbook.Entry) error {
	row := AddressEntry{
		Hash:              entry.Hash,
		FormattedAddress:  entry.FormattedAddress,
		PhoneNumber:       entry.PhoneNumber,
		ProviderAddressID: entry.ProviderAddressID,
		UpdatedAt:         time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"formatted_address", "phone_number", "provider_address_id", "updated_at"}),
		}).
		Create(&row).Error
}
