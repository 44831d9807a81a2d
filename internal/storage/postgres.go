package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenPostgres connects to postgres and migrates the broker schema.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&Order{},
		&Wallet{},
		&WalletTransaction{},
		&Partner{},
		&AddressEntry{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}
