package repository

import (
	"testing"

	"github.com/nimasrn/laser/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SeedStatuses mirrors the deal_status seed migration.
var SeedStatuses = []DealStatusEntity{
	{ID: 1, Name: "Waiting", Sequence: 1},
	{ID: 2, Name: "Pending", Sequence: 2},
	{ID: 3, Name: "Agreement", Sequence: 3},
	{ID: 4, Name: "Ready to receive", Sequence: 4},
	{ID: 5, Name: "Done", Sequence: 5},
}

// NewTestDB opens a private in-memory sqlite database with the full schema and
// the seeded statuses. A single connection backs it, so concurrent writers
// queue up as they would behind row locks.
func NewTestDB(t testing.TB) *pg.DB {
	t.Helper()

	cfg := pg.GormConfig()
	cfg.DisableForeignKeyConstraintWhenMigrating = true
	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&LocationEntity{},
		&UserEntity{},
		&TripEntity{},
		&ShipmentTypeEntity{},
		&ShipmentEntity{},
		&DealStatusEntity{},
		&AccountProviderEntity{},
		&TransactionEntity{},
		&DealEntity{},
		&OfferEntity{},
	)
	require.NoError(t, err)
	statuses := append([]DealStatusEntity(nil), SeedStatuses...)
	require.NoError(t, db.Create(&statuses).Error)

	return pg.New(db, db)
}
