package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/coupon-server/pkg/coupon/data/resale"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed resale.Store
func New(db *sql.DB) resale.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements resale.Store.Put
func (s *store) Put(ctx context.Context, record *resale.Record) error {
	model, err := toModel(record)
	if err != nil {
		return err
	}

	if err := model.dbPut(ctx, s.db); err != nil {
		return err
	}

	fromModel(model).CopyTo(record)
	return nil
}

// Get implements resale.Store.Get
func (s *store) Get(ctx context.Context, listingId string) (*resale.Record, error) {
	model, err := dbGet(ctx, s.db, listingId)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetActiveByMint implements resale.Store.GetActiveByMint
func (s *store) GetActiveByMint(ctx context.Context, mint string) (*resale.Record, error) {
	model, err := dbGetActiveByMint(ctx, s.db, mint)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// Deactivate implements resale.Store.Deactivate
func (s *store) Deactivate(ctx context.Context, listingId string) error {
	return dbDeactivate(ctx, s.db, listingId)
}
