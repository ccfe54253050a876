package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce"
)

type store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New returns a new postgres-backed nonce.Store
func New(db *sql.DB) nonce.Store {
	return &store{
		db:  sqlx.NewDb(db, "pgx"),
		now: time.Now,
	}
}

// Claim implements nonce.Store.Claim
func (s *store) Claim(ctx context.Context, record *nonce.Record) error {
	model, err := toModel(record)
	if err != nil {
		return err
	}
	return model.dbClaim(ctx, s.db, s.now())
}

// PruneExpired implements nonce.Store.PruneExpired
func (s *store) PruneExpired(ctx context.Context, before time.Time) (uint64, error) {
	return dbPruneExpired(ctx, s.db, before)
}
