package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	"github.com/code-payments/coupon-server/pkg/database/query"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed event.Store
func New(db *sql.DB) event.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements event.Store.Put
func (s *store) Put(ctx context.Context, record *event.Record) error {
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

// Get implements event.Store.Get
func (s *store) Get(ctx context.Context, id string) (*event.Record, error) {
	model, err := dbGet(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetAllByMint implements event.Store.GetAllByMint
func (s *store) GetAllByMint(ctx context.Context, mint string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*event.Record, error) {
	models, err := dbGetAllByMint(ctx, s.db, mint, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*event.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}
