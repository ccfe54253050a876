package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/coupon-server/pkg/coupon/data/resale"
	pgutil "github.com/code-payments/coupon-server/pkg/database/postgres"
)

const (
	tableName = "coupon__core_resalelisting"

	allFields = `id, listing_id, mint, seller, price, is_active, signature, created_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	ListingId string `db:"listing_id"`

	Mint   string `db:"mint"`
	Seller string `db:"seller"`
	Price  uint64 `db:"price"`

	IsActive bool `db:"is_active"`

	Signature string `db:"signature"`

	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *resale.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		ListingId: obj.ListingId,

		Mint:   obj.Mint,
		Seller: obj.Seller,
		Price:  obj.Price,

		IsActive: true,

		Signature: obj.Signature,

		CreatedAt: obj.CreatedAt,
	}, nil
}

func fromModel(obj *model) *resale.Record {
	return &resale.Record{
		Id: uint64(obj.Id.Int64),

		ListingId: obj.ListingId,

		Mint:   obj.Mint,
		Seller: obj.Seller,
		Price:  obj.Price,

		IsActive: obj.IsActive,

		Signature: obj.Signature,

		CreatedAt: obj.CreatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		// The partial unique index on (mint) WHERE is_active enforces a single
		// active listing per mint.
		query := `INSERT INTO ` + tableName + `
			(listing_id, mint, seller, price, is_active, signature, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING ` + allFields

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		err := tx.QueryRowxContext(
			ctx,
			query,

			m.ListingId,

			m.Mint,
			m.Seller,
			m.Price,

			m.IsActive,

			m.Signature,

			m.CreatedAt,
		).StructScan(m)
		return pgutil.CheckUniqueViolation(err, resale.ErrListingExists)
	})
}

func dbGet(ctx context.Context, db *sqlx.DB, listingId string) (*model, error) {
	var res model

	query := `SELECT ` + allFields + ` FROM ` + tableName + `
		WHERE listing_id = $1
	`

	err := db.GetContext(ctx, &res, query, listingId)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, resale.ErrListingNotFound)
	}
	return &res, nil
}

func dbGetActiveByMint(ctx context.Context, db *sqlx.DB, mint string) (*model, error) {
	var res model

	query := `SELECT ` + allFields + ` FROM ` + tableName + `
		WHERE mint = $1 AND is_active
	`

	err := db.GetContext(ctx, &res, query, mint)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, resale.ErrListingNotFound)
	}
	return &res, nil
}

func dbDeactivate(ctx context.Context, db *sqlx.DB, listingId string) error {
	query := `UPDATE ` + tableName + `
		SET is_active = false
		WHERE listing_id = $1 AND is_active
	`

	res, err := db.ExecContext(ctx, query, listingId)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return resale.ErrListingNotFound
	}
	return nil
}
