package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce"
	pgutil "github.com/code-payments/coupon-server/pkg/database/postgres"
)

const (
	tableName = "coupon__core_redemptionnonce"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Mint      string `db:"mint"`
	Owner     string `db:"owner"`
	Timestamp int64  `db:"proof_timestamp"`

	Signature string `db:"signature"`

	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *nonce.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Mint:      obj.Mint,
		Owner:     obj.Owner,
		Timestamp: obj.Timestamp,

		Signature: obj.Signature,

		ExpiresAt: obj.ExpiresAt,
	}, nil
}

// dbClaim inserts the claim, or takes over an expired one for the same key.
// A live conflicting claim makes the conditional update match nothing, so no
// row is returned.
func (m *model) dbClaim(ctx context.Context, db *sqlx.DB, now time.Time) error {
	query := `INSERT INTO ` + tableName + `
		(mint, owner, proof_timestamp, signature, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (mint, owner, proof_timestamp)
		DO UPDATE
			SET signature = $4, expires_at = $5, created_at = $6
			WHERE ` + tableName + `.expires_at <= $6
		RETURNING id, mint, owner, proof_timestamp, signature, expires_at, created_at`

	m.CreatedAt = now

	return pgutil.ExecuteRetryable(func() error {
		err := db.QueryRowxContext(
			ctx,
			query,

			m.Mint,
			m.Owner,
			m.Timestamp,

			m.Signature,

			m.ExpiresAt,
			m.CreatedAt,
		).StructScan(m)
		return pgutil.CheckNoRows(err, nonce.ErrAlreadyClaimed)
	})
}

func dbPruneExpired(ctx context.Context, db *sqlx.DB, before time.Time) (uint64, error) {
	query := `DELETE FROM ` + tableName + `
		WHERE expires_at < $1
	`

	res, err := db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return uint64(rows), nil
}
