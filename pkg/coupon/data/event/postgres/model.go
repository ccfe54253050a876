package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	pgutil "github.com/code-payments/coupon-server/pkg/database/postgres"
	q "github.com/code-payments/coupon-server/pkg/database/query"
	"github.com/code-payments/coupon-server/pkg/pointer"
)

const (
	tableName = "coupon__core_event"

	allFields = `id, event_id, event_type, mint, wallet, counterparty, signature, amount, fee, created_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	EventId   string `db:"event_id"`
	EventType uint32 `db:"event_type"`

	Mint         string         `db:"mint"`
	Wallet       string         `db:"wallet"`
	Counterparty sql.NullString `db:"counterparty"`

	Signature string `db:"signature"`

	Amount uint64 `db:"amount"`
	Fee    uint64 `db:"fee"`

	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *event.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		EventId:   obj.EventId,
		EventType: uint32(obj.Type),

		Mint:   obj.Mint,
		Wallet: obj.Wallet,
		Counterparty: sql.NullString{
			Valid:  obj.Counterparty != nil,
			String: *pointer.StringOrDefault(obj.Counterparty, ""),
		},

		Signature: obj.Signature,

		Amount: obj.Amount,
		Fee:    obj.Fee,

		CreatedAt: obj.CreatedAt,
	}, nil
}

func fromModel(obj *model) *event.Record {
	return &event.Record{
		Id: uint64(obj.Id.Int64),

		EventId: obj.EventId,
		Type:    event.Type(obj.EventType),

		Mint:         obj.Mint,
		Wallet:       obj.Wallet,
		Counterparty: pointer.StringIfValid(obj.Counterparty.Valid, obj.Counterparty.String),

		Signature: obj.Signature,

		Amount: obj.Amount,
		Fee:    obj.Fee,

		CreatedAt: obj.CreatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(event_id, event_type, mint, wallet, counterparty, signature, amount, fee, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING ` + allFields

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		err := tx.QueryRowxContext(
			ctx,
			query,

			m.EventId,
			m.EventType,

			m.Mint,
			m.Wallet,
			m.Counterparty,

			m.Signature,

			m.Amount,
			m.Fee,

			m.CreatedAt,
		).StructScan(m)
		return pgutil.CheckUniqueViolation(err, event.ErrEventExists)
	})
}

func dbGet(ctx context.Context, db *sqlx.DB, id string) (*model, error) {
	var res model

	query := `SELECT ` + allFields + ` FROM ` + tableName + `
		WHERE event_id = $1
	`

	err := db.GetContext(ctx, &res, query, id)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, event.ErrEventNotFound)
	}
	return &res, nil
}

func dbGetAllByMint(ctx context.Context, db *sqlx.DB, mint string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allFields + ` FROM ` + tableName + `
		WHERE (mint = $1)
	`

	opts := []interface{}{mint}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, event.ErrEventNotFound)
	}

	if len(res) == 0 {
		return nil, event.ErrEventNotFound
	}
	return res, nil
}
