package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const maxSerializationRetries = 5

// ExecuteRetryable runs fn again when postgres aborts it with a serialization
// failure, up to a bounded number of attempts.
func ExecuteRetryable(fn func() error) error {
	var err error
	for i := 0; i < maxSerializationRetries; i++ {
		err = fn()
		if !IsSerializationFailure(err) {
			return err
		}
	}
	return err
}

// ExecuteInTx runs fn within a new transaction, committing when fn succeeds
// and rolling back otherwise.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted // Postgres default
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: isolation,
	})
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		// Rollback is required for sql.DB to release the connection.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("failed to rollback transaction: %w", rollbackErr)
		}
		return err
	}
	return tx.Commit()
}
