package pg

import (
	"database/sql"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMapping(t *testing.T) {
	errNotFound := errors.New("not found")
	errExists := errors.New("exists")

	assert.Equal(t, errNotFound, CheckNoRows(sql.ErrNoRows, errNotFound))
	assert.Equal(t, errNotFound, CheckNoRows(errors.Wrap(sql.ErrNoRows, "scan"), errNotFound))
	assert.Equal(t, assert.AnError, CheckNoRows(assert.AnError, errNotFound))
	assert.NoError(t, CheckNoRows(nil, errNotFound))

	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	assert.Equal(t, errExists, CheckUniqueViolation(unique, errExists))
	assert.Equal(t, errExists, CheckUniqueViolation(errors.Wrap(unique, "insert"), errExists))
	assert.Equal(t, assert.AnError, CheckUniqueViolation(assert.AnError, errExists))
	assert.NoError(t, CheckUniqueViolation(nil, errExists))

	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: pgerrcode.SerializationFailure}))
	assert.False(t, IsSerializationFailure(unique))
	assert.False(t, IsSerializationFailure(nil))
}

func TestExecuteRetryable(t *testing.T) {
	var calls int
	err := ExecuteRetryable(func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = ExecuteRetryable(func() error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	})
	assert.True(t, IsSerializationFailure(err))
	assert.Equal(t, maxSerializationRetries, calls)
}
