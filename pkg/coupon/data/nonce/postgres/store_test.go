package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce"
	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce/tests"

	postgrestest "github.com/code-payments/coupon-server/pkg/database/postgres/test"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	// Used for testing ONLY, the table and migrations are external to this repository
	tableCreate = `
		CREATE TABLE coupon__core_redemptionnonce(
			id SERIAL NOT NULL PRIMARY KEY,

			mint TEXT NOT NULL,
			owner TEXT NOT NULL,
			proof_timestamp BIGINT NOT NULL,

			signature TEXT NOT NULL,

			expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,

			CONSTRAINT coupon__core_redemptionnonce__uniq__mint__and__owner__and__proof_timestamp UNIQUE (mint, owner, proof_timestamp)
		);
	`

	// Used for testing ONLY, the table and migrations are external to this repository
	tableDestroy = `
		DROP TABLE coupon__core_redemptionnonce;
	`
)

var (
	testStore nonce.Store
	teardown  func()
)

func TestMain(m *testing.M) {
	log := logrus.StandardLogger()

	testPool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Error("Error creating docker pool")
		os.Exit(1)
	}

	var cleanUpFunc func()
	db, cleanUpFunc, err := postgrestest.StartPostgresDB(testPool)
	if err != nil {
		log.WithError(err).Error("Error starting postgres image")
		os.Exit(1)
	}
	defer db.Close()

	if err := createTestTables(db); err != nil {
		log.WithError(err).Error("Error creating test tables")
		cleanUpFunc()
		os.Exit(1)
	}

	testStore = New(db)
	teardown = func() {
		if pc := recover(); pc != nil {
			cleanUpFunc()
			panic(pc)
		}

		if err := resetTestTables(db); err != nil {
			log.WithError(err).Error("Error resetting test tables")
			cleanUpFunc()
			os.Exit(1)
		}
	}

	code := m.Run()
	cleanUpFunc()
	os.Exit(code)
}

func TestNoncePostgresStore(t *testing.T) {
	tests.RunTests(t, testStore, teardown)
}

func TestNoncePostgresStore_Expiry(t *testing.T) {
	defer teardown()

	ctx := context.Background()
	now := time.Now()

	s := testStore.(*store)
	s.now = func() time.Time { return now }
	defer func() { s.now = time.Now }()

	record := &nonce.Record{
		Mint:      "mint",
		Owner:     "owner",
		Timestamp: now.UnixMilli(),
		Signature: "signature",
		ExpiresAt: now.Add(time.Minute),
	}
	require.NoError(t, s.Claim(ctx, record))
	assert.Equal(t, nonce.ErrAlreadyClaimed, s.Claim(ctx, record))

	pruned, err := s.PruneExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, pruned)

	// An expired claim is taken over in place
	now = now.Add(2 * time.Minute)
	require.NoError(t, s.Claim(ctx, record))

	pruned, err = s.PruneExpired(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)
}

func createTestTables(db *sql.DB) error {
	_, err := db.Exec(tableCreate)
	return err
}

func resetTestTables(db *sql.DB) error {
	if _, err := db.Exec(tableDestroy); err != nil {
		return err
	}
	return createTestTables(db)
}
