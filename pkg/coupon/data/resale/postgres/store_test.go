package postgres

import (
	"database/sql"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/coupon-server/pkg/coupon/data/resale"
	"github.com/code-payments/coupon-server/pkg/coupon/data/resale/tests"

	postgrestest "github.com/code-payments/coupon-server/pkg/database/postgres/test"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	// Used for testing ONLY, the table and migrations are external to this repository
	tableCreate = `
		CREATE TABLE coupon__core_resalelisting(
			id SERIAL NOT NULL PRIMARY KEY,

			listing_id TEXT NOT NULL,

			mint TEXT NOT NULL,
			seller TEXT NOT NULL,
			price BIGINT NOT NULL CHECK (price > 0),

			is_active BOOL NOT NULL,

			signature TEXT NOT NULL,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL,

			CONSTRAINT coupon__core_resalelisting__uniq__listing_id UNIQUE (listing_id)
		);

		CREATE UNIQUE INDEX coupon__core_resalelisting__uniq__active_mint
			ON coupon__core_resalelisting (mint) WHERE is_active;
	`

	// Used for testing ONLY, the table and migrations are external to this repository
	tableDestroy = `
		DROP TABLE coupon__core_resalelisting;
	`
)

var (
	testStore resale.Store
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

func TestResalePostgresStore(t *testing.T) {
	tests.RunTests(t, testStore, teardown)
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
