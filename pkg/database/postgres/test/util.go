// Package test runs a disposable postgres container for store tests.
package test

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v4/stdlib" //nolint:revive

	"github.com/code-payments/coupon-server/pkg/retry"
	"github.com/code-payments/coupon-server/pkg/retry/backoff"
)

const (
	image    = "postgres"
	imageTag = "14-alpine"

	// Containers are killed by docker after this long even if the test
	// binary never reaches cleanup.
	containerTTL = 2 * time.Minute

	user     = "coupontest"
	password = "coupontest"
	dbname   = "coupons"

	pingInterval = 500 * time.Millisecond
	maxPings     = 60
)

// StartPostgresDB runs a postgres container and returns a connected client.
// closeFunc removes the container and is safe to call on error.
func StartPostgresDB(pool *dockertest.Pool) (db *sql.DB, closeFunc func(), err error) {
	log := logrus.StandardLogger().WithField("type", "database/postgres/test")
	closeFunc = func() {}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: image,
		Tag:        imageTag,
		Env: []string{
			"POSTGRES_USER=" + user,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + dbname,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, closeFunc, errors.Wrap(err, "failed to start postgres container")
	}

	closeFunc = func() {
		if err := pool.Purge(resource); err != nil {
			log.WithError(err).Warn("failed to purge postgres container")
		}
	}

	// Expire never returns an error in practice
	_ = resource.Expire(uint(containerTTL.Seconds()))

	url := fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		user,
		password,
		resource.GetHostPort("5432/tcp"),
		dbname,
	)
	log.WithField("url", url).Debug("waiting for postgres container")

	_, err = retry.Retry(
		func() error {
			db, err = sql.Open("pgx", url)
			if err != nil {
				return err
			}
			return db.Ping()
		},
		retry.Limit(maxPings),
		retry.Backoff(backoff.Constant(pingInterval), pingInterval),
	)
	if err != nil {
		closeFunc()
		return nil, func() {}, errors.Wrap(err, "postgres container never became available")
	}

	return db, closeFunc, nil
}
