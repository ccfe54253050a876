package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce"
	nonce_memory "github.com/code-payments/coupon-server/pkg/coupon/data/nonce/memory"
	nonce_postgres "github.com/code-payments/coupon-server/pkg/coupon/data/nonce/postgres"
	nonce_redis "github.com/code-payments/coupon-server/pkg/coupon/data/nonce/redis"
	pg "github.com/code-payments/coupon-server/pkg/database/postgres"
	"github.com/code-payments/coupon-server/pkg/metrics"
	coupon_rate "github.com/code-payments/coupon-server/pkg/rate"
	"github.com/code-payments/coupon-server/pkg/solana"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "couponctl",
	Short: "Operate the coupon escrow and redemption subsystem",
	Long: `couponctl derives coupon program addresses, issues and verifies
redemption proofs, reads coupon state and submits escrow transfers.

Process configuration comes from an optional config file and the
environment. Component tunables use their own COUPON_* variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "configuration file path")
}

// env holds the dependencies built from BaseConfig for a single invocation.
type env struct {
	log    *logrus.Entry
	config *BaseConfig

	metricsProvider *newrelic.Application

	db    *sql.DB
	redis *redis.Client
}

func setupEnv(cmd *cobra.Command) (*env, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	metricsProvider, err := newMetricsProvider(config)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to new relic")
	}
	configureLogger(config, metricsProvider)

	e := &env{
		log:             logrus.StandardLogger().WithField("type", "couponctl").WithField("command", cmd.CommandPath()),
		config:          config,
		metricsProvider: metricsProvider,
	}

	if config.hasPostgres() {
		e.db, err = pg.Open(&config.Postgres)
		if err != nil {
			return nil, err
		}
	}

	if config.hasRedis() {
		e.redis = redis.NewClient(&redis.Options{
			Addr:     config.RedisAddress,
			Password: config.RedisPassword,
			DB:       config.RedisDb,
		})
		if err := e.redis.Ping(cmd.Context()).Err(); err != nil {
			e.close()
			return nil, errors.Wrap(err, "failed to ping redis")
		}
	}

	return e, nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
	if e.redis != nil {
		e.redis.Close()
	}
	if e.metricsProvider != nil {
		e.metricsProvider.Shutdown(defaultShutdownTimeout)
	}
}

func (e *env) context(ctx context.Context) context.Context {
	return metrics.NewContext(ctx, e.metricsProvider)
}

func (e *env) solanaClient() solana.Client {
	return solana.New(e.config.endpoint())
}

// nonceStore prefers redis, then postgres. The memory store only protects a
// single invocation, which is enough for ad hoc checks.
func (e *env) nonceStore() nonce.Store {
	switch {
	case e.redis != nil:
		return nonce_redis.New(e.redis)
	case e.db != nil:
		return nonce_postgres.New(e.db)
	default:
		e.log.Warn("no nonce store configured, replay protection is local to this process")
		return nonce_memory.New()
	}
}

func (e *env) verifyLimiter() coupon_rate.Limiter {
	if e.redis != nil {
		return coupon_rate.NewRedisRateLimiter(e.redis, e.config.VerifyRateLimit, e.config.VerifyRateWindow)
	}

	perSecond := float64(e.config.VerifyRateLimit) / e.config.VerifyRateWindow.Seconds()
	return coupon_rate.NewLocalRateLimiter(rate.Limit(perSecond))
}

func (e *env) requirePostgres() error {
	if e.db == nil {
		return errors.New("postgres is not configured")
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}
