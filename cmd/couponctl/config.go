package main

import (
	"os"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	pg "github.com/code-payments/coupon-server/pkg/database/postgres"
	"github.com/code-payments/coupon-server/pkg/metrics"
	"github.com/code-payments/coupon-server/pkg/solana"
)

// BaseConfig is the process level configuration. Component tunables
// (freshness window, timeouts, platform wallet, ...) are read from their own
// COUPON_* environment variables by each package.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	// Metrics and log forwarding are only enabled with a license key
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	Cluster string `mapstructure:"cluster"`

	// Overrides the public endpoint of Cluster
	RpcEndpoint string `mapstructure:"rpc_endpoint"`

	Postgres pg.Config `mapstructure:"postgres"`

	// When set, redemption nonces and verify limits live in redis instead of
	// postgres and process memory.
	RedisAddress  string `mapstructure:"redis_address"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDb       int    `mapstructure:"redis_db"`

	// Per terminal verifications allowed within VerifyRateWindow
	VerifyRateLimit  int64         `mapstructure:"verify_rate_limit"`
	VerifyRateWindow time.Duration `mapstructure:"verify_rate_window"`

	NoncePruneSchedule string `mapstructure:"nonce_prune_schedule"`
}

var defaultConfig = BaseConfig{
	LogLevel: "info",

	AppName: "couponctl",

	Cluster: string(solana.ClusterDevnet),

	Postgres: pg.Config{
		Port: 5432,
	},

	VerifyRateLimit:  10,
	VerifyRateWindow: time.Minute,

	NoncePruneSchedule: "*/10 * * * *",
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")

	_ = viper.BindEnv("cluster", "SOLANA_CLUSTER")
	_ = viper.BindEnv("rpc_endpoint", "SOLANA_RPC_ENDPOINT")

	_ = viper.BindEnv("postgres.user", "POSTGRES_USER")
	_ = viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres.host", "POSTGRES_HOST")
	_ = viper.BindEnv("postgres.port", "POSTGRES_PORT")
	_ = viper.BindEnv("postgres.dbname", "POSTGRES_DB")
	_ = viper.BindEnv("postgres.use_aws_iam", "POSTGRES_USE_AWS_IAM")
	_ = viper.BindEnv("postgres.max_open_connections", "POSTGRES_MAX_OPEN_CONNECTIONS")
	_ = viper.BindEnv("postgres.max_idle_connections", "POSTGRES_MAX_IDLE_CONNECTIONS")

	_ = viper.BindEnv("redis_address", "REDIS_ADDRESS")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis_db", "REDIS_DB")

	_ = viper.BindEnv("verify_rate_limit", "VERIFY_RATE_LIMIT")
	_ = viper.BindEnv("verify_rate_window", "VERIFY_RATE_WINDOW")

	_ = viper.BindEnv("nonce_prune_schedule", "NONCE_PRUNE_SCHEDULE")
}

// loadConfig reads the optional config file at path, then environment
// overrides, on top of defaultConfig.
func loadConfig(path string) (*BaseConfig, error) {
	// viper only reports ConfigFileNotFoundError when searching for a default
	// file, so an explicit path is checked here.
	if len(path) > 0 {
		if _, err := os.Stat(path); err == nil {
			viper.SetConfigFile(path)
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to check if config exists")
		}
	}

	err := viper.ReadInConfig()
	if _, isConfigNotFound := err.(viper.ConfigFileNotFoundError); err != nil && !isConfigNotFound {
		return nil, errors.Wrap(err, "failed to load config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *BaseConfig) Validate() error {
	if len(c.AppName) == 0 {
		return errors.New("must specify an application name")
	}
	if err := solana.Cluster(c.Cluster).Validate(); err != nil {
		return err
	}
	if c.VerifyRateLimit <= 0 || c.VerifyRateWindow <= 0 {
		return errors.New("verify rate limit and window must be positive")
	}
	return nil
}

func (c *BaseConfig) endpoint() string {
	if len(c.RpcEndpoint) > 0 {
		return c.RpcEndpoint
	}
	return solana.Cluster(c.Cluster).Endpoint()
}

func (c *BaseConfig) hasPostgres() bool {
	return len(c.Postgres.Host) > 0
}

func (c *BaseConfig) hasRedis() bool {
	return len(c.RedisAddress) > 0
}

func newMetricsProvider(config *BaseConfig) (*newrelic.Application, error) {
	if len(config.NewRelicLicenseKey) == 0 {
		return nil, nil
	}

	return newrelic.NewApplication(
		newrelic.ConfigFromEnvironment(),
		newrelic.ConfigAppName(config.AppName),
		newrelic.ConfigLicense(config.NewRelicLicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
}

func configureLogger(config *BaseConfig, metricsProvider *newrelic.Application) {
	logrus.SetFormatter(metrics.NewLogForwarder(metricsProvider, &logrus.JSONFormatter{}))

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stderr)
}
