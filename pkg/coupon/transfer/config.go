package transfer

import (
	"time"

	"github.com/code-payments/coupon-server/pkg/config"
	"github.com/code-payments/coupon-server/pkg/config/env"
	"github.com/code-payments/coupon-server/pkg/config/memory"
	"github.com/code-payments/coupon-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "COUPON_TRANSFER_"

	// Receives the platform share of every paid transfer. There is no default,
	// so paid transfers fail their preconditions until it is set.
	PlatformWalletConfigEnvName = envConfigPrefix + "PLATFORM_WALLET"
	defaultPlatformWallet       = ""

	ClusterConfigEnvName = envConfigPrefix + "CLUSTER"
	defaultCluster       = "devnet"

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"

	SubmitTimeoutConfigEnvName = envConfigPrefix + "SUBMIT_TIMEOUT"
	defaultSubmitTimeout       = 30 * time.Second

	ConfirmationTimeoutConfigEnvName = envConfigPrefix + "CONFIRMATION_TIMEOUT"
	defaultConfirmationTimeout       = time.Minute

	ConfirmationPollRateConfigEnvName = envConfigPrefix + "CONFIRMATION_POLL_RATE"
	defaultConfirmationPollRate       = 500 * time.Millisecond

	ReadCacheTtlConfigEnvName = envConfigPrefix + "READ_CACHE_TTL"
	defaultReadCacheTtl       = 10 * time.Second

	ReadCacheSizeConfigEnvName = envConfigPrefix + "READ_CACHE_SIZE"
	defaultReadCacheSize       = 10_000
)

type conf struct {
	platformWallet       config.String
	cluster              config.String
	commitment           config.String
	submitTimeout        config.Duration
	confirmationTimeout  config.Duration
	confirmationPollRate config.Duration
	readCacheTtl         config.Duration
	readCacheSize        config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			platformWallet:       env.NewStringConfig(PlatformWalletConfigEnvName, defaultPlatformWallet),
			cluster:              env.NewStringConfig(ClusterConfigEnvName, defaultCluster),
			commitment:           env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			submitTimeout:        env.NewDurationConfig(SubmitTimeoutConfigEnvName, defaultSubmitTimeout),
			confirmationTimeout:  env.NewDurationConfig(ConfirmationTimeoutConfigEnvName, defaultConfirmationTimeout),
			confirmationPollRate: env.NewDurationConfig(ConfirmationPollRateConfigEnvName, defaultConfirmationPollRate),
			readCacheTtl:         env.NewDurationConfig(ReadCacheTtlConfigEnvName, defaultReadCacheTtl),
			readCacheSize:        env.NewUint64Config(ReadCacheSizeConfigEnvName, defaultReadCacheSize),
		}
	}
}

type testOverrides struct {
	platformWallet       string
	cluster              string
	confirmationTimeout  time.Duration
	confirmationPollRate time.Duration
	readCacheTtl         time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			platformWallet:       wrapper.NewStringConfig(memory.NewConfig(overrides.platformWallet), defaultPlatformWallet),
			cluster:              wrapper.NewStringConfig(memory.NewConfig(overrides.cluster), defaultCluster),
			commitment:           wrapper.NewStringConfig(memory.NewConfig(defaultCommitment), defaultCommitment),
			submitTimeout:        wrapper.NewDurationConfig(memory.NewConfig(defaultSubmitTimeout), defaultSubmitTimeout),
			confirmationTimeout:  wrapper.NewDurationConfig(memory.NewConfig(overrides.confirmationTimeout), defaultConfirmationTimeout),
			confirmationPollRate: wrapper.NewDurationConfig(memory.NewConfig(overrides.confirmationPollRate), defaultConfirmationPollRate),
			readCacheTtl:         wrapper.NewDurationConfig(memory.NewConfig(overrides.readCacheTtl), defaultReadCacheTtl),
			readCacheSize:        wrapper.NewUint64Config(memory.NewConfig(defaultReadCacheSize), defaultReadCacheSize),
		}
	}
}
