package redemption

import (
	"time"

	"github.com/code-payments/coupon-server/pkg/config"
	"github.com/code-payments/coupon-server/pkg/config/env"
	"github.com/code-payments/coupon-server/pkg/config/memory"
	"github.com/code-payments/coupon-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "COUPON_REDEMPTION_"

	FreshnessWindowConfigEnvName = envConfigPrefix + "FRESHNESS_WINDOW"
	defaultFreshnessWindow       = 5 * time.Minute

	MaxClockSkewConfigEnvName = envConfigPrefix + "MAX_CLOCK_SKEW"
	defaultMaxClockSkew       = 30 * time.Second

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"
)

type conf struct {
	freshnessWindow config.Duration
	maxClockSkew    config.Duration
	commitment      config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			freshnessWindow: env.NewDurationConfig(FreshnessWindowConfigEnvName, defaultFreshnessWindow),
			maxClockSkew:    env.NewDurationConfig(MaxClockSkewConfigEnvName, defaultMaxClockSkew),
			commitment:      env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
		}
	}
}

type testOverrides struct {
	freshnessWindow time.Duration
	maxClockSkew    time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			freshnessWindow: wrapper.NewDurationConfig(memory.NewConfig(overrides.freshnessWindow), defaultFreshnessWindow),
			maxClockSkew:    wrapper.NewDurationConfig(memory.NewConfig(overrides.maxClockSkew), defaultMaxClockSkew),
			commitment:      wrapper.NewStringConfig(memory.NewConfig(defaultCommitment), defaultCommitment),
		}
	}
}
