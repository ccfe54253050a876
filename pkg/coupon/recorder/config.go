package recorder

import (
	"time"

	"github.com/code-payments/coupon-server/pkg/config"
	"github.com/code-payments/coupon-server/pkg/config/env"
	"github.com/code-payments/coupon-server/pkg/config/memory"
	"github.com/code-payments/coupon-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "COUPON_RECORDER_"

	WriteTimeoutConfigEnvName = envConfigPrefix + "WRITE_TIMEOUT"
	defaultWriteTimeout       = 5 * time.Second

	WorkerCountConfigEnvName = envConfigPrefix + "WORKER_COUNT"
	defaultWorkerCount       = 4

	QueueSizeConfigEnvName = envConfigPrefix + "QUEUE_SIZE"
	defaultQueueSize       = 1024
)

type conf struct {
	writeTimeout config.Duration
	workerCount  config.Uint64
	queueSize    config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			writeTimeout: env.NewDurationConfig(WriteTimeoutConfigEnvName, defaultWriteTimeout),
			workerCount:  env.NewUint64Config(WorkerCountConfigEnvName, defaultWorkerCount),
			queueSize:    env.NewUint64Config(QueueSizeConfigEnvName, defaultQueueSize),
		}
	}
}

type testOverrides struct {
	writeTimeout time.Duration
	workerCount  uint64
	queueSize    uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			writeTimeout: wrapper.NewDurationConfig(memory.NewConfig(overrides.writeTimeout), defaultWriteTimeout),
			workerCount:  wrapper.NewUint64Config(memory.NewConfig(overrides.workerCount), defaultWorkerCount),
			queueSize:    wrapper.NewUint64Config(memory.NewConfig(overrides.queueSize), defaultQueueSize),
		}
	}
}
