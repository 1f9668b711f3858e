package repository

import "time"

// Option configures a ShardedStore.
type Option func(*storeConfig)

type storeConfig struct {
	shards                int
	metricsUpdateInterval time.Duration
}

// WithShardCount sets the number of shards. Values below one are ignored.
func WithShardCount(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.shards = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(c *storeConfig) {
		if interval > 0 {
			c.metricsUpdateInterval = interval
		}
	}
}
