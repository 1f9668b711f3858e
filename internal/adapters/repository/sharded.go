package repository

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/okian/fairplay/pkg/metrics"
)

const (
	defaultShards                = 16
	defaultMetricsUpdateInterval = 5 * time.Second
)

type shard[V any] struct {
	mu   sync.RWMutex
	byID map[string]V
}

// ShardedStore is an in-memory Store partitioned by an FNV-1a hash of the id.
type ShardedStore[V any] struct {
	shards   []*shard[V]
	interval time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewShardedStore constructs a store and starts its metrics updater, which
// runs until ctx is done or Close is called.
func NewShardedStore[V any](ctx context.Context, opts ...Option) *ShardedStore[V] {
	cfg := storeConfig{shards: defaultShards, metricsUpdateInterval: defaultMetricsUpdateInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &ShardedStore[V]{
		shards:   make([]*shard[V], cfg.shards),
		interval: cfg.metricsUpdateInterval,
		stopChan: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard[V]{byID: make(map[string]V)}
	}

	metrics.UpdateRepositoryShardCount(len(s.shards))
	s.startMetricsUpdater(ctx)
	return s
}

func (s *ShardedStore[V]) shardFor(id string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *ShardedStore[V]) Create(_ context.Context, id string, v V) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.byID[id]; ok {
		metrics.RecordErrorByComponent("repository", "exists")
		return ErrExists
	}
	sh.byID[id] = v
	return nil
}

func (s *ShardedStore[V]) Get(_ context.Context, id string) (V, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return v, ErrNotFound
	}
	return v, nil
}

func (s *ShardedStore[V]) Delete(_ context.Context, id string) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.byID[id]; !ok {
		return ErrNotFound
	}
	delete(sh.byID, id)
	return nil
}

// Range visits shards one at a time; fn must not call back into the store
// for the same shard's write lock.
func (s *ShardedStore[V]) Range(_ context.Context, fn func(id string, v V) bool) {
	for _, sh := range s.shards {
		sh.mu.RLock()
		for id, v := range sh.byID {
			if !fn(id, v) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

func (s *ShardedStore[V]) Count(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.byID)
		sh.mu.RUnlock()
	}
	return n
}

// Close stops the metrics updater.
func (s *ShardedStore[V]) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *ShardedStore[V]) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *ShardedStore[V]) updateMetrics() {
	total := 0
	for i, sh := range s.shards {
		sh.mu.RLock()
		n := len(sh.byID)
		sh.mu.RUnlock()
		total += n
		metrics.UpdateRepositoryRecordsPerShard(strconv.Itoa(i), n)
	}
	metrics.UpdateProfiles(total)
}
