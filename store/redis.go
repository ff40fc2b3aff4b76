package store

import (
	"context"
	"fmt"
	"time"

	"github.com/multitest/report-harness/framework"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each run in three keys: a list of partial IDs in submission order, and two
// hashes from ID to report data and to source.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	logger framework.Logger
}

func NewRedisStore(client redis.UniversalClient, prefix string, logger framework.Logger) *RedisStore {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &RedisStore{redis: client, prefix: prefix, logger: logger}
}

// NewRedisStoreFromURL connects to the Redis server at a redis:// URL and checks that it is
// reachable.
func NewRedisStoreFromURL(url, prefix string, logger framework.Logger) (*RedisStore, error) {
	if url == "" {
		url = "redis://localhost:6379"
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("error connecting to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStore(client, prefix, logger), nil
}

func (r *RedisStore) key(runID, suffix string) string {
	return r.prefix + ":" + runID + ":" + suffix
}

func (r *RedisStore) Put(ctx context.Context, runID string, p StoredPartial) error {
	if runID == "" {
		return errEmptyRunID
	}
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key(runID, "data"), p.ID, p.Data)
		pipe.HSet(ctx, r.key(runID, "source"), p.ID, p.Source)
		pipe.RPush(ctx, r.key(runID, "order"), p.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store partial %q: %w", p.ID, err)
	}
	r.logger.Printf("Stored partial %s in redis (%d bytes)", p.ID, len(p.Data))
	return nil
}

func (r *RedisStore) List(ctx context.Context, runID string) ([]StoredPartial, error) {
	ids, err := r.redis.LRange(ctx, r.key(runID, "order"), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	data, err := r.redis.HGetAll(ctx, r.key(runID, "data")).Result()
	if err != nil {
		return nil, err
	}
	sources, err := r.redis.HGetAll(ctx, r.key(runID, "source")).Result()
	if err != nil {
		return nil, err
	}
	ret := make([]StoredPartial, 0, len(ids))
	for _, id := range ids {
		d, ok := data[id]
		if !ok {
			return nil, fmt.Errorf("partial %q is listed but has no data", id)
		}
		ret = append(ret, StoredPartial{ID: id, Source: sources[id], Data: []byte(d)})
	}
	return ret, nil
}

func (r *RedisStore) Reset(ctx context.Context, runID string) error {
	return r.redis.Del(ctx, r.key(runID, "order"), r.key(runID, "data"), r.key(runID, "source")).Err()
}

func (r *RedisStore) Close() error {
	return r.redis.Close()
}
