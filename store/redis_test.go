package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/multitest/report-harness/framework"

	"github.com/alicebob/miniredis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	redisServer, err := miniredis.Run()
	require.NoError(t, err)
	defer redisServer.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("127.0.0.1:%s", redisServer.Port()),
	})
	logger := &framework.CapturingLogger{}
	testPartialStore(t, NewRedisStore(redisClient, DefaultPrefix, logger))

	assert.Contains(t, logger.Output().ToString(""), "Stored partial id-0 in redis")
	assert.True(t, redisServer.Exists("report-harness:run2:order"))
}

func TestRedisStoreDetectsMissingData(t *testing.T) {
	redisServer, err := miniredis.Run()
	require.NoError(t, err)
	defer redisServer.Close()

	_, err = redisServer.Push("p:r:order", "ghost")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	s := NewRedisStore(client, "p", nil)
	_, err = s.List(context.Background(), "r")
	assert.Error(t, err)
}

func TestRedisStoreFromURL(t *testing.T) {
	redisServer, err := miniredis.Run()
	require.NoError(t, err)
	defer redisServer.Close()

	s, err := Open(KindRedis, Config{RedisURL: "redis://" + redisServer.Addr()}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "r", StoredPartial{ID: "1", Data: []byte("{}")}))
	assert.True(t, redisServer.Exists("report-harness:r:data"))
	assert.NoError(t, s.Close())
}
