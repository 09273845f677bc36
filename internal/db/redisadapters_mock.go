package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Implements the LimitedRedis client struct
// Only suitable for testing and local development
// Expirations and contexts are completely ignored
type MockRedisClient struct {
	store map[string]string
	lock  sync.RWMutex
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{store: map[string]string{}}
}

func (m *MockRedisClient) Get(_ context.Context, key string) *redis.StringCmd {
	m.lock.RLock()
	defer m.lock.RUnlock()
	val, found := m.store[key]
	if !found {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (m *MockRedisClient) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	switch v := value.(type) {
	case string:
		m.store[key] = v
	case []byte:
		m.store[key] = string(v)
	default:
		return redis.NewStatusResult("", fmt.Errorf("unsupported value type %T", value))
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *MockRedisClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	var deleted int64
	for _, k := range keys {
		if _, found := m.store[k]; found {
			delete(m.store, k)
			deleted++
		}
	}
	return redis.NewIntResult(deleted, nil)
}
