package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisAdapter persists the client state as plain redis strings
type RedisAdapter struct {
	rdb       LimitedRedisClient
	encryptor models.Encryptor
	keyPrefix string
}

func (r *RedisAdapter) key(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + ":" + key
}

func (r *RedisAdapter) GetValue(ctx context.Context, key string) (string, error) {
	val, err := r.rdb.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apierrors.ErrMissingDBResource
		}
		return "", err
	}
	if r.encryptor == nil {
		return val, nil
	}
	return r.encryptor.Decrypt(val)
}

func (r *RedisAdapter) SetValue(ctx context.Context, key string, value string) error {
	if r.encryptor != nil {
		encrypted, err := r.encryptor.Encrypt(value)
		if err != nil {
			return err
		}
		value = encrypted
	}
	return r.rdb.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisAdapter) RemoveValue(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.key(key)
	}
	return r.rdb.Del(ctx, prefixed...).Err()
}

type RedisAdapterOption func(*RedisAdapter) error

func WithRedisConfig(redisConfig config.RedisConfig) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		if len(redisConfig.Addresses) == 0 {
			return fmt.Errorf("at least one redis address is required")
		}
		if redisConfig.IsSentinel {
			rdb := redis.NewFailoverClient(&redis.FailoverOptions{
				MasterName:       redisConfig.MasterName,
				SentinelAddrs:    redisConfig.Addresses,
				Password:         string(redisConfig.Password),
				DB:               redisConfig.DBIndex,
				SentinelPassword: string(redisConfig.Password),
			})
			r.rdb = rdb
			return nil
		}
		rdb := redis.NewClient(&redis.Options{
			Password: string(redisConfig.Password),
			DB:       redisConfig.DBIndex,
			Addr:     redisConfig.Addresses[0],
		})
		r.rdb = rdb
		return nil
	}
}

// WithRedisClient uses an already initialized client
func WithRedisClient(client LimitedRedisClient) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		r.rdb = client
		return nil
	}
}

func WithMockRedisClient() RedisAdapterOption {
	return func(r *RedisAdapter) error {
		r.rdb = NewMockRedisClient()
		return nil
	}
}

func WithKeyPrefix(prefix string) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		r.keyPrefix = prefix
		return nil
	}
}

func WithEncryption(secretKey string) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		encryptor, err := NewGCMEncryptor(secretKey)
		if err != nil {
			return err
		}
		r.encryptor = encryptor
		return nil
	}
}

func NewRedisAdapter(options ...RedisAdapterOption) (*RedisAdapter, error) {
	db := RedisAdapter{}
	for _, opt := range options {
		err := opt(&db)
		if err != nil {
			return &RedisAdapter{}, err
		}
	}
	if db.rdb == nil {
		return &RedisAdapter{}, fmt.Errorf("redis client is not initialized")
	}
	return &db, nil
}
