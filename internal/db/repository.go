package db

import (
	"fmt"

	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/models"
)

// NewStateRepository creates the persistent state repository selected in the storage configuration
func NewStateRepository(c config.StorageConfig) (models.StateRepository, error) {
	secretKey := ""
	if c.Encryption.Enabled {
		secretKey = string(c.Encryption.SecretKey)
	}
	switch c.Type {
	case config.StorageTypeMemory:
		return NewMemoryAdapter(), nil
	case config.StorageTypeDisk:
		options := []DiskAdapterOption{}
		if secretKey != "" {
			options = append(options, WithDiskEncryption(secretKey))
		}
		return NewDiskAdapter(c.Disk.BasePath, options...)
	case config.StorageTypeRedis, config.StorageTypeRedisMock:
		options := []RedisAdapterOption{WithKeyPrefix(c.Redis.KeyPrefix)}
		if c.Type == config.StorageTypeRedis {
			options = append(options, WithRedisConfig(c.Redis))
		} else {
			options = append(options, WithMockRedisClient())
		}
		if secretKey != "" {
			options = append(options, WithEncryption(secretKey))
		}
		return NewRedisAdapter(options...)
	default:
		return nil, fmt.Errorf("unrecognized storage type %v", c.Type)
	}
}
