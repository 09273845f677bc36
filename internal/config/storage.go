package config

import (
	"fmt"
)

const StorageTypeMemory string = "memory"
const StorageTypeDisk string = "disk"
const StorageTypeRedis string = "redis"
const StorageTypeRedisMock string = "redis-mock"

type DiskConfig struct {
	BasePath string
}

type EncryptionConfig struct {
	Enabled   bool
	SecretKey RedactedString
}

// StorageConfig selects where the client state (tokens, user info, flags) is persisted
type StorageConfig struct {
	Type       string
	Disk       DiskConfig
	Redis      RedisConfig
	Encryption EncryptionConfig
}

func (c StorageConfig) Validate(e RunningEnvironment) error {
	switch c.Type {
	case StorageTypeMemory:
	case StorageTypeDisk:
		if c.Disk.BasePath == "" {
			return fmt.Errorf("the disk storage needs a base path")
		}
	case StorageTypeRedis:
		err := c.Redis.Validate()
		if err != nil {
			return err
		}
	case StorageTypeRedisMock:
		if e != Development {
			return fmt.Errorf("storage type cannot be \"redis-mock\" in production")
		}
	default:
		return fmt.Errorf("unknown storage type %q (must be one of memory, disk, redis, redis-mock)", c.Type)
	}
	if c.Encryption.Enabled && len(c.Encryption.SecretKey) != 32 {
		return fmt.Errorf(
			"encryption key has to be 32 bytes long, the provided one is %d long",
			len(c.Encryption.SecretKey),
		)
	}
	return nil
}
