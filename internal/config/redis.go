package config

import "fmt"

type RedisConfig struct {
	Addresses  []string
	IsSentinel bool
	Password   RedactedString
	MasterName string
	DBIndex    int
	KeyPrefix  string
}

func (c RedisConfig) Validate() error {
	if len(c.Addresses) == 0 {
		return fmt.Errorf("at least one redis address is required")
	}
	if c.IsSentinel && c.MasterName == "" {
		return fmt.Errorf("a master name is required when using redis sentinel")
	}
	return nil
}
