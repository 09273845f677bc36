package config

import (
	"fmt"
)

type RunningEnvironment string

const Development RunningEnvironment = "development"
const Production RunningEnvironment = "production"

type Config struct {
	RunningEnvironment RunningEnvironment
	DebugMode          bool
	Server             ServerConfig
	API                APIConfig
	Refresh            RefreshConfig
	Stream             StreamConfig
	Storage            StorageConfig
	Monitoring         MonitoringConfig
}

func (c *Config) Validate() error {
	if c.RunningEnvironment != Development && c.RunningEnvironment != Production {
		return fmt.Errorf("unknown running environment %q (must be one of development, production)", c.RunningEnvironment)
	}
	err := c.API.Validate()
	if err != nil {
		return err
	}
	err = c.Refresh.Validate()
	if err != nil {
		return err
	}
	err = c.Stream.Validate()
	if err != nil {
		return err
	}
	err = c.Storage.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	return nil
}
