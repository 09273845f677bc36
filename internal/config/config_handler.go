package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const envPrefix string = "CONSULT"

type ConfigHandler struct {
	mainViper   *viper.Viper
	secretViper *viper.Viper
	lock        *sync.Mutex
}

func (c *ConfigHandler) HandleChanges(callback func(Config, error)) {
	c.mainViper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("main config file changed", "path", e.Name)
		callback(c.Config())
	})
	c.secretViper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("secret config file changed", "path", e.Name)
		callback(c.Config())
	})
}

// Creates a configuration handler that reads the configuration files, merges them and can watch
// them for changes. Please note that the merges replace whole arrays - they do not merge arrays.
// The secret file will always overwrite anything in the non-secret / regular file. And any environment
// variables will always rewrite stuff in the secret config, so the order of preference from most
// preferred to least is environment variables, secret config, non-secret config, defaults.
// The extra config paths are searched before the default locations.
func NewConfigHandler(extraConfigPaths ...string) *ConfigHandler {
	main := viper.New()
	main.SetConfigType("yaml")
	main.SetConfigName("config")
	setDefaults(main)
	secret := viper.New()
	secret.SetConfigType("yaml")
	secret.SetConfigName("secret_config")
	// Viper will look through the list of paths and use the first one where there is a file
	// so the path specified in the env variable will always take precedence over the rest
	configPaths := []string{}
	configPathEnv := os.Getenv("CONFIG_LOCATION")
	if configPathEnv != "" {
		configPaths = append(configPaths, configPathEnv)
	}
	configPaths = append(configPaths, extraConfigPaths...)
	configPaths = append(configPaths, "/etc/consult", ".")
	for _, path := range configPaths {
		main.AddConfigPath(path)
		secret.AddConfigPath(path)
	}
	return &ConfigHandler{secretViper: secret, mainViper: main, lock: &sync.Mutex{}}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runningEnvironment", string(Production))
	v.SetDefault("debugMode", false)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8765)
	v.SetDefault("server.rateLimits.enabled", false)
	v.SetDefault("server.rateLimits.rate", 20)
	v.SetDefault("server.rateLimits.burst", 40)
	v.SetDefault("server.allowOrigin", []string{})
	v.SetDefault("api.baseURL", "http://localhost:8080/api")
	v.SetDefault("api.timeoutSeconds", 60)
	v.SetDefault("api.loginRoute", "/login-before")
	v.SetDefault("refresh.method", "POST")
	v.SetDefault("refresh.path", "/user/refresh-token")
	v.SetDefault("refresh.tokenPlacement", TokenInQuery)
	v.SetDefault("refresh.paramName", "refreshToken")
	v.SetDefault("refresh.sendAccessToken", true)
	v.SetDefault("refresh.proactive", true)
	v.SetDefault("refresh.expiryMarginSeconds", 180)
	v.SetDefault("refresh.checkIntervalSeconds", 60)
	v.SetDefault("stream.path", "/chat/consult/stream")
	v.SetDefault("stream.timeoutSeconds", 120)
	v.SetDefault("storage.type", StorageTypeDisk)
	v.SetDefault("storage.disk.basePath", defaultStatePath())
	v.SetDefault("storage.redis.addresses", []string{})
	v.SetDefault("storage.redis.isSentinel", false)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.masterName", "")
	v.SetDefault("storage.redis.dbIndex", 0)
	v.SetDefault("storage.redis.keyPrefix", "consult")
	v.SetDefault("storage.encryption.enabled", false)
	v.SetDefault("storage.encryption.secretKey", "")
	v.SetDefault("monitoring.sentry.enabled", false)
	v.SetDefault("monitoring.sentry.dsn", "")
	v.SetDefault("monitoring.sentry.environment", "")
	v.SetDefault("monitoring.sentry.sampleRate", 0.0)
	v.SetDefault("monitoring.prometheus.enabled", false)
	v.SetDefault("monitoring.prometheus.port", 8766)
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".consult-state"
	}
	return filepath.Join(dir, "consult", "state")
}

func (c *ConfigHandler) merge() error {
	err := c.secretViper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	// AllSettings also contains the values of the bound environment variables
	cm := c.secretViper.AllSettings()
	return c.mainViper.MergeConfigMap(cm)
}

func (c *ConfigHandler) getConfig() (Config, error) {
	var output Config
	err := c.mainViper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		slog.Info("could not find any config files - only the defaults and environment variables will be used")
	}
	// the env variables will overwrite stuff in the secret config if set
	for _, key := range c.mainViper.AllKeys() {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		err := c.secretViper.BindEnv(key, envKey)
		if err != nil {
			return Config{}, fmt.Errorf("unable to bind env variable %s: %w", envKey, err)
		}
	}
	// here the secret config (with any env variables merged) will overwrite anything from the non-secret configuration
	err = c.merge()
	if err != nil {
		return Config{}, err
	}
	err = c.mainViper.Unmarshal(
		&output,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				parseStringAsURL(),
				mapstructure.StringToSliceHookFunc(","),
			),
		),
	)
	if err != nil {
		return Config{}, err
	}
	err = output.Validate()
	if err != nil {
		return Config{}, err
	}
	return output, nil
}

func (c *ConfigHandler) Config() (Config, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.getConfig()
}

func (c *ConfigHandler) Watch() {
	c.mainViper.WatchConfig()
	c.secretViper.WatchConfig()
}

func parseStringAsURL() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (interface{}, error) {
		// Check that the data is string
		if f.Kind() != reflect.String {
			return data, nil
		}

		// Check that the target type is our custom type
		if t != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		// Return the parsed value
		dataStr, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("cannot cast URL value to string")
		}
		if dataStr == "" {
			return nil, fmt.Errorf("empty values are not allowed for URLs")
		}
		url, err := url.Parse(dataStr)
		if err != nil {
			return nil, err
		}
		return url, nil
	}
}
