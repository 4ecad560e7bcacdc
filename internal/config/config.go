// Package config loads the service configuration from mapper.yaml and
// MAPPER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/mapper/internal/mapper/fetch"
	"github.com/conduit-lang/mapper/internal/web/cache"
)

// Config is the service configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Upstream  UpstreamConfig   `mapstructure:"upstream"`
	Schemas   []string         `mapstructure:"schemas"`
	Endpoints []EndpointConfig `mapstructure:"endpoints"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig selects the log level and encoder.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// CacheConfig selects the upstream response cache.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig locates the Redis server.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Options converts the configuration for cache.Open.
func (c CacheConfig) Options() cache.Options {
	return cache.Options{
		Backend: c.Backend,
		Config:  cache.Config{TTL: c.TTL, Prefix: c.Prefix},
		Redis:   cache.RedisOptions{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB},
	}
}

// UpstreamConfig configures the fetch client.
type UpstreamConfig struct {
	Timeout time.Duration     `mapstructure:"timeout"`
	Headers map[string]string `mapstructure:"headers"`
}

// EndpointConfig declares one aggregation endpoint.
type EndpointConfig struct {
	Name   string `mapstructure:"name"`
	Path   string `mapstructure:"path"`
	Method string `mapstructure:"method"`
	// Fetch is a URI, a request descriptor or a map of names to either.
	// URIs may reference route parameters as {param}.
	Fetch    any            `mapstructure:"fetch"`
	Select   string         `mapstructure:"select"`
	Where    map[string]any `mapstructure:"where"`
	Take     int            `mapstructure:"take"`
	TakeLast bool           `mapstructure:"take_last"`
	Schema   string         `mapstructure:"schema"`
	One      bool           `mapstructure:"one"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 20*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("cache.backend", cache.BackendNone)
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("cache.prefix", "mapper:")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("upstream.timeout", 10*time.Second)
}

// Load reads the configuration. With an empty path mapper.yaml is looked
// up in the working directory and in ./config; a missing file leaves the
// defaults in place. An explicit path must exist. Relative schema paths
// are resolved against the directory of the config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mapper")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" {
		cfg.Schemas = relativeTo(filepath.Dir(used), cfg.Schemas)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// relativeTo resolves relative schema paths against the config directory.
func relativeTo(dir string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(dir, p)
		}
	}
	return out
}

// Validate checks the cache backend and every endpoint.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "", cache.BackendNone, cache.BackendMemory, cache.BackendRedis:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q (use none, memory or redis)", c.Cache.Backend)
	}

	for i, e := range c.Endpoints {
		if e.Path == "" {
			return fmt.Errorf("endpoints[%d]: path is required", i)
		}
		if !strings.HasPrefix(e.Path, "/") {
			return fmt.Errorf("endpoints[%d]: path %q must start with /", i, e.Path)
		}
		if e.Fetch == nil {
			return fmt.Errorf("endpoints[%d] %s: fetch is required", i, e.Path)
		}
		if _, err := fetch.Flatten(e.Fetch); err != nil {
			return fmt.Errorf("endpoints[%d] %s: %w", i, e.Path, err)
		}
		if e.Take < 0 {
			return fmt.Errorf("endpoints[%d] %s: take must not be negative", i, e.Path)
		}
	}
	return nil
}
