// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/primedigitaltech/azon-seeker/internal/browser"
	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/storage"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/internal/walker"
	"github.com/primedigitaltech/azon-seeker/internal/worker"
)

// Default returns a configuration with every default applied
func Default() *Config {
	var c Config
	c.Browser = *browser.DefaultBrowserConfig()
	applyDefaults(&c)
	return &c
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. ${VAR} references are
// expanded from the environment before parsing.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, utils.NewError(utils.ErrCodeInvalidConfig, "configuration data cannot be empty").Build()
	}

	expanded := expandEnvironmentVariables(string(data))

	config := Config{Browser: *browser.DefaultBrowserConfig()}
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "failed to parse YAML configuration")
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "invalid configuration")
	}
	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}
	return LoadFromBytes(data)
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	data, err := marshal(config)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

// SaveToWriter saves configuration to an io.Writer
func SaveToWriter(config *Config, writer io.Writer) error {
	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}
	data, err := marshal(config)
	if err != nil {
		return err
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return nil
}

func marshal(config *Config) ([]byte, error) {
	if config == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "invalid configuration")
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}
	return data, nil
}

func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyDefaults fills every unset value
func applyDefaults(c *Config) {
	if c.Browser.StartupTimeout == 0 {
		c.Browser.StartupTimeout = 30 * time.Second
	}

	if c.Executor.Timeout == 0 {
		c.Executor.Timeout = remote.DefaultTimeout
	}
	if c.Executor.BridgeTimeout == 0 {
		c.Executor.BridgeTimeout = c.Executor.Timeout
	}
	if c.Executor.RateLimit > 0 && c.Executor.Burst == 0 {
		c.Executor.Burst = 1
	}

	poll := walker.DefaultPoll()
	if c.Polling.Interval == 0 {
		c.Polling.Interval = poll.Interval
		if c.Polling.Jitter == 0 {
			c.Polling.Jitter = poll.Jitter
		}
	}
	if c.Polling.MaxRounds == 0 {
		c.Polling.MaxRounds = poll.MaxRounds
	}
	if c.Polling.MaxDuration == 0 {
		c.Polling.MaxDuration = poll.MaxDuration
	}

	if c.Workers.MaxPages == 0 {
		c.Workers.MaxPages = worker.DefaultMaxPages
	}
	if c.Workers.Settle == 0 {
		c.Workers.Settle = walker.DefaultOptions().Settle
	}

	if c.Commit.Interval == 0 {
		c.Commit.Interval = 10 * time.Second
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = storage.BackendSQLite
	}
	if c.Storage.Backend == storage.BackendSQLite && c.Storage.DSN == "" {
		c.Storage.DSN = filepath.Join("data", "azon-seeker.db")
	}
	if c.Storage.Backend == storage.BackendRedis && c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = "localhost:6379"
	}

	if c.Export.Type == "" {
		c.Export.Type = ExportExcel
	}
	if c.Export.Type == ExportExcel && c.Export.ExcelPath == "" {
		c.Export.ExcelPath = filepath.Join("data", "azon-seeker.xlsx")
	}
	if c.Export.Timeout == 0 {
		c.Export.Timeout = 10 * time.Second
	}

	if c.API.Listen == "" {
		c.API.Listen = "127.0.0.1:8080"
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 15 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 30 * time.Second
	}
	if c.API.ShutdownTimeout == 0 {
		c.API.ShutdownTimeout = 30 * time.Second
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = 10
	}
	if c.API.Burst == 0 {
		c.API.Burst = 20
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "console"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// StorageOptions converts the storage section for storage.Open
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend: c.Storage.Backend,
		DSN:     c.Storage.DSN,
		Table:   c.Storage.Table,
		Redis: storage.RedisOptions{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
			Prefix:   c.Storage.Redis.Prefix,
			Channel:  c.Storage.Redis.Channel,
		},
	}
}

// WalkerOptions converts the executor, polling and worker sections
func (c *Config) WalkerOptions() walker.Options {
	return walker.Options{
		Timeout: c.Executor.Timeout,
		Poll:    c.Polling,
		Settle:  c.Workers.Settle,
	}
}
