// internal/config/types.go

// Package config loads the YAML configuration of the engine: browser
// connection, remote call timing, worker limits, commit policy, storage
// backend, export sink, control API, logging and metrics.
package config

import (
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/browser"
	"github.com/primedigitaltech/azon-seeker/internal/monitoring"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/internal/walker"
)

// Config is the root of the configuration file
type Config struct {
	Browser  browser.BrowserConfig `yaml:"browser" json:"browser"`
	Executor ExecutorConfig        `yaml:"executor" json:"executor"`
	Polling  walker.Poll           `yaml:"polling" json:"polling"`
	Workers  WorkersConfig         `yaml:"workers" json:"workers"`
	Commit   CommitConfig          `yaml:"commit" json:"commit"`
	Storage  StorageConfig         `yaml:"storage" json:"storage"`
	Export   ExportConfig          `yaml:"export" json:"export"`
	API      APIConfig             `yaml:"api" json:"api"`
	Logging  utils.LogConfig       `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig         `yaml:"metrics" json:"metrics"`
}

// ExecutorConfig bounds and paces remote calls
type ExecutorConfig struct {
	// Timeout bounds one injected call
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// BridgeTimeout bounds one bridge request, such as an element capture
	BridgeTimeout time.Duration `yaml:"bridge_timeout" json:"bridge_timeout"`
	// RateLimit is the number of remote calls per second; 0 disables pacing
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `yaml:"burst" json:"burst"`
}

// WorkersConfig limits the site workers
type WorkersConfig struct {
	MaxPages int           `yaml:"max_pages" json:"max_pages"`
	Settle   time.Duration `yaml:"settle" json:"settle"`
}

// CommitConfig sets the flush policy of the commit layer
type CommitConfig struct {
	Interval    time.Duration `yaml:"interval" json:"interval"`
	StopOnError bool          `yaml:"stop_on_error" json:"stop_on_error"`
}

// StorageConfig selects the record store
type StorageConfig struct {
	Backend string      `yaml:"backend" json:"backend"`
	DSN     string      `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Table   string      `yaml:"table,omitempty" json:"table,omitempty"`
	Redis   RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisConfig configures the redis backend
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty" json:"addr,omitempty"`
	Password string `yaml:"password,omitempty" json:"-"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Channel  string `yaml:"channel,omitempty" json:"channel,omitempty"`
}

// Export sink types
const (
	ExportNone  = "none"
	ExportHTTP  = "http"
	ExportExcel = "excel"
)

// ExportConfig selects where committed records are sent
type ExportConfig struct {
	Type      string        `yaml:"type" json:"type"`
	BaseURL   string        `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	ExcelPath string        `yaml:"excel_path,omitempty" json:"excel_path,omitempty"`
}

// APIConfig configures the control API server
type APIConfig struct {
	Listen          string        `yaml:"listen" json:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// Token enables bearer authentication of /api/v1 when set
	Token     string  `yaml:"token,omitempty" json:"-"`
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `yaml:"burst" json:"burst"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled                  bool   `yaml:"enabled" json:"enabled"`
	Path                     string `yaml:"path" json:"path"`
	monitoring.MetricsConfig `yaml:",inline"`
}
