// internal/config/validation.go
package config

import (
	"fmt"
	"strings"

	"github.com/primedigitaltech/azon-seeker/internal/storage"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %q)", ve.Field, ve.Message, ve.Value)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Errors []ValidationError `json:"errors"`
}

func (r *ValidationResult) add(field, value, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	result := &ValidationResult{}

	c.validateTiming(result)
	c.validateStorage(result)
	c.validateExport(result)
	c.validateLogging(result)

	if c.API.Listen == "" {
		result.add("api.listen", "", "listen address is required")
	}
	if c.API.RateLimit < 0 || c.API.Burst < 0 {
		result.add("api.rate_limit", fmt.Sprint(c.API.RateLimit), "rate limit cannot be negative")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		result.add("metrics.path", c.Metrics.Path, "path must start with /")
	}

	if len(result.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%d validation errors: %s", len(msgs), strings.Join(msgs, "; "))
}

func (c *Config) validateTiming(result *ValidationResult) {
	if c.Executor.Timeout < 0 {
		result.add("executor.timeout", c.Executor.Timeout.String(), "timeout cannot be negative")
	}
	if c.Executor.RateLimit < 0 {
		result.add("executor.rate_limit", fmt.Sprint(c.Executor.RateLimit), "rate limit cannot be negative")
	}
	if c.Polling.Interval < 0 || c.Polling.Jitter < 0 {
		result.add("polling.interval", c.Polling.Interval.String(), "polling intervals cannot be negative")
	}
	if c.Polling.MaxRounds < 0 {
		result.add("polling.max_rounds", fmt.Sprint(c.Polling.MaxRounds), "max rounds cannot be negative")
	}
	if c.Workers.MaxPages < 0 {
		result.add("workers.max_pages", fmt.Sprint(c.Workers.MaxPages), "max pages cannot be negative")
	}
	if c.Commit.Interval < 0 {
		result.add("commit.interval", c.Commit.Interval.String(), "interval cannot be negative")
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	switch c.Storage.Backend {
	case storage.BackendMemory, storage.BackendRedis:
	case storage.BackendSQLite, storage.BackendPostgres, storage.BackendMySQL:
		if c.Storage.DSN == "" {
			result.add("storage.dsn", "", "dsn is required for "+c.Storage.Backend)
		}
	default:
		result.add("storage.backend", c.Storage.Backend, "unsupported backend")
	}
}

func (c *Config) validateExport(result *ValidationResult) {
	switch c.Export.Type {
	case ExportNone:
	case ExportHTTP:
		if !utils.IsValidURL(c.Export.BaseURL) {
			result.add("export.base_url", c.Export.BaseURL, "a valid http(s) URL is required")
		}
	case ExportExcel:
		if !strings.HasSuffix(strings.ToLower(c.Export.ExcelPath), ".xlsx") {
			result.add("export.excel_path", c.Export.ExcelPath, "path must end in .xlsx")
		}
	default:
		result.add("export.type", c.Export.Type, "unsupported export type")
	}
}

func (c *Config) validateLogging(result *ValidationResult) {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		result.add("logging.level", c.Logging.Level, "unknown log level")
	}
	switch c.Logging.Encoding {
	case "console", "json":
	default:
		result.add("logging.encoding", c.Logging.Encoding, "encoding must be console or json")
	}
}
