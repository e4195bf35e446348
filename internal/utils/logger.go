// internal/utils/logger.go

package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging throughout the application.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogConfig configures the zap backed logger.
type LogConfig struct {
	Level       string   `yaml:"level" json:"level"`
	Encoding    string   `yaml:"encoding" json:"encoding"`
	Development bool     `yaml:"development" json:"development"`
	OutputPaths []string `yaml:"output_paths,omitempty" json:"output_paths,omitempty"`
}

var logLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// ZapLogger adapts a zap sugared logger to the Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level *zap.AtomicLevel
}

// NewLogger creates a logger from configuration.
func NewLogger(cfg LogConfig) (Logger, error) {
	level, ok := logLevels[strings.ToLower(cfg.Level)]
	if !ok {
		if cfg.Level != "" {
			return nil, fmt.Errorf("unknown log level %q", cfg.Level)
		}
		level = zapcore.InfoLevel
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "console"
	}
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	atomic := zap.NewAtomicLevelAt(level)
	zcfg := zap.Config{
		Level:            atomic,
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	base, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &ZapLogger{sugar: base.Sugar(), level: &atomic}, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &ZapLogger{sugar: zap.NewNop().Sugar()}
}

// FromZap wraps an existing zap logger.
func FromZap(l *zap.Logger) Logger {
	return &ZapLogger{sugar: l.Sugar()}
}

func (l *ZapLogger) Debug(msg string) { l.sugar.Debug(msg) }

func (l *ZapLogger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

func (l *ZapLogger) Info(msg string) { l.sugar.Info(msg) }

func (l *ZapLogger) Infof(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

func (l *ZapLogger) Warn(msg string) { l.sugar.Warn(msg) }

func (l *ZapLogger) Warnf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

func (l *ZapLogger) Error(msg string) { l.sugar.Error(msg) }

func (l *ZapLogger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

func (l *ZapLogger) WithField(key string, value interface{}) Logger {
	return &ZapLogger{sugar: l.sugar.With(key, value), level: l.level}
}

func (l *ZapLogger) WithFields(fields map[string]interface{}) Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &ZapLogger{sugar: l.sugar.With(args...), level: l.level}
}

// SetLevel changes the level of this logger and every logger derived from
// it. Loggers not built by NewLogger ignore it.
func (l *ZapLogger) SetLevel(level string) error {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	if l.level != nil {
		l.level.SetLevel(lvl)
	}
	return nil
}

// Level returns the current level name, or "" for loggers not built by
// NewLogger
func (l *ZapLogger) Level() string {
	if l.level == nil {
		return ""
	}
	return l.level.Level().String()
}

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
