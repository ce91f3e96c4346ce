package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines the logger configuration.
type Config struct {
	Level  string     `json:"level,omitempty"`  // debug, info, warn, error
	Format string     `json:"format,omitempty"` // json, console
	Output string     `json:"output,omitempty"` // console, file, both, none
	File   FileConfig `json:"file"`
}

// FileConfig defines rotating file output.
type FileConfig struct {
	Filename   string `json:"filename,omitempty"`
	MaxSize    int    `json:"max_size,omitempty"` // megabytes
	MaxAge     int    `json:"max_age,omitempty"`  // days
	MaxBackups int    `json:"max_backups,omitempty"`
	Compress   bool   `json:"compress,omitempty"`
}

// DefaultConfig returns the default logger configuration.
// Console output goes to stderr: stdout carries CLI JSON and the MCP stdio transport.
func DefaultConfig() *Config {
	return &Config{
		Level:  "warn",
		Format: "console",
		Output: "console",
		File: FileConfig{
			Filename:   "logs/scribe.log",
			MaxSize:    10,
			MaxAge:     30,
			MaxBackups: 5,
		},
	}
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"json", "console"}
	validOutputs = []string{"console", "file", "both", "none"}
)

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, strings.ToLower(c.Level)) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Level, strings.Join(validLevels, ", "))
	}
	if !slices.Contains(validFormats, c.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Format, strings.Join(validFormats, ", "))
	}
	if !slices.Contains(validOutputs, c.Output) {
		return fmt.Errorf("invalid log output %q, must be one of: %s", c.Output, strings.Join(validOutputs, ", "))
	}
	if (c.Output == "file" || c.Output == "both") && c.File.Filename == "" {
		return errors.New("log file name is required when output includes file")
	}
	return nil
}

// Logger wraps zap.Logger.
type Logger struct {
	*zap.Logger
}

// New creates a logger from cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger configuration: %w", err)
	}
	if cfg.Output == "none" {
		return Nop(), nil
	}

	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var writers []zapcore.WriteSyncer
	switch cfg.Output {
	case "console":
		writers = append(writers, zapcore.Lock(os.Stderr))
	case "file":
		writers = append(writers, zapcore.AddSync(fileWriter(&cfg.File)))
	case "both":
		writers = append(writers, zapcore.Lock(os.Stderr), zapcore.AddSync(fileWriter(&cfg.File)))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), level)
	return &Logger{Logger: zap.New(core, zap.AddCaller())}, nil
}

// NewWithWriter creates a JSON logger writing to w at the given level. Used by tests.
func NewWithWriter(w io.Writer, level zapcore.Level) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(w), level)
	return &Logger{Logger: zap.New(core)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// With creates a child logger with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named creates a named child logger.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// fileWriter creates a lumberjack writer with rotation.
func fileWriter(cfg *FileConfig) io.Writer {
	dir := filepath.Dir(cfg.Filename)
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}
