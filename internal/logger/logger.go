package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level         zapcore.Level
	ConsoleOutput bool
	FileOutput    bool
	Filename      string
	MaxSize       int  // megabytes
	MaxAge        int  // days
	MaxBackups    int  // number of backups to keep
	Compress      bool // compress rotated files
	JSONFormat    bool // use JSON format for console output
}

const (
	DefaultFilename   = "logs/mediaforge-core.log"
	DefaultMaxSize    = 100 // megabytes
	DefaultMaxAge     = 30  // days
	DefaultMaxBackups = 10
	DefaultCompress   = true
)

// Option is a function that configures the logger
type Option func(*Config)

// WithLevel sets the logging level
func WithLevel(level string) Option {
	return func(c *Config) {
		switch level {
		case "debug":
			c.Level = zapcore.DebugLevel
		case "info":
			c.Level = zapcore.InfoLevel
		case "warn":
			c.Level = zapcore.WarnLevel
		case "error":
			c.Level = zapcore.ErrorLevel
		case "fatal":
			c.Level = zapcore.FatalLevel
		default:
			c.Level = zapcore.InfoLevel
		}
	}
}

// WithConsoleOutput enables/disables console output
func WithConsoleOutput(enabled bool) Option {
	return func(c *Config) { c.ConsoleOutput = enabled }
}

// WithFileOutput enables/disables file output
func WithFileOutput(enabled bool) Option {
	return func(c *Config) { c.FileOutput = enabled }
}

// WithFilename sets the log filename
func WithFilename(filename string) Option {
	return func(c *Config) { c.Filename = filename }
}

// WithJSONFormat enables JSON format for console output (for server mode)
func WithJSONFormat(enabled bool) Option {
	return func(c *Config) { c.JSONFormat = enabled }
}

// WithRotationConfig sets the log rotation configuration
func WithRotationConfig(maxSize, maxAge, maxBackups int, compress bool) Option {
	return func(c *Config) {
		c.MaxSize = maxSize
		c.MaxAge = maxAge
		c.MaxBackups = maxBackups
		c.Compress = compress
	}
}

// NewForCLI builds a logger with human-readable console output.
func NewForCLI(level string) (*zap.Logger, error) {
	return New(
		WithLevel(level),
		WithConsoleOutput(true),
		WithJSONFormat(false),
	)
}

// NewForAPI builds a logger with JSON console output for server mode.
func NewForAPI(level string, enableFileLogging bool) (*zap.Logger, error) {
	return New(
		WithLevel(level),
		WithConsoleOutput(true),
		WithJSONFormat(true),
		WithFileOutput(enableFileLogging),
	)
}

// New builds a logger instance. Callers own the instance and pass it down
// explicitly; there is no package-level singleton.
func New(opts ...Option) (*zap.Logger, error) {
	config := &Config{
		Level:         zapcore.InfoLevel,
		ConsoleOutput: true,
		FileOutput:    false,
		Filename:      DefaultFilename,
		MaxSize:       DefaultMaxSize,
		MaxAge:        DefaultMaxAge,
		MaxBackups:    DefaultMaxBackups,
		Compress:      DefaultCompress,
		JSONFormat:    false,
	}

	for _, opt := range opts {
		opt(config)
	}

	var cores []zapcore.Core

	if config.ConsoleOutput {
		var consoleEncoder zapcore.Encoder

		if config.JSONFormat {
			jsonConfig := zap.NewProductionEncoderConfig()
			jsonConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			jsonConfig.StacktraceKey = ""
			consoleEncoder = zapcore.NewJSONEncoder(jsonConfig)
		} else {
			consoleConfig := zap.NewDevelopmentEncoderConfig()
			consoleConfig.EncodeTime = zapcore.RFC3339TimeEncoder
			consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
			consoleConfig.EncodeCaller = zapcore.ShortCallerEncoder
			consoleEncoder = zapcore.NewConsoleEncoder(consoleConfig)
		}

		cores = append(cores, zapcore.NewCore(
			consoleEncoder,
			zapcore.AddSync(os.Stdout),
			config.Level,
		))
	}

	if config.FileOutput {
		if err := os.MkdirAll(filepath.Dir(config.Filename), 0755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}

		fileEncoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:      "ts",
			LevelKey:     "level",
			NameKey:      "logger",
			CallerKey:    "caller",
			MessageKey:   "msg",
			EncodeLevel:  zapcore.LowercaseLevelEncoder,
			EncodeTime:   zapcore.ISO8601TimeEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		})

		cores = append(cores, zapcore.NewCore(
			fileEncoder,
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   config.Filename,
				MaxSize:    config.MaxSize,
				MaxAge:     config.MaxAge,
				MaxBackups: config.MaxBackups,
				Compress:   config.Compress,
			}),
			config.Level,
		))
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("no output configured for logger")
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
