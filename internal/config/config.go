package config

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config holds the base configuration
type Config struct {
	Server ServerConfig
	Worker WorkerConfig
	App    AppConfig
	FFmpeg FFmpegConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// MaxUploadBytes caps a single multipart upload.
	MaxUploadBytes int64
	// SubmitRatePerSec limits batch submissions per client.
	SubmitRatePerSec float64
}

type WorkerConfig struct {
	// Count is the requested number of execution units; the pool caps it at
	// the machine's parallelism.
	Count int
}

type AppConfig struct {
	LogLevel string
	// DefaultQuality is applied when a request carries no quality knob.
	DefaultQuality int
}

type FFmpegConfig struct {
	Binary string
}

// Load loads configuration from environment variables with default values
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             getEnv("SERVER_PORT", "8080"),
			Host:             getEnv("SERVER_HOST", ""),
			ReadTimeout:      getEnvDuration("SERVER_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:     getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:      getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxUploadBytes:   getEnvInt64("SERVER_MAX_UPLOAD_BYTES", 256<<20),
			SubmitRatePerSec: getEnvFloat("SERVER_SUBMIT_RATE", 5),
		},
		Worker: WorkerConfig{
			Count: getEnvInt("WORKER_COUNT", 4),
		},
		App: AppConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			DefaultQuality: getEnvInt("DEFAULT_QUALITY", 85),
		},
		FFmpeg: FFmpegConfig{
			Binary: getEnv("FFMPEG_BINARY", "ffmpeg"),
		},
	}
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
