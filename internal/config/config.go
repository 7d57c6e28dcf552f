// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	LogFormat   string

	// HeartbeatInterval is the period of the connection liveness sweep.
	HeartbeatInterval time.Duration
	// LivenessWindow is how stale a device's last ping may be before the
	// status validation job forces it inactive.
	LivenessWindow time.Duration
	// UserStatusInterval is the period of the device-status validation job.
	UserStatusInterval time.Duration
	// RecordingInterval is the period of the recording-timeout validation job.
	RecordingInterval time.Duration

	// WSConnectRate limits websocket upgrades per client IP per second.
	WSConnectRate  float64
	WSConnectBurst int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	var err error
	if cfg.HeartbeatInterval, err = getEnvDuration("HEARTBEAT_INTERVAL_MS", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.LivenessWindow, err = getEnvDuration("LIVENESS_WINDOW_MS", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.UserStatusInterval, err = getEnvDuration("USER_STATUS_INTERVAL_MS", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RecordingInterval, err = getEnvDuration("RECORDING_INTERVAL_MS", 5*time.Second); err != nil {
		return nil, err
	}

	cfg.WSConnectRate = 5
	cfg.WSConnectBurst = 10

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer of milliseconds", key)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
