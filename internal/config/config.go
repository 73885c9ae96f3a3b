package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	AppEnv      string
	AppName     string
	AppPort     string
	MetricsPort string
	LogLevel    string

	// Reputation service. Absence of the API key disables the component.
	ReputationAPIKey  string
	ReputationBaseURL string

	// Visual classifier. Absence of the endpoint disables the component.
	VisionEndpoint string
	VisionAPIKey   string

	// Local AV daemon. Absence of the address disables the component.
	ClamdAddr string

	// Verdict cache. Absence of the Redis host disables the layer.
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisMaxRetries   int

	// Review queue. Absence of the DSN disables the component.
	DatabaseURL string

	MaxFileSizeBytes int64
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:            os.Getenv("APP_ENV"),
		AppName:           os.Getenv("APP_NAME"),
		AppPort:           os.Getenv("APP_PORT"),
		MetricsPort:       os.Getenv("METRICS_PORT"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		ReputationAPIKey:  os.Getenv("REPUTATION_API_KEY"),
		ReputationBaseURL: os.Getenv("REPUTATION_BASE_URL"),
		VisionEndpoint:    os.Getenv("VISION_ENDPOINT"),
		VisionAPIKey:      os.Getenv("VISION_API_KEY"),
		ClamdAddr:         os.Getenv("CLAMD_ADDR"),
		RedisHost:         os.Getenv("REDIS_HOST"),
		RedisPort:         os.Getenv("REDIS_PORT"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
	}
	if cfg.AppName == "" {
		cfg.AppName = "safescan"
	}
	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.MetricsPort == "" {
		cfg.MetricsPort = "9090"
	}
	if cfg.RedisPort == "" {
		cfg.RedisPort = "6379"
	}
	if cfg.ReputationBaseURL == "" {
		cfg.ReputationBaseURL = "https://www.virustotal.com/api/v3"
	}
	cfg.MaxFileSizeBytes = 32 << 20
	var err error
	if v := os.Getenv("REDIS_DB"); v != "" {
		cfg.RedisDB, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}
	if v := os.Getenv("REDIS_POOL_SIZE"); v != "" {
		cfg.RedisPoolSize, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_POOL_SIZE: %w", err)
		}
	}
	if v := os.Getenv("REDIS_MIN_IDLE_CONNS"); v != "" {
		cfg.RedisMinIdleConns, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_MIN_IDLE_CONNS: %w", err)
		}
	}
	if v := os.Getenv("REDIS_MAX_RETRIES"); v != "" {
		cfg.RedisMaxRetries, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_MAX_RETRIES: %w", err)
		}
	}
	if v := os.Getenv("MAX_FILE_SIZE_BYTES"); v != "" {
		cfg.MaxFileSizeBytes, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_FILE_SIZE_BYTES: %w", err)
		}
	}
	return cfg, nil
}
