package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	TextAPIBaseURL string `yaml:"textApiBaseURL"`
	TextAPIKey     string `yaml:"textApiKey"`
	TextModel      string `yaml:"textModel"`

	ImageAPIBaseURL string `yaml:"imageApiBaseURL"`
	ImageAPIKey     string `yaml:"imageApiKey"`
	ImageModel      string `yaml:"imageModel"`

	AuthJWKSURL string `yaml:"authJwksURL"`
	JWTIssuer   string `yaml:"jwtIssuer"`
	JWTAudience string `yaml:"jwtAudience"`
	JWTLeeway   string `yaml:"jwtLeeway"`

	MemoirCooldownMinutes      int `yaml:"memoirCooldownMinutes"`
	GenerateRateLimitPerMinute int `yaml:"generateRateLimitPerMinute"`
	MaxConcurrentImages        int `yaml:"maxConcurrentImages"`
	ImageIntervalMillis        int `yaml:"imageIntervalMillis"`

	TrustedProxies []string `yaml:"trustedProxies"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("TEXT_API_BASE_URL"); v != "" {
		cfg.TextAPIBaseURL = v
	}
	if v := os.Getenv("TEXT_API_KEY"); v != "" {
		cfg.TextAPIKey = v
	}
	if v := os.Getenv("TEXT_MODEL"); v != "" {
		cfg.TextModel = v
	}
	if v := os.Getenv("IMAGE_API_BASE_URL"); v != "" {
		cfg.ImageAPIBaseURL = v
	}
	if v := os.Getenv("IMAGE_API_KEY"); v != "" {
		cfg.ImageAPIKey = v
	}
	if v := os.Getenv("IMAGE_MODEL"); v != "" {
		cfg.ImageModel = v
	}
	if v := os.Getenv("AUTH_JWKS_URL"); v != "" {
		cfg.AuthJWKSURL = v
	}
	if v := os.Getenv("LIFEBOOK_GENERATE_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GenerateRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("LIFEBOOK_TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml)")
	}
	if cfg.MinioEndpoint == "" {
		return errors.New("config: minioEndpoint is required (set in config.yaml)")
	}
	if cfg.MinioAccessKey == "" {
		return errors.New("config: minioAccessKey is required (set in config.yaml)")
	}
	if cfg.MinioSecretKey == "" {
		return errors.New("config: minioSecretKey is required (set in config.yaml)")
	}
	if cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required (set in config.yaml)")
	}
	if cfg.TextAPIBaseURL == "" {
		return errors.New("config: textApiBaseURL is required (set in config.yaml)")
	}
	if cfg.TextModel == "" {
		return errors.New("config: textModel is required (set in config.yaml)")
	}
	if cfg.ImageAPIBaseURL == "" {
		return errors.New("config: imageApiBaseURL is required (set in config.yaml)")
	}
	if cfg.ImageModel == "" {
		return errors.New("config: imageModel is required (set in config.yaml)")
	}
	if cfg.AuthJWKSURL == "" {
		return errors.New("config: authJwksURL is required (set in config.yaml)")
	}
	if cfg.MemoirCooldownMinutes < 0 {
		return errors.New("config: memoirCooldownMinutes must not be negative")
	}
	return nil
}

// ParseJWTLeeway converts the configured leeway (e.g. "30s") into a duration.
// Empty input returns 0, which lets the verifier apply its default.
func ParseJWTLeeway(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	leeway, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse jwtLeeway: %w", err)
	}
	if leeway < 0 {
		return 0, errors.New("jwtLeeway must not be negative")
	}
	return leeway, nil
}

// MemoirCooldown returns the configured cooldown window, defaulting to 10
// minutes.
func (c FileConfig) MemoirCooldown() time.Duration {
	if c.MemoirCooldownMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.MemoirCooldownMinutes) * time.Minute
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
