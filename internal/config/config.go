package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port string
	Env  string

	LogLevel  string
	LogFormat string

	MongoURI string
	MongoDB  string

	RedisAddr       string
	RedisPassword   string
	AccountCacheTTL time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	CORSOrigins    []string
	CookieSecure   bool
	MaxUploadBytes int64

	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
}

// Load reads the environment and validates the fields the service cannot
// start without.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getenv("PORT", "8000"),
		Env:            getenv("APP_ENV", "dev"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
		MongoURI:       getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:        getenv("MONGODB_DB", "videotube"),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "videotube-media"),
		MinioUseSSL:    getBool("MINIO_USE_SSL", false),
		CORSOrigins:    splitList(getenv("CORS_ORIGIN", "http://localhost:5173")),
		CookieSecure:   getBool("COOKIE_SECURE", true),
		MaxUploadBytes: getInt64("MAX_UPLOAD_BYTES", 10<<20),
	}
	cfg.AccessTokenSecret = os.Getenv("ACCESS_TOKEN_SECRET")
	cfg.RefreshTokenSecret = os.Getenv("REFRESH_TOKEN_SECRET")
	cfg.MinioPublicURL = getenv("MINIO_PUBLIC_URL", defaultPublicURL(cfg.MinioEndpoint, cfg.MinioUseSSL))

	var errs []error
	var err error
	if cfg.AccountCacheTTL, err = getExpiry("ACCOUNT_CACHE_TTL", "5m"); err != nil {
		errs = append(errs, err)
	}
	if cfg.AccessTokenExpiry, err = getExpiry("ACCESS_TOKEN_EXPIRY", "1d"); err != nil {
		errs = append(errs, err)
	}
	if cfg.RefreshTokenExpiry, err = getExpiry("REFRESH_TOKEN_EXPIRY", "10d"); err != nil {
		errs = append(errs, err)
	}

	if cfg.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if cfg.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET is required"))
	}
	if cfg.AccessTokenSecret != "" && cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if cfg.AccessTokenExpiry <= 0 || cfg.RefreshTokenExpiry <= 0 {
		errs = append(errs, errors.New("token expiries must be positive"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getExpiry(key, fallback string) (time.Duration, error) {
	raw := getenv(key, fallback)
	d, err := ParseExpiry(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseExpiry accepts Go durations ("15m", "24h") and whole days ("10d").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultPublicURL(endpoint string, useSSL bool) string {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
