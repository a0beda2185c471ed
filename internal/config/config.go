package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int
	Timeout     int
	Prefix      string
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
	URLTTL          time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type CasesConfig struct {
	// AllowCancelled makes CANCELLED a supported case status.
	AllowCancelled bool
	// LockClosed forbids reopening CLOSED cases.
	LockClosed bool
	// AnalyticsCacheTTL of zero disables analytics caching.
	AnalyticsCacheTTL time.Duration
}

type AppConfig struct {
	Port     string
	Postgres PostgresConfig
	Redis    RedisConfig
	S3       S3Config
	Log      LogConfig
	Cases    CasesConfig

	ExportDir         string
	FilesPublicPrefix string
	ExternalURL       string
	ExportTTL         time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loader collects the first parse error so Load can report it with the key that caused it.
type loader struct {
	err error
}

func (l *loader) int(key, def string) int {
	s := getenv(key, def)
	i, err := strconv.Atoi(s)
	if err != nil && l.err == nil {
		l.err = fmt.Errorf("invalid int value %q for %s: %w", s, key, err)
	}
	return i
}

func (l *loader) bool(key, def string) bool {
	s := getenv(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil && l.err == nil {
		l.err = fmt.Errorf("invalid bool value %q for %s: %w", s, key, err)
	}
	return b
}

func (l *loader) duration(key, def string) time.Duration {
	s := getenv(key, def)
	d, err := time.ParseDuration(s)
	if err != nil && l.err == nil {
		l.err = fmt.Errorf("invalid duration value %q for %s: %w", s, key, err)
	}
	return d
}

func Load() (AppConfig, error) {
	l := &loader{}

	cfg := AppConfig{
		Port: getenv("APP_PORT", "8010"),
		Postgres: PostgresConfig{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     l.int("PG_PORT", "5432"),
			User:     getenv("PG_USER", "root"),
			Password: getenv("PG_PASSWORD", "hello-world"),
			DBName:   getenv("PG_DB", "collections"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
			MaxConns: l.int("PG_MAX_CONNS", "20"),
		},
		Redis: RedisConfig{
			Addr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    getenv("REDIS_PASSWORD", ""),
			DB:          l.int("REDIS_DB", "0"),
			MaxRetries:  l.int("REDIS_MAX_RETRIES", "3"),
			DialTimeout: l.int("REDIS_DIAL_TIMEOUT", "10"),
			Timeout:     l.int("REDIS_TIMEOUT", "5"),
			Prefix:      getenv("REDIS_PREFIX", "collections_"),
		},
		S3: S3Config{
			Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getenv("S3_ACCESS_KEY", "minio"),
			SecretAccessKey: getenv("S3_SECRET_KEY", "minio123"),
			Bucket:          getenv("S3_BUCKET", "case-documents"),
			Region:          getenv("S3_REGION", "us-east-1"),
			UseSSL:          l.bool("S3_USE_SSL", "false"),
			Prefix:          getenv("S3_PREFIX", ""),
			URLTTL:          l.duration("S3_URL_TTL", "1h"),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		Cases: CasesConfig{
			AllowCancelled:    l.bool("CASES_ALLOW_CANCELLED", "false"),
			LockClosed:        l.bool("CASES_LOCK_CLOSED", "false"),
			AnalyticsCacheTTL: l.duration("ANALYTICS_CACHE_TTL", "60s"),
		},
		ExportDir:         getenv("EXPORT_DIR", "./exports"),
		FilesPublicPrefix: getenv("FILES_PUBLIC_PREFIX", "/files"),
		ExternalURL:       getenv("EXTERNAL_URL", ""),
		ExportTTL:         l.duration("EXPORT_TTL", "30m"),
	}

	if l.err != nil {
		return AppConfig{}, l.err
	}
	return cfg, nil
}
