package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	// AppID scopes the review keyspace; a deployment identifier.
	AppID string

	// RedisAddr is the backend connection. Deliberately no default: its
	// absence is a fatal bootstrap error, not a localhost fallback.
	RedisAddr string
	RedisDB   int
	RedisPass string

	// AuthToken is an optional pre-issued session token. Empty means
	// anonymous sign-in.
	AuthToken string

	// MySQLDSN selects the MySQL catalog; empty selects the embedded one.
	MySQLDSN string

	IdentityFile string
	Workers      int
	SubmitRPS    int
	CacheTTL     time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ":9100"),
		AppID:        env("APP_ID", "default-book-hub"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		AuthToken:    env("AUTH_TOKEN", ""),
		MySQLDSN:     env("MYSQL_DSN", ""),
		IdentityFile: env("IDENTITY_FILE", ""),
		Workers:      atoi("SEED_WORKERS", 8),
		SubmitRPS:    atoi("SUBMIT_RPS", 5),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty; bootstrap will fail")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
