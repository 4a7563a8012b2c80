package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8765"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ExportFile        string        // path to a bookmark export yaml (optional, empty = live host only)
	ReconcileInterval time.Duration // interval between full tree reconciliations (default: 6h)
	BackfillInterval  time.Duration // interval between enrichment backfill sweeps (default: 15m)
	BackfillBatch     int           // max records re-enriched per sweep (default: 20, 0 = default)
	FetchTimeout      time.Duration // per-page fetch timeout (default: 4s)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IPs (e.g. "127.0.0.1, ::1")
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MARQUE_LISTEN_PORT", ":8765"),
		ShutdownTimeout: mustDuration("MARQUE_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MARQUE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARQUE_PRETTY_LOG", true),

		// Enrichment and reconciliation
		ExportFile:        getenv("MARQUE_EXPORT_FILE", ""), // Optional, empty = live host only
		ReconcileInterval: mustDuration("MARQUE_RECONCILE_INTERVAL", 6*time.Hour),
		BackfillInterval:  mustDuration("MARQUE_BACKFILL_INTERVAL", 15*time.Minute),
		BackfillBatch:     getenvInt("MARQUE_BACKFILL_BATCH", 20),
		FetchTimeout:      mustDuration("MARQUE_FETCH_TIMEOUT", 4*time.Second),

		// Redis settings
		RedisAddr:             requireEnv("MARQUE_REDIS_ADDR"),
		RedisUser:             getenv("MARQUE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("MARQUE_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("MARQUE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("MARQUE_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MARQUE_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("MARQUE_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MARQUE_TRUST_PROXY", false),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: MARQUE_REDIS_PASSWORD is required when MARQUE_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
