package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string        // bind address, e.g. ":3000"
	APIKey        string        // empty disables the API key gate
	RateLimit     int           // requests per client per RateWindow; 0 disables
	RateWindow    time.Duration // rate limit window
	TrustProxy    bool          // key rate limiting on X-Forwarded-For
	MaxBulk       int           // max emails per bulk request
	MXTimeout     time.Duration // MX lookup deadline
	MXCacheTTL    time.Duration // 0 disables the MX answer cache
	RedisAddr     string        // empty disables the shared cache tier
	RedisPassword string
	RedisDB       int
	LogDir        string // logs directory
}

// FromEnv loads .env (if present) and reads the environment.
// Variables already set in the environment win over .env values.
func FromEnv() Config {
	_ = godotenv.Load()

	addr := os.Getenv("ADDR")
	if addr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		addr = ":" + port
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	return Config{
		Addr:          addr,
		APIKey:        strings.TrimSpace(os.Getenv("API_KEY")),
		RateLimit:     intEnv("RATE_LIMIT", 600, 0),
		RateWindow:    time.Duration(intEnv("RATE_WINDOW_SEC", 600, 1)) * time.Second,
		TrustProxy:    boolEnv("TRUST_PROXY", false),
		MaxBulk:       intEnv("MAX_BULK", 50, 1),
		MXTimeout:     time.Duration(intEnv("MX_TIMEOUT_MS", 5000, 1)) * time.Millisecond,
		MXCacheTTL:    time.Duration(intEnv("MX_CACHE_TTL_SEC", 300, 0)) * time.Second,
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       intEnv("REDIS_DB", 0, 0),
		LogDir:        logDir,
	}
}

// intEnv parses key as an integer, falling back to def when unset,
// malformed or below min.
func intEnv(key string, def, min int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < min {
		return def
	}
	return n
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
