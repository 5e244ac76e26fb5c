package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/toomanytabs/internal/cache"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Remote store (GitHub contents API or compatible)
	RemoteBaseURL    string        // ex: "https://api.github.com"
	RemoteRepository string        // "owner/repo" or "https://github.com/owner/repo"
	RemoteBranch     string        // optional, empty = default branch
	RemoteToken      string        // personal access token
	RemotePathPrefix string        // optional directory holding the documents
	RequestTimeout   time.Duration // per remote call (default: 10s)
	RemoteMaxRetries int           // transport retries of 429/5xx (default: 3, -1 = none)
	SyncInterval     time.Duration // periodic push (default: 30s, negative = disabled)

	// Local cache
	CacheBackend string // "file" | "redis" | "memory"
	CacheDir     string // directory of the file cache

	// Redis (only with CacheBackend=redis)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisKeyPrefix        string        // ex: "toomanytabs:"
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Optional Homepage files imported once at startup
	HomepageBookmarksFile string
	HomepageServicesFile  string

	AllowedHosts    []string // optional, restrict access to specific Host headers
	AllowedCIDRS    []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy      bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	RateLimitBurst  int      // write requests per IP before throttling (0 = disabled)
	RateLimitPerMin int      // refill rate of the write limit
	MaxBodyBytes    int64    // request body limit
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("TMT_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("TMT_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("TMT_LOG_LEVEL", "info"),
		PrettyLog: mustBool("TMT_PRETTY_LOG", true),

		// Remote store
		RemoteBaseURL:    getenv("TMT_REMOTE_BASE_URL", "https://api.github.com"),
		RemoteRepository: requireEnv("TMT_REMOTE_REPOSITORY"),
		RemoteBranch:     getenv("TMT_REMOTE_BRANCH", ""),
		RemoteToken:      requireEnv("TMT_REMOTE_TOKEN"),
		RemotePathPrefix: getenv("TMT_REMOTE_PATH_PREFIX", ""),
		RequestTimeout:   mustDuration("TMT_REQUEST_TIMEOUT", 10*time.Second),
		RemoteMaxRetries: getenvInt("TMT_REMOTE_MAX_RETRIES", 3),
		SyncInterval:     mustDuration("TMT_SYNC_INTERVAL", 30*time.Second),

		// Local cache
		CacheBackend: strings.ToLower(getenv("TMT_CACHE_BACKEND", cache.BackendFile)),
		CacheDir:     getenv("TMT_CACHE_DIR", "/app/data"),

		// Redis settings
		RedisAddr:             getenv("TMT_REDIS_ADDR", ""),
		RedisUser:             getenv("TMT_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("TMT_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("TMT_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("TMT_REDIS_DB", 0),
		RedisKeyPrefix:        getenv("TMT_REDIS_KEY_PREFIX", "toomanytabs:"),
		RedisDT:               mustDuration("TMT_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("TMT_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("TMT_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("TMT_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("TMT_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("TMT_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("TMT_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("TMT_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("TMT_REDIS_WARN_THRESHOLD", 3),

		// Startup imports
		HomepageBookmarksFile: getenv("TMT_HOMEPAGE_BOOKMARKS_FILE", ""),
		HomepageServicesFile:  getenv("TMT_HOMEPAGE_SERVICES_FILE", ""),

		// Access restrictions
		AllowedHosts:    splitAndTrim(getenv("TMT_ALLOWED_HOSTS", "")),
		AllowedCIDRS:    parseAllowedIPs(getenv("TMT_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("TMT_TRUST_PROXY", true),
		RateLimitBurst:  getenvInt("TMT_RATE_LIMIT_BURST", 30),
		RateLimitPerMin: getenvInt("TMT_RATE_LIMIT_PER_MIN", 60),
		MaxBodyBytes:    int64(getenvInt("TMT_MAX_BODY_BYTES", 1<<20)),
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RemoteToken = "***REDACTED***"
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case cache.BackendFile:
		if c.CacheDir == "" {
			return fmt.Errorf("TMT_CACHE_DIR is required when TMT_CACHE_BACKEND=%s", cache.BackendFile)
		}
	case cache.BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("TMT_REDIS_ADDR is required when TMT_CACHE_BACKEND=%s", cache.BackendRedis)
		}
		if c.RedisPasswordRequired && c.RedisPassword == "" {
			return fmt.Errorf("TMT_REDIS_PASSWORD is required when TMT_REDIS_PASSWORD_REQUIRED=true")
		}
	case cache.BackendMemory:
	default:
		return fmt.Errorf("invalid TMT_CACHE_BACKEND %q (want %s, %s or %s)", c.CacheBackend, cache.BackendFile, cache.BackendRedis, cache.BackendMemory)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("TMT_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
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

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
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
