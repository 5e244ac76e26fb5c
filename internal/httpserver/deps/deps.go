package deps

import (
	"time"

	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/remotesync"
	"github.com/redis/go-redis/v9"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedHosts []string // Host headers allowed to access the API
	AllowedCIDRS []string // IPs allowed to access the API and readyz
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Sync         *remotesync.Orchestrator // owns the state store and the remote mirror
	CacheBackend string                   // file, redis or memory
	RedisClient  *redis.Client            // nil unless the redis cache backend is used

	MaxBodyBytes    int64 // request body limit for mutations and imports
	RateLimitBurst  int   // per-IP burst on write endpoints, 0 disables
	RateLimitPerMin int   // per-IP refill on write endpoints
}
