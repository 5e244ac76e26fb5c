package cache

import (
	"context"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
)

// Backend names accepted by TMT_CACHE_BACKEND.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Cache is the durable local copy of the three collections. It is written
// through on every mutation that cannot reach the remote store and read
// back when the remote store is unavailable at startup.
type Cache interface {
	// Save replaces the cached copy of all three collections.
	Save(ctx context.Context, snap domain.Snapshot) error
	// Load returns the cached snapshot. found is false when nothing has
	// ever been saved.
	Load(ctx context.Context) (snap domain.Snapshot, found bool, err error)
}
