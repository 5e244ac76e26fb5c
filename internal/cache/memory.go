package cache

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
)

// Memory keeps the snapshot in process. Used in tests and when no
// persistent cache is configured.
type Memory struct {
	mu    sync.Mutex
	snap  domain.Snapshot
	saved bool
	saves int
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(_ context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap.Clone()
	m.saved = true
	m.saves++
	return nil
}

func (m *Memory) Load(_ context.Context) (domain.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return domain.Snapshot{}, false, nil
	}
	return m.snap.Clone(), true, nil
}

// Saves returns how many times Save has been called.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
