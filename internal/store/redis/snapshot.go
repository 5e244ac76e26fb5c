package redis

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Store keeps the local snapshot in Redis, one JSON document per key.
// It satisfies cache.Cache.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore creates a new Redis store. An empty prefix selects DefaultKeyPrefix.
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

// Save writes all three documents in one MULTI/EXEC so a reader never
// sees collections from different snapshots.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	docs := make(map[string][]byte, len(domain.Documents))
	for _, name := range domain.Documents {
		data, err := snap.EncodeDocument(name)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		docs[name] = data
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for name, data := range docs {
			pipe.Set(ctx, DocumentKey(s.prefix, name), data, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load reads the three documents. A missing key is an empty collection;
// found is false only when none of them exist.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	values, err := s.client.MGet(ctx, documentKeys(s.prefix)...).Result()
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap domain.Snapshot
	found := false
	for i, name := range domain.Documents {
		var data []byte
		if raw, ok := values[i].(string); ok {
			data = []byte(raw)
			found = true
		}
		if err := snap.DecodeDocument(name, data); err != nil {
			return domain.Snapshot{}, false, err
		}
	}
	if !found {
		return domain.Snapshot{}, false, nil
	}
	return snap, true, nil
}
