package redis

import "github.com/MrSnakeDoc/toomanytabs/internal/domain"

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "toomanytabs:"

// DocumentKey returns the Redis key holding one collection document,
// e.g. "toomanytabs:bookmarks.json".
func DocumentKey(prefix, document string) string {
	return prefix + document
}

func documentKeys(prefix string) []string {
	keys := make([]string, len(domain.Documents))
	for i, name := range domain.Documents {
		keys[i] = DocumentKey(prefix, name)
	}
	return keys
}
