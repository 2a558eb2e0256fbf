package cache

import (
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ai-chat-client/internal/entity"
)

// MessageCache maps session id -> last-known ordered message list. Entries
// never expire on their own: an entry is removed only when its session is
// deleted, or on a full reset at identity change.
type MessageCache struct {
	cache *cache.Cache
}

func NewMessageCache() *MessageCache {
	return &MessageCache{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Set stores a defensive copy so later store mutations cannot alias the
// cached list.
func (c *MessageCache) Set(sessionId uuid.UUID, messages []entity.ChatMessage) {
	copied := make([]entity.ChatMessage, len(messages))
	copy(copied, messages)
	c.cache.Set(sessionId.String(), copied, cache.DefaultExpiration)
}

func (c *MessageCache) Get(sessionId uuid.UUID) ([]entity.ChatMessage, bool) {
	x, found := c.cache.Get(sessionId.String())
	if !found {
		return nil, false
	}
	cached := x.([]entity.ChatMessage)
	copied := make([]entity.ChatMessage, len(cached))
	copy(copied, cached)
	return copied, true
}

// Append extends an existing entry. A session with no entry yet is left
// alone: the next full Set (cache miss fetch or join) establishes it.
func (c *MessageCache) Append(sessionId uuid.UUID, message entity.ChatMessage) {
	existing, found := c.Get(sessionId)
	if !found {
		return
	}
	c.cache.Set(sessionId.String(), append(existing, message), cache.DefaultExpiration)
}

func (c *MessageCache) Delete(sessionId uuid.UUID) {
	c.cache.Delete(sessionId.String())
}

func (c *MessageCache) Flush() {
	c.cache.Flush()
}

func (c *MessageCache) Len() int {
	return c.cache.ItemCount()
}
