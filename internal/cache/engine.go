package cache

import "time"

// Engine is the operation surface shared by Cache and Sharded, so
// callers like the idempotency store and the HTTP server work against
// either.
type Engine interface {
	Get(key string) (interface{}, bool)
	Put(key string, value interface{})
	PutWithTTL(key string, value interface{}, ttl time.Duration)
	Remove(key string) bool
	Cleanup() int
	Len() int
	Keys() []string
	Stats() Stats
	Close()
}

var (
	_ Engine = (*Cache)(nil)
	_ Engine = (*Sharded)(nil)
)
