package errors

import "errors"

var (
	// Configuration errors
	ErrInvalidCapacity   = errors.New("cache capacity must not be negative")
	ErrInvalidShardCount = errors.New("shard count must be positive")
	ErrInvalidWindow     = errors.New("idempotency window must not be negative")

	// Idempotency errors
	ErrTokenInFlight = errors.New("operation for this token is still in flight")
)
