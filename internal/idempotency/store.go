// Package idempotency deduplicates retried operations. Each operation
// carries a caller-supplied token; the first request executes, later
// requests inside the dedup window get the recorded result back instead
// of executing again.
//
// The naive check-then-save contract has a race: between "check said
// new" and "save result", a concurrent duplicate would also see "new".
// CheckOrCreate closes that gap by atomically recording an in-flight
// marker with the check, so the duplicate is told the operation is in
// progress rather than handed a second "new". The marker carries its
// own bounded TTL and is removed by Fail, so a caller that crashes
// before resolving it cannot lock its token out forever.
package idempotency

import (
	"sync"
	"time"

	"cachekit/internal/cache"
	apperrors "cachekit/pkg/errors"
	"cachekit/pkg/logger"
)

// Status is the outcome of CheckOrCreate for a token.
type Status int

const (
	// StatusNew means the token was unseen; the caller owns execution
	// and must resolve it with SaveResult or Fail.
	StatusNew Status = iota

	// StatusInProgress means another caller holds the token's
	// in-flight marker. The duplicate is rejected, not blocked; retry
	// after the original resolves or its marker expires.
	StatusInProgress

	// StatusDuplicate means a recorded result exists and is returned
	// as-is.
	StatusDuplicate
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusInProgress:
		return "in_progress"
	case StatusDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// record is the cache payload for one token.
type record struct {
	pending bool
	result  interface{}
}

type Config struct {
	// Window is how long a recorded result deduplicates retries. It
	// must cover the longest plausible client retry interval.
	Window time.Duration

	// PendingTTL bounds the in-flight marker's lifetime. After it a
	// token whose owner never resolved is treated as unseen again.
	PendingTTL time.Duration
}

const (
	DefaultWindow     = 24 * time.Hour
	DefaultPendingTTL = 30 * time.Second
)

// Store records operation results keyed by idempotency token on top of
// a cache engine. Give the store an engine of its own: on a shared one,
// ordinary cache writes can collide with token keys and deletes can
// destroy dedup records. Cache eviction or expiry of a token only
// weakens deduplication, never correctness, which is why a bounded
// cache is an acceptable backing: the worst case is an operation
// running twice after its token was evicted, the same outcome as an
// expired window.
type Store struct {
	// mu serializes the compound check-and-insert; the engine's own
	// lock only covers single operations.
	mu     sync.Mutex
	engine cache.Engine

	window     time.Duration
	pendingTTL time.Duration
}

// New builds a store over engine. Zero config fields fall back to
// DefaultWindow and DefaultPendingTTL.
func New(engine cache.Engine, cfg Config) *Store {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = DefaultPendingTTL
	}
	return &Store{
		engine:     engine,
		window:     cfg.Window,
		pendingTTL: cfg.PendingTTL,
	}
}

// CheckOrCreate tests token and atomically claims it when unseen.
//
//   - unseen (or expired, or removed): records an in-flight marker and
//     returns StatusNew; the caller must call SaveResult or Fail
//   - in-flight marker present: returns StatusInProgress
//   - result recorded: returns StatusDuplicate and the result
func (s *Store) CheckOrCreate(token string) (Status, interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.engine.Get(token); ok {
		if rec, isRecord := v.(record); isRecord {
			if rec.pending {
				return StatusInProgress, nil
			}
			return StatusDuplicate, rec.result
		}
		// A value written to the engine through another path is not a
		// dedup record; the token counts as unseen and gets claimed.
		logger.Warn("idempotency token collided with a foreign cache value", "token", token)
	}

	s.engine.PutWithTTL(token, record{pending: true}, s.pendingTTL)
	return StatusNew, nil
}

// SaveResult resolves token's in-flight marker with the final result
// and starts the dedup window.
func (s *Store) SaveResult(token string, result interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.PutWithTTL(token, record{result: result}, s.window)
}

// Fail removes token's in-flight marker so a retry sees the token as
// new again.
func (s *Store) Fail(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Remove(token)
}

// Do runs fn at most once per token within the dedup window. A
// duplicate call returns the recorded result without running fn; a
// call that lands while fn is still running returns ErrTokenInFlight.
// If fn errors, the token is released and the error passed through.
func (s *Store) Do(token string, fn func() (interface{}, error)) (interface{}, error) {
	status, result := s.CheckOrCreate(token)
	switch status {
	case StatusDuplicate:
		logger.Debug("returning recorded result for duplicate token", "token", token)
		return result, nil
	case StatusInProgress:
		return nil, apperrors.ErrTokenInFlight
	}

	result, err := fn()
	if err != nil {
		s.Fail(token)
		return nil, err
	}
	s.SaveResult(token, result)
	return result, nil
}
