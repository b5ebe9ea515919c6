package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "cachekit/pkg/errors"
)

// idempotencyHeader carries the caller-supplied token deduplicating a
// retried request.
const idempotencyHeader = "Idempotency-Key"

type PutEntryRequest struct {
	Value interface{} `json:"value"`
	TTL   string      `json:"ttl"` // optional Go duration string; empty = default TTL
}

type ExecuteRequest struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
	TTL   string      `json:"ttl"`
}

func (s *Server) handleHealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (s *Server) handleGetEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		value, ok := s.cache.Get(key)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
	}
}

func (s *Server) handlePutEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")

		var req PutEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if req.TTL == "" {
			s.cache.Put(key, req.Value)
		} else {
			ttl, err := time.ParseDuration(req.TTL)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			s.cache.PutWithTTL(key, req.Value, ttl)
		}

		c.JSON(http.StatusOK, gin.H{"key": key})
	}
}

func (s *Server) handleDeleteEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if !s.cache.Remove(key) {
			c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleListKeys() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"keys": s.cache.Keys()})
	}
}

func (s *Server) handleCleanup() gin.HandlerFunc {
	return func(c *gin.Context) {
		removed := s.cache.Cleanup()
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}

func (s *Server) handleStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := s.cache.Stats()
		c.JSON(http.StatusOK, gin.H{
			"entries":     s.cache.Len(),
			"hits":        stats.Hits,
			"misses":      stats.Misses,
			"evictions":   stats.Evictions,
			"expirations": stats.Expirations,
			"hit_rate":    stats.HitRate(),
		})
	}
}

// handleExecute applies a cache write at most once per Idempotency-Key.
// A retry with the same key gets the original response back; a retry
// racing the original gets 409 and should back off.
func (s *Server) handleExecute() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(idempotencyHeader)
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing Idempotency-Key header"})
			return
		}

		var req ExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
			return
		}

		var ttl time.Duration
		hasTTL := req.TTL != ""
		if hasTTL {
			parsed, err := time.ParseDuration(req.TTL)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ttl = parsed
		}

		result, err := s.idem.Do(token, func() (interface{}, error) {
			if hasTTL {
				s.cache.PutWithTTL(req.Key, req.Value, ttl)
			} else {
				s.cache.Put(req.Key, req.Value)
			}
			return gin.H{"key": req.Key, "applied_at": time.Now().UTC().Format(time.RFC3339Nano)}, nil
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrTokenInFlight) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}
