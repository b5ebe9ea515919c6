package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cachekit/internal/cache"
	"cachekit/internal/idempotency"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	engine, err := cache.NewSharded(cache.Config{Capacity: 64, HashSeed: 1}, 2)
	assert.NoError(t, err)
	t.Cleanup(engine.Close)

	// Same wiring as cmd/main.go: tokens live in their own engine.
	tokens, err := cache.New(cache.Config{Capacity: 64, HashSeed: 1})
	assert.NoError(t, err)
	t.Cleanup(tokens.Close)

	idem := idempotency.New(tokens, idempotency.Config{
		Window:     time.Hour,
		PendingTTL: time.Second,
	})

	server := New(engine, idem)
	assert.NotNil(t, server)
	return server
}

func doJSON(server *Server, method, path string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	r := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		r.Header.Set(k, v)
	}
	server.router.ServeHTTP(w, r)
	return w
}

func TestHandleHealthCheck(t *testing.T) {
	server := setupTestServer(t)

	w := doJSON(server, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlePutAndGetEntry(t *testing.T) {
	server := setupTestServer(t)

	w := doJSON(server, http.MethodPut, "/v1/cache/user:42", PutEntryRequest{Value: "alice"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(server, http.MethodGet, "/v1/cache/user:42", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user:42", resp["key"])
	assert.Equal(t, "alice", resp["value"])

	// Missing key
	w = doJSON(server, http.MethodGet, "/v1/cache/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlePutEntryWithTTL(t *testing.T) {
	server := setupTestServer(t)

	w := doJSON(server, http.MethodPut, "/v1/cache/short", PutEntryRequest{Value: 1, TTL: "10ms"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	time.Sleep(20 * time.Millisecond)
	w = doJSON(server, http.MethodGet, "/v1/cache/short", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Invalid TTL string
	w = doJSON(server, http.MethodPut, "/v1/cache/bad", PutEntryRequest{Value: 1, TTL: "soon"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDeleteEntry(t *testing.T) {
	server := setupTestServer(t)

	doJSON(server, http.MethodPut, "/v1/cache/gone", PutEntryRequest{Value: 1}, nil)

	w := doJSON(server, http.MethodDelete, "/v1/cache/gone", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(server, http.MethodDelete, "/v1/cache/gone", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCleanupAndStats(t *testing.T) {
	server := setupTestServer(t)

	doJSON(server, http.MethodPut, "/v1/cache/stale", PutEntryRequest{Value: 1, TTL: "-1s"}, nil)
	doJSON(server, http.MethodPut, "/v1/cache/live", PutEntryRequest{Value: 1}, nil)

	w := doJSON(server, http.MethodPost, "/v1/cache/cleanup", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var cleanup map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &cleanup))
	assert.Equal(t, float64(1), cleanup["removed"])

	w = doJSON(server, http.MethodGet, "/v1/stats", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var stats map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["entries"])
}

func TestHandleExecuteIdempotent(t *testing.T) {
	server := setupTestServer(t)

	header := map[string]string{idempotencyHeader: "order-123"}
	req := ExecuteRequest{Key: "order:123", Value: "created"}

	w := doJSON(server, http.MethodPost, "/v1/execute", req, header)
	assert.Equal(t, http.StatusOK, w.Code)
	first := w.Body.String()

	// The retry returns the recorded result, byte for byte.
	w = doJSON(server, http.MethodPost, "/v1/execute", req, header)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, w.Body.String())

	// The write itself happened exactly once and is visible.
	w = doJSON(server, http.MethodGet, "/v1/cache/order:123", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleExecuteIsolatedFromCacheWrites(t *testing.T) {
	server := setupTestServer(t)

	// A cache entry whose key equals a later idempotency token must
	// neither panic the execute path nor be mistaken for a record.
	w := doJSON(server, http.MethodPut, "/v1/cache/shared-name", PutEntryRequest{Value: "plain"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	header := map[string]string{idempotencyHeader: "shared-name"}
	w = doJSON(server, http.MethodPost, "/v1/execute", ExecuteRequest{Key: "k1", Value: 1}, header)
	assert.Equal(t, http.StatusOK, w.Code)

	// Deleting the cache entry leaves the dedup record intact.
	first := w.Body.String()
	doJSON(server, http.MethodDelete, "/v1/cache/shared-name", nil, nil)

	w = doJSON(server, http.MethodPost, "/v1/execute", ExecuteRequest{Key: "k1", Value: 1}, header)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, w.Body.String())
}

func TestHandleExecuteValidation(t *testing.T) {
	server := setupTestServer(t)

	// Missing header
	w := doJSON(server, http.MethodPost, "/v1/execute", ExecuteRequest{Key: "k"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing key
	header := map[string]string{idempotencyHeader: "tok"}
	w = doJSON(server, http.MethodPost, "/v1/execute", ExecuteRequest{}, header)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
