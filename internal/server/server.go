package server

import (
	"github.com/gin-gonic/gin"

	"cachekit/internal/cache"
	"cachekit/internal/idempotency"
)

// Server exposes the cache engine and the idempotency store over HTTP.
// The engine stays a plain library; this is an optional front end owned
// by whoever runs it.
type Server struct {
	router *gin.Engine
	cache  cache.Engine
	idem   *idempotency.Store
}

// New creates a new server instance
func New(c cache.Engine, idem *idempotency.Store) *Server {
	s := &Server{
		router: gin.Default(),
		cache:  c,
		idem:   idem,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleHealthCheck())

	s.router.GET("/v1/cache/:key", s.handleGetEntry())
	s.router.PUT("/v1/cache/:key", s.handlePutEntry())
	s.router.DELETE("/v1/cache/:key", s.handleDeleteEntry())
	s.router.GET("/v1/cache", s.handleListKeys())
	s.router.POST("/v1/cache/cleanup", s.handleCleanup())
	s.router.GET("/v1/stats", s.handleStats())

	s.router.POST("/v1/execute", s.handleExecute())
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
