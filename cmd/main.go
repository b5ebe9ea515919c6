package main

import (
	"flag"
	"os"

	"cachekit/internal/cache"
	"cachekit/internal/config"
	"cachekit/internal/idempotency"
	"cachekit/internal/server"
	"cachekit/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	conf, err := config.FromFile(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatal("failed to load config", "path", *configPath, "error", err)
		}
		conf = config.Default()
		logger.Warn("config file not found, using defaults", "path", *configPath)
	}

	logger.Init(conf.LogLevel, conf.LogFile)
	defer logger.Sync()

	engine, err := cache.NewSharded(cache.Config{
		Capacity:        conf.Capacity,
		DefaultTTL:      conf.DefaultTTL.Std(),
		HashSeed:        conf.HashSeed,
		CleanupInterval: conf.CleanupInterval.Std(),
	}, conf.Shards)
	if err != nil {
		logger.Fatal("failed to build cache", "error", err)
	}
	defer engine.Close()

	// The idempotency store gets its own engine so cache CRUD traffic
	// can never collide with or delete token records.
	tokens, err := cache.New(cache.Config{
		Capacity:        conf.Capacity,
		HashSeed:        conf.HashSeed,
		CleanupInterval: conf.CleanupInterval.Std(),
	})
	if err != nil {
		logger.Fatal("failed to build token cache", "error", err)
	}
	defer tokens.Close()

	idem := idempotency.New(tokens, idempotency.Config{
		Window:     conf.IdempotencyWindow.Std(),
		PendingTTL: conf.PendingTTL.Std(),
	})

	s := server.New(engine, idem)
	logger.Info("cachekit listening",
		"addr", conf.HTTPAddr,
		"capacity", conf.Capacity,
		"shards", conf.Shards,
	)
	if err := s.Run(conf.HTTPAddr); err != nil {
		logger.Fatal("server exited", "error", err)
	}
}
