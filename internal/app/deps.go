// Package app builds the shared dependencies both binaries need from config.
package app

import (
	"fmt"

	"gitworth/internal/cache"
	cachedisk "gitworth/internal/cache/disk"
	cachememory "gitworth/internal/cache/memory"
	caches3 "gitworth/internal/cache/s3"
	"gitworth/internal/config"
)

// BuildCache selects the cache backend. Memory is per-process and suits local
// runs; disk keeps one node's cache across restarts; s3 shares one cache
// between the api and worker fleets.
func BuildCache(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "", "memory":
		return cachememory.New(cachememory.Config{}), nil
	case "disk":
		return cachedisk.New(cachedisk.Config{Root: cfg.Cache.DiskRoot})
	case "s3":
		return caches3.New(caches3.Config{
			Endpoint:  cfg.Cache.S3.Endpoint,
			Region:    cfg.Cache.S3.Region,
			AccessKey: cfg.Cache.S3.AccessKey,
			SecretKey: cfg.Cache.S3.SecretKey,
			Bucket:    cfg.Cache.S3.Bucket,
			UseSSL:    cfg.Cache.S3.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
