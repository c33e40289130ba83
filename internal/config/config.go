// Package config loads process configuration from the environment (with a
// .env file for local runs) and hands it to constructors as one struct. No
// component reads the environment on its own.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gitworth/internal/appraisal"
	"gitworth/internal/service/appraise"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	GitHubToken string
	ReposRoot   string
	SizeLimit   int64
	WorkerSlots int
	Cache       CacheConfig
	TTL         appraisal.TTLPolicy
}

type CacheConfig struct {
	// Backend selects the cache store: "memory" (per-process), "disk"
	// (single node, survives restarts), or "s3" (shared).
	Backend  string
	DiskRoot string
	S3       S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:        *port,
		Env:         env,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GitHubToken: strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		ReposRoot:   firstNonEmpty(strings.TrimSpace(os.Getenv("REPOS_ROOT")), "tmp/repos"),
		SizeLimit:   envInt64("APPRAISAL_SIZE_LIMIT", appraise.DefaultSizeLimit),
		WorkerSlots: int(envInt64("WORKER_SLOTS", 2)),
		Cache:       loadCacheConfig(env),
		TTL: appraisal.TTLPolicy{
			Success: envSeconds("APPRAISAL_SUCCESS_TTL_SECONDS", appraisal.DefaultSuccessTTL),
			Error:   envSeconds("APPRAISAL_ERROR_TTL_SECONDS", appraisal.DefaultErrorTTL),
		},
	}, nil
}

func loadCacheConfig(env string) CacheConfig {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("CACHE_BACKEND")))
	if backend == "" {
		if strings.EqualFold(env, "local") {
			backend = "memory"
		} else {
			backend = "s3"
		}
	}
	return CacheConfig{
		Backend:  backend,
		DiskRoot: firstNonEmpty(strings.TrimSpace(os.Getenv("CACHE_DISK_ROOT")), "tmp/cache"),
		S3: S3Config{
			Endpoint:  strings.TrimSpace(os.Getenv("CACHE_S3_ENDPOINT")),
			Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("CACHE_S3_REGION")), "us-east-1"),
			AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("CACHE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
			SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("CACHE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
			Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("CACHE_S3_BUCKET")), "gitworth-appraisals"),
			UseSSL:    envBool("CACHE_S3_USE_SSL", !strings.EqualFold(env, "local")),
		},
	}
}

func envInt64(name string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envSeconds(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Second
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
