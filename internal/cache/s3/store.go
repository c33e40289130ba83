// Package s3 backs the appraisal cache with an S3-compatible object store so
// the api and worker processes share one cache. TTL is carried in object
// metadata and enforced lazily on read; expired objects are deleted when
// observed.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"gitworth/internal/cache"
)

const expiresAtMetaKey = "Expires-At"

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error

	now func() time.Time
}

func New(cfg Config) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &Store{
		client:     client,
		bucketName: bucket,
		region:     region,
		now:        time.Now,
	}, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, false, fmt.Errorf("%w: ensure bucket: %v", cache.ErrUnavailable, err)
	}

	info, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if isMissing(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: stat %q: %v", cache.ErrUnavailable, key, err)
	}
	if s.expired(info) {
		_ = s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
		return nil, false, nil
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %q: %v", cache.ErrUnavailable, key, err)
	}
	defer func() { _ = obj.Close() }()
	raw, err := io.ReadAll(obj)
	if err != nil {
		if isMissing(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: read %q: %v", cache.ErrUnavailable, key, err)
	}
	return raw, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("%w: ensure bucket: %v", cache.ErrUnavailable, err)
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if value == nil {
		value = []byte{}
	}
	expiresAt := s.now().Add(ttl).UTC().Format(time.RFC3339)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: map[string]string{expiresAtMetaKey: expiresAt},
	})
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", cache.ErrUnavailable, key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return false, fmt.Errorf("%w: ensure bucket: %v", cache.ErrUnavailable, err)
	}
	info, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %q: %v", cache.ErrUnavailable, key, err)
	}
	return !s.expired(info), nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("%w: ensure bucket: %v", cache.ErrUnavailable, err)
	}
	keys := make([]string, 0, 16)
	for info := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Recursive: true, WithMetadata: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("%w: list objects: %v", cache.ErrUnavailable, info.Err)
		}
		if s.expired(info) {
			continue
		}
		keys = append(keys, info.Key)
	}
	return keys, nil
}

func (s *Store) Wipe(ctx context.Context) (int, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return 0, fmt.Errorf("%w: ensure bucket: %v", cache.ErrUnavailable, err)
	}
	count := 0
	for info := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			return count, fmt.Errorf("%w: list objects: %v", cache.ErrUnavailable, info.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucketName, info.Key, minio.RemoveObjectOptions{}); err != nil {
			return count, fmt.Errorf("%w: remove %q: %v", cache.ErrUnavailable, info.Key, err)
		}
		count++
	}
	return count, nil
}

// expired reads the Expires-At user metadata stamped by Set. Objects written
// by other tools carry no stamp and never expire here.
func (s *Store) expired(info minio.ObjectInfo) bool {
	raw := info.UserMetadata[expiresAtMetaKey]
	if raw == "" {
		raw = info.Metadata.Get("X-Amz-Meta-" + expiresAtMetaKey)
	}
	if raw == "" {
		return false
	}
	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return s.now().After(expiresAt)
}

func isMissing(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound
}
