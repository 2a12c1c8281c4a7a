package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores fetched bodies keyed by URL.
type Cache interface {
	// Get returns the cached body if one exists and is at most maxAge old.
	Get(ctx context.Context, url string, maxAge time.Duration) ([]byte, bool, error)
	Put(ctx context.Context, url string, body []byte) error
}

// Key is the cache key for url: the hex SHA-256 of the URL text.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// DiskCache keeps one file per URL; the file's modification time is its age.
type DiskCache struct {
	dir string
	now func() time.Time
}

func NewDiskCache(dir string) *DiskCache {
	return &DiskCache{dir: dir, now: time.Now}
}

func (c *DiskCache) path(url string) string {
	return filepath.Join(c.dir, Key(url)+".cache")
}

func (c *DiskCache) Get(_ context.Context, url string, maxAge time.Duration) ([]byte, bool, error) {
	p := c.path(url)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to stat cache entry: %w", err)
	}
	if c.now().Sub(info.ModTime()) > maxAge {
		return nil, false, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return data, true, nil
}

// Put writes through a temporary file so readers never observe a partial body.
func (c *DiskCache) Put(_ context.Context, url string, body []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, "fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(url)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

const redisKeyPrefix = "korting:fetch:"

// RedisCache shares fetched bodies between instances. Each entry is a hash
// holding the body and its fetch time; entries expire after ttl.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, now: time.Now}
}

func redisKey(url string) string {
	return redisKeyPrefix + Key(url)
}

func (c *RedisCache) Get(ctx context.Context, url string, maxAge time.Duration) ([]byte, bool, error) {
	fields, err := c.client.HGetAll(ctx, redisKey(url)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached body: %w", err)
	}
	body, ok := fields["body"]
	if !ok {
		return nil, false, nil
	}
	fetchedAt, err := strconv.ParseInt(fields["fetched_at"], 10, 64)
	if err != nil {
		return nil, false, nil
	}
	if c.now().Sub(time.Unix(fetchedAt, 0)) > maxAge {
		return nil, false, nil
	}
	return []byte(body), true, nil
}

func (c *RedisCache) Put(ctx context.Context, url string, body []byte) error {
	key := redisKey(url)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, "body", body, "fetched_at", strconv.FormatInt(c.now().Unix(), 10))
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache body: %w", err)
	}
	return nil
}
