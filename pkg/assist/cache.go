package assist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

// Cache stores drafts by key. Get reports ok=false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedDrafter serves repeated drafts for the same email and tone from a
// Cache. Cache failures are logged and bypassed. Template drafts written
// while the model was failing are not cached, so the next request retries it.
type CachedDrafter struct {
	inner Drafter
	cache Cache
	ttl   time.Duration
	log   *logrus.Logger
}

func NewCachedDrafter(inner Drafter, cache Cache, ttl time.Duration, log *logrus.Logger) *CachedDrafter {
	return &CachedDrafter{inner: inner, cache: cache, ttl: ttl, log: log}
}

func draftKey(emailID string, tone Tone) string {
	return "dayboard:draft:" + emailID + ":" + string(tone)
}

func (d *CachedDrafter) Draft(ctx context.Context, email *model.Email, customer *model.CustomerProfile, tone Tone) (string, error) {
	key := draftKey(email.ID, tone)
	if v, ok, err := d.cache.Get(ctx, key); err != nil {
		d.log.WithContext(ctx).WithError(err).Warn("draft cache read failed")
	} else if ok {
		return v, nil
	}

	noted, fallback := withFallbackNote(ctx)
	draft, err := d.inner.Draft(noted, email, customer, tone)
	if err != nil {
		return "", err
	}
	if fallback.used.Load() {
		return draft, nil
	}
	if err := d.cache.Set(ctx, key, draft, d.ttl); err != nil {
		d.log.WithContext(ctx).WithError(err).Warn("draft cache write failed")
	}
	return draft, nil
}

// RedisCache keeps drafts in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisCache{client: redis.NewClient(opt)}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// MemoryCache is the in-process Cache used when no Redis is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   string
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value and drops every entry that has already expired.
func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	c.entries[key] = e
	return nil
}
