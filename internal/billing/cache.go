package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// DefaultCacheTTL keeps provider reads briefly so a page render does not hit the provider repeatedly.
const DefaultCacheTTL = 30 * time.Second

// CachingProvider is a Redis read-through cache in front of another Provider.
// Cache failures fall through to the wrapped provider; provider errors are never cached.
type CachingProvider struct {
	next   Provider
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCachingProvider wraps next with a Redis cache. The caller owns client.
func NewCachingProvider(next Provider, client *redis.Client, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingProvider{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: "orgkeeper:billing",
	}
}

// NewRedisClient connects to the Redis server at redisURL and checks it responds.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *CachingProvider) key(kind, accountRef string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, kind, accountRef)
}

func (c *CachingProvider) ListSubscriptions(ctx context.Context, accountRef string) ([]models.Subscription, error) {
	return cached(ctx, c, c.key("subscriptions", accountRef), func(ctx context.Context) ([]models.Subscription, error) {
		return c.next.ListSubscriptions(ctx, accountRef)
	})
}

func (c *CachingProvider) ListUpcomingLineItems(ctx context.Context, accountRef string) ([]models.LineItem, error) {
	return cached(ctx, c, c.key("lines", accountRef), func(ctx context.Context) ([]models.LineItem, error) {
		return c.next.ListUpcomingLineItems(ctx, accountRef)
	})
}

func (c *CachingProvider) ListUpcomingTaxes(ctx context.Context, accountRef string) ([]models.TaxLine, error) {
	return cached(ctx, c, c.key("taxes", accountRef), func(ctx context.Context) ([]models.TaxLine, error) {
		return c.next.ListUpcomingTaxes(ctx, accountRef)
	})
}

// Invalidate drops every cached read of accountRef.
func (c *CachingProvider) Invalidate(ctx context.Context, accountRef string) error {
	return c.client.Del(ctx,
		c.key("subscriptions", accountRef),
		c.key("lines", accountRef),
		c.key("taxes", accountRef),
	).Err()
}

func cached[T any](ctx context.Context, c *CachingProvider, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	log := zerolog.Ctx(ctx)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v []T
		if uerr := json.Unmarshal(data, &v); uerr == nil {
			return v, nil
		}
		log.Warn().Str("key", key).Msg("discarding corrupt billing cache entry")
		_ = c.client.Del(ctx, key).Err()
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("key", key).Msg("billing cache read failed")
	}

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("billing cache write failed")
	}

	return v, nil
}
