package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisProvider wraps the shared client. It backs cross-restart event
// deduplication and the health check; the stats caches themselves stay
// in-process. Constructed best-effort: a dead redis at startup is logged,
// not fatal, and callers treat a nil provider as "no redis".
type RedisProvider struct {
	Client *redis.Client
	URL    string
	logger *zap.SugaredLogger
}

func NewRedisProvider(redisURL string, logger *zap.Logger) *RedisProvider {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{
			Addr: redisURL,
			DB:   0,
		}
	}

	client := redis.NewClient(opts)
	client.Options().MaxRetries = 3
	client.Options().MinRetryBackoff = 100 * time.Millisecond
	client.Options().MaxRetryBackoff = 500 * time.Millisecond

	provider := &RedisProvider{
		Client: client,
		URL:    redisURL,
		logger: logger.Sugar(),
	}

	go provider.startConnectionMonitor(context.Background())

	if err := client.Ping(context.Background()).Err(); err != nil {
		provider.logger.Errorw("Redis connection failed at startup", "error", err)
	} else {
		provider.logger.Infow("Redis connected", "url", redisURL, "db", opts.DB)
	}

	return provider
}

// SetNX returns true when the key was newly set, false when it already
// existed.
func (r *RedisProvider) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, key, value, ttl).Result()
}

func (r *RedisProvider) startConnectionMonitor(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var wasConnected bool

	if err := r.Client.Ping(ctx).Err(); err == nil {
		wasConnected = true
	} else {
		r.logger.Warnw("Redis unavailable at startup", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := r.Client.Ping(ctx).Err()
			if err != nil {
				if wasConnected {
					r.logger.Errorw("Redis disconnected", "error", err)
					wasConnected = false
				}
			} else {
				if !wasConnected {
					r.logger.Infow("Redis reconnected", "url", r.URL)
					wasConnected = true
				}
			}
		}
	}
}
