package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
)

// EmbedCache is an optional TTL'd cache for query embeddings. Menu queries
// repeat heavily (same age, same phrasing), so a hit skips an embedding call.
type EmbedCache struct {
	rdb *redis.Client
	log *logger.Logger
	ttl time.Duration
}

// NewEmbedCacheFromEnv returns nil when REDIS_ADDR is unset; the retriever
// treats a nil cache as a pass-through.
func NewEmbedCacheFromEnv(log *logger.Logger) (*EmbedCache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &EmbedCache{
		rdb: rdb,
		log: log.With("service", "EmbedCache"),
		ttl: 24 * time.Hour,
	}, nil
}

func cacheKey(model, query string) string {
	sum := sha256.Sum256([]byte(model + "|" + query))
	return "mpasi:embed:" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector for a query, or nil on miss or cache error.
func (c *EmbedCache) Get(ctx context.Context, model, query string) []float32 {
	if c == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, cacheKey(model, query)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("Embed cache read failed", "error", err)
		}
		return nil
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil
	}
	return vec
}

// Put stores a query vector; failures are logged and swallowed, the cache is
// never load-bearing.
func (c *EmbedCache) Put(ctx context.Context, model, query string, vec []float32) {
	if c == nil || len(vec) == 0 {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(model, query), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Embed cache write failed", "error", err)
	}
}
