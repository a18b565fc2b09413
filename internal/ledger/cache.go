package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedFinder remembers which signature settled a reference. A finalized
// transaction never changes, so a hit never needs to go back to the ledger.
// Redis failures fall through to the wrapped finder.
type CachedFinder struct {
	next   Finder
	client *redis.Client
	ttl    time.Duration
}

func NewCachedFinder(next Finder, client *redis.Client, ttl time.Duration) *CachedFinder {
	return &CachedFinder{
		next:   next,
		client: client,
		ttl:    ttl,
	}
}

func (c *CachedFinder) FindReference(ctx context.Context, reference string) (string, error) {
	key := cacheKey(reference)

	sig, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return sig, nil
	case !errors.Is(err, redis.Nil):
		zap.L().Warn("reference cache read failed", zap.String("reference", reference), zap.Error(err))
	}

	sig, err = c.next.FindReference(ctx, reference)
	if err != nil {
		return "", err
	}

	if err = c.client.Set(ctx, key, sig, c.ttl).Err(); err != nil {
		zap.L().Warn("reference cache write failed", zap.String("reference", reference), zap.Error(err))
	}

	return sig, nil
}

func cacheKey(reference string) string {
	return fmt.Sprintf("ledger:reference:%s", reference)
}
