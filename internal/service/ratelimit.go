package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func rateLimitKey(userID uuid.UUID, action string) string {
	return fmt.Sprintf("chat:rate:%s:%s", userID.String(), action)
}

// CheckAndSetRateLimit reserves one action slot per user per window using a
// single SetNX. A nil client means no redis is configured and everything is
// allowed.
func CheckAndSetRateLimit(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string, window time.Duration) (bool, error) {
	if rdb == nil {
		return true, nil
	}

	wasSet, err := rdb.SetNX(ctx, rateLimitKey(userID, action), "locked", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}
