package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// LineCache holds order detail lines. Lines never change after checkout, so
// entries are only ever expired, never invalidated.
type LineCache interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) ([]LineDetail, bool)
	Set(ctx context.Context, userID, orderID uuid.UUID, lines []LineDetail)
}

type redisLineCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLineCache(client *redis.Client, ttl time.Duration) LineCache {
	return &redisLineCache{client: client, ttl: ttl}
}

func lineCacheKey(userID, orderID uuid.UUID) string {
	return fmt.Sprintf("order:lines:%s:%s", userID, orderID)
}

// Get treats every Redis failure as a miss.
func (c *redisLineCache) Get(ctx context.Context, userID, orderID uuid.UUID) ([]LineDetail, bool) {
	data, err := c.client.Get(ctx, lineCacheKey(userID, orderID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Stringer("order_id", orderID).Msg("cache: failed to read order lines")
		}
		return nil, false
	}

	var lines []LineDetail
	if err := json.Unmarshal(data, &lines); err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("cache: dropping undecodable order lines")
		return nil, false
	}
	return lines, true
}

func (c *redisLineCache) Set(ctx context.Context, userID, orderID uuid.UUID, lines []LineDetail) {
	payload, err := json.Marshal(lines)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, lineCacheKey(userID, orderID), payload, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("cache: failed to store order lines")
	}
}

type noopLineCache struct{}

func (noopLineCache) Get(context.Context, uuid.UUID, uuid.UUID) ([]LineDetail, bool) {
	return nil, false
}

func (noopLineCache) Set(context.Context, uuid.UUID, uuid.UUID, []LineDetail) {}
