package admission

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Counter records one hit for key and returns how many hits fall inside
// the trailing window, including this one.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// SlidingWindow keeps one sorted set per key with hit timestamps as scores.
type SlidingWindow struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewSlidingWindow(client redis.UniversalClient) *SlidingWindow {
	return &SlidingWindow{client: client, now: time.Now}
}

func (w *SlidingWindow) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := w.now()
	nowMicros := now.UnixMicro()
	cutoff := nowMicros - window.Microseconds()

	var card *redis.IntCmd
	_, err := w.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(nowMicros),
			Member: strconv.FormatInt(nowMicros, 10) + "-" + uuid.NewString(),
		})
		card = pipe.ZCard(ctx, key)
		pipe.PExpire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	return card.Val(), nil
}
