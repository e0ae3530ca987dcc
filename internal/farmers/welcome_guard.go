package farmers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// WelcomeGuard uses Redis SETNX to make the one-time welcome message
// best-effort single-send under concurrent webhook bursts from the same
// number. The welcome_sent column is the durable record; the guard only
// narrows the race window between read and write.
type WelcomeGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWelcomeGuard(client *redis.Client) *WelcomeGuard {
	return &WelcomeGuard{client: client, ttl: 24 * time.Hour}
}

// Acquire reports whether the caller won the right to send the welcome for
// this phone. Without Redis configured, every caller wins (the durable flag
// still stops repeats across separate messages).
func (g *WelcomeGuard) Acquire(ctx context.Context, phone string) bool {
	if g == nil || g.client == nil {
		return true
	}
	ok, err := g.client.SetNX(ctx, "welcome:"+phone, 1, g.ttl).Result()
	if err != nil {
		// Redis unavailable: fall back to the durable flag alone.
		return true
	}
	return ok
}

// Release frees the guard so a failed welcome send can be retried on the
// farmer's next message.
func (g *WelcomeGuard) Release(ctx context.Context, phone string) {
	if g == nil || g.client == nil {
		return
	}
	g.client.Del(ctx, "welcome:"+phone)
}
