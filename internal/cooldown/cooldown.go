package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Gate enforces a per-user cooldown between successful generation runs.
// A marker key with the cooldown window as its TTL is written only after a
// run fully succeeds; while the key lives, further runs are refused. The
// remaining TTL doubles as the retry-after hint for callers.
type Gate struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewRedisGate creates a Redis-backed cooldown gate.
func NewRedisGate(addr, password, prefix string, window time.Duration) (*Gate, error) {
	if window <= 0 {
		return nil, errors.New("cooldown gate requires a positive window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("cooldown gate redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "lifebook:cooldown"
	}
	return &Gate{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
		window: window,
	}, nil
}

// Window returns the configured cooldown duration.
func (g *Gate) Window() time.Duration {
	return g.window
}

// Remaining reports how long userID must still wait. Zero means the user is
// clear to run.
func (g *Gate) Remaining(ctx context.Context, userID string) (time.Duration, error) {
	ttl, err := g.client.PTTL(ctx, g.key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("cooldown lookup: %w", err)
	}
	// PTTL returns a negative duration when the key does not exist or has
	// no expiry.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// RecordSuccess starts the cooldown window for userID. Called only after a
// run has been fully persisted, so failed runs never consume the quota.
func (g *Gate) RecordSuccess(ctx context.Context, userID string) error {
	if err := g.client.Set(ctx, g.key(userID), time.Now().UTC().Format(time.RFC3339), g.window).Err(); err != nil {
		return fmt.Errorf("cooldown record: %w", err)
	}
	return nil
}

func (g *Gate) key(userID string) string {
	return g.prefix + ":" + strings.TrimSpace(userID)
}
