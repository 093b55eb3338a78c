package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink keeps lobby counters and a capped list of recent pairings.
//
//	<prefix>:stats           HASH  kind -> count
//	<prefix>:recent_matches  LIST  newest match_found events first
type RedisSink struct {
	rdb       *redis.Client
	prefix    string
	recentMax int64
}

func NewRedisSink(rdb *redis.Client, prefix string, recentMax int) *RedisSink {
	if recentMax <= 0 {
		recentMax = 100
	}
	return &RedisSink{rdb: rdb, prefix: prefix, recentMax: int64(recentMax)}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) StatsKey() string  { return s.prefix + ":stats" }
func (s *RedisSink) RecentKey() string { return s.prefix + ":recent_matches" }

func (s *RedisSink) Deliver(ctx context.Context, e Event) error {
	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, s.StatsKey(), string(e.Kind), 1)
	if e.Kind == KindMatchFound {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", e.Kind, err)
		}
		pipe.LPush(ctx, s.RecentKey(), b)
		pipe.LTrim(ctx, s.RecentKey(), 0, s.recentMax-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record %s event: %w", e.Kind, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (s *RedisSink) Close() error { return nil }
