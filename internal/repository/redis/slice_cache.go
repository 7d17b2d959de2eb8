package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key patterns for the latest-slice cache.
func sliceKey(matchID string) string { return "match:" + matchID + ":slice" }
func countKey(matchID string) string { return "match:" + matchID + ":slice_count" }

// SetLatestSlice stores the newest slice JSON for a match and bumps the
// slice counter. The web tier reads this instead of hitting Postgres for
// current state.
func (c *Client) SetLatestSlice(ctx context.Context, matchID string, slice json.RawMessage) error {
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, sliceKey(matchID), []byte(slice), 0)
	pipe.Incr(ctx, countKey(matchID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set latest slice: %w", err)
	}
	return nil
}

// GetLatestSlice retrieves the newest cached slice JSON, or nil when the
// match has no cached slice.
func (c *Client) GetLatestSlice(ctx context.Context, matchID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, sliceKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest slice: %w", err)
	}
	return json.RawMessage(data), nil
}

// SliceCount returns how many slices have been cached for a match.
func (c *Client) SliceCount(ctx context.Context, matchID string) (int64, error) {
	n, err := c.rdb.Get(ctx, countKey(matchID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("slice count: %w", err)
	}
	return n, nil
}

// DeleteMatchData removes all cached data for a match (on match end).
func (c *Client) DeleteMatchData(ctx context.Context, matchID string) error {
	if err := c.rdb.Del(ctx, sliceKey(matchID), countKey(matchID)).Err(); err != nil {
		return fmt.Errorf("delete match data: %w", err)
	}
	return nil
}
