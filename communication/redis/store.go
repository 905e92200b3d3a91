package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"landbid/game"
	"landbid/gamemaster"
)

// Key patterns for a match.
func snapshotKey(matchID string) string { return "match:" + matchID + ":snapshot" }
func eventsKey(matchID string) string   { return "match:" + matchID + ":events" }
func movesKey(matchID string) string    { return "match:" + matchID + ":moves" }

// Store mirrors a live match into Redis: the latest update under a key, every
// update on a pub/sub channel and the moves in a list.
type Store struct {
	rdb     *goredis.Client
	matchID string
	ttl     time.Duration
}

// NewStore connects to redisURL.
func NewStore(ctx context.Context, redisURL, matchID string) (*Store, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb, matchID: matchID, ttl: 24 * time.Hour}, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) MatchID() string {
	return s.matchID
}

func (s *Store) Publish(ctx context.Context, u gamemaster.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, snapshotKey(s.matchID), data, s.ttl)
	if u.LastMove != nil {
		move, err := json.Marshal(u.LastMove)
		if err != nil {
			return fmt.Errorf("encode move: %w", err)
		}
		pipe.RPush(ctx, movesKey(s.matchID), move)
		pipe.Expire(ctx, movesKey(s.matchID), s.ttl)
	}
	pipe.Publish(ctx, eventsKey(s.matchID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish update of match %s: %w", s.matchID, err)
	}
	return nil
}

// Snapshot returns the latest update; ok is false if none was published.
func (s *Store) Snapshot(ctx context.Context) (u gamemaster.Update, ok bool, err error) {
	data, err := s.rdb.Get(ctx, snapshotKey(s.matchID)).Bytes()
	if err == goredis.Nil {
		return u, false, nil
	}
	if err != nil {
		return u, false, fmt.Errorf("get snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &u); err != nil {
		return u, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return u, true, nil
}

// Moves returns the placements recorded so far, oldest first.
func (s *Store) Moves(ctx context.Context) ([]game.Placement, error) {
	items, err := s.rdb.LRange(ctx, movesKey(s.matchID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get moves: %w", err)
	}
	moves := make([]game.Placement, len(items))
	for i, item := range items {
		if err := json.Unmarshal([]byte(item), &moves[i]); err != nil {
			return nil, fmt.Errorf("decode move %d: %w", i, err)
		}
	}
	return moves, nil
}

// Subscribe delivers published updates until ctx is done.
func (s *Store) Subscribe(ctx context.Context, handle func(gamemaster.Update)) error {
	sub := s.rdb.Subscribe(ctx, eventsKey(s.matchID))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to match %s: %w", s.matchID, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var u gamemaster.Update
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			handle(u)
		}
	}
}

// Clear removes every key of the match.
func (s *Store) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, snapshotKey(s.matchID), movesKey(s.matchID)).Err()
}
