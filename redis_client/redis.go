package redis_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Jukebox/queue"
	"Jukebox/storage"

	"github.com/redis/go-redis/v9"
)

const roomKeyPrefix = "jukebox:room:"

// NewClient connects to Redis at addr and checks the connection
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RoomBackend stores room records as JSON strings in Redis
type RoomBackend struct {
	rdb *redis.Client
	ttl time.Duration // Expiry of an idle room, zero keeps rooms forever
}

func NewRoomBackend(rdb *redis.Client, ttl time.Duration) *RoomBackend {
	return &RoomBackend{rdb: rdb, ttl: ttl}
}

func (b *RoomBackend) Load(ctx context.Context, code string) (queue.SharedState, error) {
	data, err := b.rdb.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return queue.SharedState{}, storage.ErrNotFound
	}
	if err != nil {
		return queue.SharedState{}, fmt.Errorf("get room %s: %w", code, err)
	}

	var st queue.SharedState
	if err := json.Unmarshal(data, &st); err != nil {
		return queue.SharedState{}, fmt.Errorf("decode room %s: %w", code, err)
	}
	return st, nil
}

func (b *RoomBackend) Save(ctx context.Context, state queue.SharedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", state.RoomCode, err)
	}
	if err := b.rdb.Set(ctx, roomKey(state.RoomCode), data, b.ttl).Err(); err != nil {
		return fmt.Errorf("set room %s: %w", state.RoomCode, err)
	}
	return nil
}

func roomKey(code string) string {
	return roomKeyPrefix + code
}
