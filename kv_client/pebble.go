package kv_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"Jukebox/queue"
	"Jukebox/storage"

	"github.com/cockroachdb/pebble/v2"
)

const roomKeyPrefix = "room/"

// RoomBackend keeps room records in a local Pebble database
type RoomBackend struct {
	db *pebble.DB
}

// Open opens or creates the Pebble database in dir
func Open(dir string) (*RoomBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pebble dir: %w", err)
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}
	return &RoomBackend{db: db}, nil
}

func (b *RoomBackend) Load(_ context.Context, code string) (queue.SharedState, error) {
	data, closer, err := b.db.Get(roomKey(code))
	if errors.Is(err, pebble.ErrNotFound) {
		return queue.SharedState{}, storage.ErrNotFound
	}
	if err != nil {
		return queue.SharedState{}, fmt.Errorf("get room %s: %w", code, err)
	}
	defer closer.Close()

	var st queue.SharedState
	if err := json.Unmarshal(data, &st); err != nil {
		return queue.SharedState{}, fmt.Errorf("decode room %s: %w", code, err)
	}
	return st, nil
}

func (b *RoomBackend) Save(_ context.Context, state queue.SharedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", state.RoomCode, err)
	}
	if err := b.db.Set(roomKey(state.RoomCode), data, pebble.Sync); err != nil {
		return fmt.Errorf("set room %s: %w", state.RoomCode, err)
	}
	return nil
}

func (b *RoomBackend) Close() error {
	return b.db.Close()
}

func roomKey(code string) []byte {
	return []byte(roomKeyPrefix + code)
}
