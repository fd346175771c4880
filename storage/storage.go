package storage

import (
	"context"
	"errors"
	"sync"

	"Jukebox/queue"
)

var ErrNotFound = errors.New("room not found")

// Backend persists room records keyed by room code. Every Save writes the
// complete record.
type Backend interface {
	Load(ctx context.Context, code string) (queue.SharedState, error)
	Save(ctx context.Context, state queue.SharedState) error
}

// Memory is a process-local Backend
type Memory struct {
	rooms map[string]queue.SharedState // Maps room code to its last saved record
	mu    sync.RWMutex                 // Mutex to protect concurrent access
}

func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]queue.SharedState)}
}

func (m *Memory) Load(_ context.Context, code string) (queue.SharedState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.rooms[code]
	if !ok {
		return queue.SharedState{}, ErrNotFound
	}
	return st.Clone(), nil
}

func (m *Memory) Save(_ context.Context, state queue.SharedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rooms[state.RoomCode] = state.Clone()
	return nil
}
