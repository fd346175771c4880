package room

import (
	"sync"

	"Jukebox/notify"
	"Jukebox/storage"

	"github.com/google/uuid"
)

// Registry keeps the Stores of all connected viewers
type Registry struct {
	opts    Options
	viewers map[string]*Store // Maps viewer ID to its Store
	mu      sync.Mutex        // Mutex to protect concurrent access
}

// NewRegistry creates a Registry whose viewers share one backend and bus
func NewRegistry(opts Options) *Registry {
	if opts.Backend == nil {
		opts.Backend = storage.NewMemory()
	}
	if opts.Bus == nil {
		opts.Bus = notify.NewBus()
	}
	return &Registry{
		opts:    opts,
		viewers: make(map[string]*Store),
	}
}

// Open creates a viewer with a generated ID
func (r *Registry) Open() (string, *Store) {
	id := uuid.NewString()
	return id, r.OpenWithID(id)
}

// OpenWithID returns the viewer with id, creating it if needed
func (r *Registry) OpenWithID(id string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.viewers[id]; ok {
		return s
	}
	s := NewStore(r.opts)
	r.viewers[id] = s
	return s
}

// Get returns the viewer with id
func (r *Registry) Get(id string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.viewers[id]
	return s, ok
}

// Close removes the viewer with id and stops its updates
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.viewers[id]
	delete(r.viewers, id)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
}

// CloseAll removes every viewer
func (r *Registry) CloseAll() {
	r.mu.Lock()
	viewers := r.viewers
	r.viewers = make(map[string]*Store)
	r.mu.Unlock()

	for _, s := range viewers {
		s.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

// Bus is the notification bus shared by the viewers
func (r *Registry) Bus() *notify.Bus {
	return r.opts.Bus
}

// Backend is the persistence backend shared by the viewers
func (r *Registry) Backend() storage.Backend {
	return r.opts.Backend
}
