package notify

import (
	"sync"

	"Jukebox/queue"
)

// Update is a change notification carrying the full new room record
type Update struct {
	Origin string            // Observer that wrote the record
	Remote bool              // True if the update arrived from another instance
	State  queue.SharedState // Complete record after the write
}

type Listener func(Update)

type subscription struct {
	id int
	fn Listener
}

// Bus delivers updates synchronously to every listener, in subscription
// order. Publishes are serialized so listeners see updates in the order
// they were published.
type Bus struct {
	mu        sync.Mutex // Protects subs and next
	deliverMu sync.Mutex // Serializes deliveries and commits
	subs      []subscription
	next      int
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function removing it.
// It must not be called from inside a listener.
func (b *Bus) Subscribe(fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers u to all current listeners, each getting its own copy of
// the state
func (b *Bus) Publish(u Update) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()
	b.deliver(u)
}

// Commit runs write while holding the delivery lock and publishes the update
// it returns, unless it reports false. Writes committed through one Bus are
// therefore delivered in the order they were made, and no delivery interleaves
// with a write. write must not call Publish or Commit.
func (b *Bus) Commit(write func() (Update, bool)) bool {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	u, ok := write()
	if !ok {
		return false
	}
	b.deliver(u)
	return true
}

func (b *Bus) deliver(u Update) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(Update{Origin: u.Origin, Remote: u.Remote, State: u.State.Clone()})
	}
}

// Len returns the number of listeners
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
