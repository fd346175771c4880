package room

import (
	"context"
	"errors"
	"sync"

	"Jukebox/music"
	"Jukebox/notify"
	"Jukebox/playlist"
	"Jukebox/queue"
	"Jukebox/storage"

	"github.com/Strum355/log"
	"github.com/google/uuid"
)

var ErrRoomNotFound = errors.New("room not found")

// Options are the collaborators a Store is built with
type Options struct {
	Backend      storage.Backend
	Bus          *notify.Bus
	Resolver     music.Resolver
	StrictJoin   bool          // Unknown codes fail to join instead of creating a local room
	CodeAttempts int           // Tries to find a room code not already in use
	Concurrency  int           // Parallel resolutions for batch adds
	NewCode      func() string // Room code generator, defaults to NewCode
}

// View is a snapshot of everything a viewer sees
type View struct {
	RoomCode   string        `json:"roomCode"`
	Queue      []*queue.Song `json:"queue"`
	NowPlaying *queue.Song   `json:"nowPlaying"`
	IsHost     bool          `json:"isHost"`
	Username   string        `json:"username"`
}

// Store owns one viewer's copy of the shared room state and its local state.
// It is the only writer of the persisted record for the viewer's changes.
// Writes go through Bus.Commit, so all Stores sharing a bus apply, persist and
// notify their changes one at a time.
type Store struct {
	id   string
	opts Options

	mu       sync.Mutex // Protects shared, isHost and username
	shared   queue.SharedState
	isHost   bool
	username string

	unsubscribe func()
}

// NewStore creates a viewer Store and subscribes it to the bus
func NewStore(opts Options) *Store {
	if opts.Backend == nil {
		opts.Backend = storage.NewMemory()
	}
	if opts.Bus == nil {
		opts.Bus = notify.NewBus()
	}
	if opts.Resolver == nil {
		opts.Resolver = &music.MockResolver{}
	}
	if opts.CodeAttempts <= 0 {
		opts.CodeAttempts = 1
	}
	if opts.NewCode == nil {
		opts.NewCode = NewCode
	}

	s := &Store{
		id:     uuid.NewString(),
		opts:   opts,
		shared: queue.NewSharedState(""),
	}
	s.unsubscribe = opts.Bus.Subscribe(s.onUpdate)
	return s
}

// ID identifies the Store as an observer on the bus
func (s *Store) ID() string {
	return s.id
}

// Close stops receiving updates from other observers
func (s *Store) Close() {
	s.unsubscribe()
}

func (s *Store) onUpdate(u notify.Update) {
	if u.Origin == s.id {
		return
	}
	s.mu.Lock()
	current := s.shared.RoomCode
	s.mu.Unlock()
	if current == "" || current != u.State.RoomCode {
		return
	}
	s.SyncFromExternal(u.State)
}

// SyncFromExternal replaces the shared state with a snapshot written by
// another observer. Local state is left untouched.
func (s *Store) SyncFromExternal(state queue.SharedState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared = state.Clone()
}

// View returns a snapshot of the shared and local state
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.shared.Clone()
	return View{
		RoomCode:   st.RoomCode,
		Queue:      st.Queue,
		NowPlaying: st.NowPlaying,
		IsHost:     s.isHost,
		Username:   s.username,
	}
}

// CreateRoom starts a fresh room hosted by this viewer
func (s *Store) CreateRoom(ctx context.Context, username string) string {
	code := s.freeCode(ctx)

	s.mutate(ctx, func(st *queue.SharedState) bool {
		*st = queue.NewSharedState(code)
		s.isHost = true
		s.username = username
		return true
	})

	log.WithContext(ctx).Info("Room created " + code)
	return code
}

func (s *Store) freeCode(ctx context.Context) string {
	var code string
	for range s.opts.CodeAttempts {
		code = s.opts.NewCode()
		_, err := s.opts.Backend.Load(ctx, code)
		if errors.Is(err, storage.ErrNotFound) {
			return code
		}
		if err != nil {
			log.WithError(err).Error("Failed to check room code " + code)
			return code
		}
	}
	log.WithContext(ctx).Info("No unused room code found, overwriting " + code)
	return code
}

// JoinRoom adopts the room with code as a guest. Unknown codes become an
// empty local room unless StrictJoin is set.
func (s *Store) JoinRoom(ctx context.Context, code, username string) error {
	var joinErr error
	// Loading inside a commit keeps updates to the room from slipping in
	// between the load and the switch
	s.opts.Bus.Commit(func() (notify.Update, bool) {
		loaded, err := s.opts.Backend.Load(ctx, code)
		found := err == nil && loaded.RoomCode == code
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.WithError(err).Error("Failed to load room " + code)
		}

		if !found && s.opts.StrictJoin {
			joinErr = ErrRoomNotFound
			return notify.Update{}, false
		}
		if !found {
			loaded = queue.NewSharedState(code)
		}

		s.mu.Lock()
		s.shared = loaded
		s.isHost = false
		s.username = username
		s.mu.Unlock()
		return notify.Update{}, false
	})
	if joinErr != nil {
		return joinErr
	}

	log.WithContext(ctx).Info("Joined room " + code)
	return nil
}

// AddSong resolves query and queues it with the viewer's vote
func (s *Store) AddSong(ctx context.Context, query string) (*queue.Song, error) {
	track, err := s.opts.Resolver.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	var added *queue.Song
	s.mutate(ctx, func(st *queue.SharedState) bool {
		song := newSong(track, s.username)
		st.Enqueue(song)
		added = song.Clone()
		return true
	})
	return added, nil
}

// AddSongs resolves all queries and queues them in input order with a single
// write
func (s *Store) AddSongs(ctx context.Context, queries []string) ([]*queue.Song, error) {
	tracks, err := playlist.ResolveAll(ctx, s.opts.Resolver, queries, s.opts.Concurrency)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	added := make([]*queue.Song, 0, len(tracks))
	s.mutate(ctx, func(st *queue.SharedState) bool {
		songs := make([]*queue.Song, 0, len(tracks))
		for _, track := range tracks {
			song := newSong(track, s.username)
			songs = append(songs, song)
			added = append(added, song.Clone())
		}
		st.Enqueue(songs...)
		return true
	})
	return added, nil
}

func newSong(track music.Track, username string) *queue.Song {
	return &queue.Song{
		ID:       uuid.NewString(),
		Title:    track.Title,
		Artist:   track.Artist,
		URL:      track.URL,
		Votes:    1,
		AddedBy:  username,
		Duration: track.Duration,
		Cover:    track.Cover,
		VotedBy:  []string{username},
	}
}

// Vote applies the viewer's vote to a queued song. It reports whether the
// vote changed anything.
func (s *Store) Vote(ctx context.Context, songID string, dir queue.Direction) bool {
	return s.mutate(ctx, func(st *queue.SharedState) bool {
		return st.Vote(songID, dir, s.username)
	})
}

// Advance moves the highest voted song to now playing. The previous now
// playing song is discarded. It reports whether a song was advanced.
func (s *Store) Advance(ctx context.Context) bool {
	return s.mutate(ctx, func(st *queue.SharedState) bool {
		return st.PopNext()
	})
}

// Skip drops the current song and plays the next one
func (s *Store) Skip(ctx context.Context) bool {
	return s.Advance(ctx)
}

// EnsurePlaying starts the queue on the host's player when nothing is playing
func (s *Store) EnsurePlaying(ctx context.Context) bool {
	return s.mutate(ctx, func(st *queue.SharedState) bool {
		if !s.isHost || st.NowPlaying != nil {
			return false
		}
		return st.PopNext()
	})
}

// mutate applies fn to the shared state and, if it reports a change, persists
// the new record and notifies the other observers. A failed write is logged
// and the local change is kept.
func (s *Store) mutate(ctx context.Context, fn func(st *queue.SharedState) bool) bool {
	changed := false
	s.opts.Bus.Commit(func() (notify.Update, bool) {
		s.mu.Lock()
		if !fn(&s.shared) {
			s.mu.Unlock()
			return notify.Update{}, false
		}
		changed = true
		snapshot := s.shared.Clone()
		s.mu.Unlock()

		if err := s.opts.Backend.Save(ctx, snapshot); err != nil {
			log.WithError(err).Error("Failed to persist room " + snapshot.RoomCode)
			return notify.Update{}, false
		}
		return notify.Update{Origin: s.id, State: snapshot}, true
	})
	return changed
}
