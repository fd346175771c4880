package queue

import (
	"encoding/json"
	"slices"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

type Song struct {
	ID       string   `json:"id"`       // Unique song identifier
	Title    string   `json:"title"`    // Display title
	Artist   string   `json:"artist"`   // Display artist
	URL      string   `json:"url"`      // Playable media reference
	Votes    int      `json:"votes"`    // Number of active up-votes
	AddedBy  string   `json:"addedBy"`  // Username of who added the song
	Duration string   `json:"duration"` // Display duration
	Cover    string   `json:"cover"`    // Cover image URL
	VotedBy  []string `json:"votedBy"`  // Usernames with an active up-vote
}

// HasVoted reports whether username currently has an active vote on the song
func (s *Song) HasVoted(username string) bool {
	return slices.Contains(s.VotedBy, username)
}

// Clone returns a deep copy of the song
func (s *Song) Clone() *Song {
	if s == nil {
		return nil
	}
	c := *s
	c.VotedBy = slices.Clone(s.VotedBy)
	if c.VotedBy == nil {
		c.VotedBy = []string{}
	}
	return &c
}

// SharedState is the part of a room every viewer must agree on
type SharedState struct {
	RoomCode   string  // Room code, empty when no room is active
	Queue      []*Song // Songs waiting to be played, highest votes first
	NowPlaying *Song   // Currently playing song
}

// NewSharedState returns an empty room with the given code
func NewSharedState(code string) SharedState {
	return SharedState{RoomCode: code, Queue: []*Song{}}
}

// Clone returns a deep copy of the state
func (st SharedState) Clone() SharedState {
	out := SharedState{
		RoomCode:   st.RoomCode,
		Queue:      make([]*Song, 0, len(st.Queue)),
		NowPlaying: st.NowPlaying.Clone(),
	}
	for _, song := range st.Queue {
		out.Queue = append(out.Queue, song.Clone())
	}
	return out
}

type record struct {
	RoomCode   *string `json:"roomCode"`
	Queue      []*Song `json:"queue"`
	NowPlaying *Song   `json:"nowPlaying"`
}

// MarshalJSON encodes the state as the persisted room record
func (st SharedState) MarshalJSON() ([]byte, error) {
	rec := record{Queue: st.Queue, NowPlaying: st.NowPlaying}
	if rec.Queue == nil {
		rec.Queue = []*Song{}
	}
	if st.RoomCode != "" {
		code := st.RoomCode
		rec.RoomCode = &code
	}
	return json.Marshal(rec)
}

// UnmarshalJSON decodes a persisted room record
func (st *SharedState) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	st.RoomCode = ""
	if rec.RoomCode != nil {
		st.RoomCode = *rec.RoomCode
	}
	st.Queue = rec.Queue
	if st.Queue == nil {
		st.Queue = []*Song{}
	}
	st.NowPlaying = rec.NowPlaying
	for _, song := range st.Queue {
		if song.VotedBy == nil {
			song.VotedBy = []string{}
		}
	}
	if st.NowPlaying != nil && st.NowPlaying.VotedBy == nil {
		st.NowPlaying.VotedBy = []string{}
	}
	return nil
}

// Sort orders the queue by votes descending, keeping the order of ties
func (st *SharedState) Sort() {
	slices.SortStableFunc(st.Queue, func(a, b *Song) int {
		return b.Votes - a.Votes
	})
}

// IndexOf returns the queue position of songID or -1
func (st *SharedState) IndexOf(songID string) int {
	return slices.IndexFunc(st.Queue, func(s *Song) bool {
		return s.ID == songID
	})
}

// Enqueue appends a song and re-sorts the queue
func (st *SharedState) Enqueue(songs ...*Song) {
	st.Queue = append(st.Queue, songs...)
	st.Sort()
}

// Vote applies a vote by username to the queued song with songID.
// Up toggles the user's vote, Down only ever removes an existing vote.
// It reports whether anything changed.
func (st *SharedState) Vote(songID string, dir Direction, username string) bool {
	if username == "" {
		return false
	}
	idx := st.IndexOf(songID)
	if idx < 0 {
		return false
	}
	song := st.Queue[idx]
	voted := song.HasVoted(username)

	switch {
	case voted && (dir == Up || dir == Down):
		song.VotedBy = slices.DeleteFunc(song.VotedBy, func(u string) bool {
			return u == username
		})
	case !voted && dir == Up:
		song.VotedBy = append(song.VotedBy, username)
	default:
		return false
	}
	song.Votes = len(song.VotedBy)

	st.Sort()
	return true
}

// PopNext moves the head of the queue into NowPlaying.
// It does nothing and returns false when the queue is empty.
func (st *SharedState) PopNext() bool {
	if len(st.Queue) == 0 {
		return false
	}
	st.NowPlaying = st.Queue[0]
	st.Queue = slices.Delete(st.Queue, 0, 1)
	return true
}
