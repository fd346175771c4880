package playlist

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"Jukebox/music"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     map[string]bool
}

func (f *fakeResolver) Resolve(_ context.Context, query string) (music.Track, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if f.fail[query] {
		return music.Track{}, errors.New("lookup failed")
	}
	return music.Track{Title: query}, nil
}

func titles(tracks []music.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.Title)
	}
	return out
}

func TestResolveAll_KeepsOrder(t *testing.T) {
	r := &fakeResolver{}
	queries := []string{"a", "b", "c", "d", "e", "f"}

	tracks, err := ResolveAll(context.Background(), r, queries, 2)
	require.NoError(t, err)
	assert.Equal(t, queries, titles(tracks))
	assert.LessOrEqual(t, r.peak.Load(), int32(2))
}

func TestResolveAll_SkipsBlankAndFailed(t *testing.T) {
	r := &fakeResolver{fail: map[string]bool{"bad": true}}

	tracks, err := ResolveAll(context.Background(), r, []string{"a", "  ", "bad", "c"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, titles(tracks))
}

func TestResolveAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ResolveAll(ctx, &fakeResolver{}, []string{"a", "b"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
