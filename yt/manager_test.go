package yt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Jukebox/music"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLink = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestResolver_NonLinkUsesMockPolicy(t *testing.T) {
	r := NewResolver(nil, time.Hour)
	r.fetch = func(context.Context, string) (*Metadata, error) {
		t.Fatal("fetch should not be called")
		return nil, nil
	}

	track, err := r.Resolve(context.Background(), "A - X")
	require.NoError(t, err)
	assert.Equal(t, "A", track.Artist)
	assert.Equal(t, "X", track.Title)
	assert.Equal(t, music.FallbackURL, track.URL)
}

func TestResolver_FetchesAndCaches(t *testing.T) {
	client, mr := setupTestRedis(t)
	r := NewResolver(client, time.Hour)
	calls := 0
	r.fetch = func(_ context.Context, id string) (*Metadata, error) {
		calls++
		return &Metadata{ID: id, Title: "Never Gonna Give You Up", Author: "Rick Astley", Thumbnail: "https://img/thumb.jpg", Seconds: 213}, nil
	}
	ctx := context.Background()

	track, err := r.Resolve(ctx, testLink)
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", track.Title)
	assert.Equal(t, "Rick Astley", track.Artist)
	assert.Equal(t, testLink, track.URL)
	assert.Equal(t, "https://img/thumb.jpg", track.Cover)
	assert.Equal(t, "3:33", track.Duration)

	assert.True(t, mr.Exists("ytmeta:dQw4w9WgXcQ"))
	assert.Equal(t, time.Hour, mr.TTL("ytmeta:dQw4w9WgXcQ"))

	_, err = r.Resolve(ctx, "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestResolver_ReadsCachedMetadata(t *testing.T) {
	client, mr := setupTestRedis(t)
	data, _ := json.Marshal(Metadata{ID: "dQw4w9WgXcQ", Title: "Cached", Author: "Someone"})
	require.NoError(t, mr.Set("ytmeta:dQw4w9WgXcQ", string(data)))

	r := NewResolver(client, time.Hour)
	r.fetch = func(context.Context, string) (*Metadata, error) {
		return nil, errors.New("offline")
	}

	track, err := r.Resolve(context.Background(), testLink)
	require.NoError(t, err)
	assert.Equal(t, "Cached", track.Title)
	assert.Equal(t, "Someone", track.Artist)
	assert.Contains(t, music.Covers, track.Cover)
	assert.Equal(t, music.DefaultDuration, track.Duration)
}

func TestResolver_FallsBackOnFetchError(t *testing.T) {
	r := NewResolver(nil, time.Hour)
	r.fetch = func(context.Context, string) (*Metadata, error) {
		return nil, errors.New("video unavailable")
	}

	track, err := r.Resolve(context.Background(), testLink)
	require.NoError(t, err)
	assert.Equal(t, music.YouTubeTitle, track.Title)
	assert.Equal(t, music.YouTubeArtist, track.Artist)
	assert.Equal(t, testLink, track.URL)
}

func TestResolver_PlaylistQueries(t *testing.T) {
	r := NewResolver(nil, time.Hour)
	r.fetchPlaylist = func(context.Context, string) ([]string, error) {
		return []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}, nil
	}

	queries, err := r.PlaylistQueries(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.youtube.com/watch?v=aaaaaaaaaaa",
		"https://www.youtube.com/watch?v=bbbbbbbbbbb",
	}, queries)
}

func TestResolver_CollapsesConcurrentLookups(t *testing.T) {
	r := NewResolver(nil, time.Hour)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	r.fetch = func(_ context.Context, id string) (*Metadata, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return &Metadata{ID: id, Title: "Title"}, nil
	}

	var wg sync.WaitGroup
	results := make([]*Metadata, 5)
	for idx := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meta, err := r.GetVideoMetadata(context.Background(), "abc")
			assert.NoError(t, err)
			results[idx] = meta
		}()
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, meta := range results {
		require.NotNil(t, meta)
		assert.Equal(t, "Title", meta.Title)
	}
}
