package music

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolveTestCase struct {
	query  string
	title  string
	artist string
	url    string
}

func TestMockResolver_Resolve(t *testing.T) {
	r := &MockResolver{Pick: func(n int) int { return n - 1 }}

	tests := []resolveTestCase{
		{"https://www.youtube.com/watch?v=abc123", YouTubeTitle, YouTubeArtist, "https://www.youtube.com/watch?v=abc123"},
		{"http://youtu.be/xyz", YouTubeTitle, YouTubeArtist, "http://youtu.be/xyz"},
		{"A - X", "X", "A", FallbackURL},
		{"Daft Punk - One More Time - Live", "One More Time - Live", "Daft Punk", FallbackURL},
		{"Z", "Z", RequestedArtist, FallbackURL},
	}

	for _, tt := range tests {
		track, err := r.Resolve(context.Background(), tt.query)
		require.NoError(t, err)
		assert.Equal(t, tt.title, track.Title, tt.query)
		assert.Equal(t, tt.artist, track.Artist, tt.query)
		assert.Equal(t, tt.url, track.URL, tt.query)
		assert.Equal(t, DefaultDuration, track.Duration)
		assert.Equal(t, Covers[len(Covers)-1], track.Cover)
	}
}

func TestMockResolver_RandomCover(t *testing.T) {
	r := &MockResolver{}
	for range 20 {
		track, _ := r.Resolve(context.Background(), "song")
		assert.Contains(t, Covers, track.Cover)
	}
}

func TestFallback(t *testing.T) {
	track := Fallback("Artist - Title")
	assert.Equal(t, "Artist", track.Artist)
	assert.Equal(t, "Title", track.Title)
	assert.Contains(t, Covers, track.Cover)
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, []string{
		"lofi - Original Mix",
		"lofi - Live Version",
		"Best of lofi",
		"lofi (Remix)",
	}, Suggest("  lofi "))

	assert.Nil(t, Suggest("https://youtube.com/watch?v=1"))
	assert.Nil(t, Suggest("   "))
}

func TestSuggest_TruncatesOnRuneBoundary(t *testing.T) {
	suggestions := Suggest(strings.Repeat("é", maxSuggestionLen+50))
	require.Len(t, suggestions, 4)

	first := suggestions[0]
	assert.True(t, utf8.ValidString(first))
	assert.Equal(t, maxSuggestionLen+utf8.RuneCountInString(" - Original Mix"), utf8.RuneCountInString(first))
}
