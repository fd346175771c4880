package music

import (
	"context"
	"math/rand/v2"
	"strings"
)

const (
	FallbackURL      = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	DefaultDuration  = "3:00"
	YouTubeTitle     = "YouTube Track"
	YouTubeArtist    = "YouTube"
	RequestedArtist  = "Requested Track"
	maxSuggestionLen = 200
)

// Covers are the placeholder cover images songs are given
var Covers = []string{
	"https://images.unsplash.com/photo-1614613535308-eb5fbd3d2c17?w=300&h=300&fit=crop",
	"https://images.unsplash.com/photo-1493225255756-d9584f8606e9?w=300&h=300&fit=crop",
	"https://images.unsplash.com/photo-1514525253440-b393452e8d26?w=300&h=300&fit=crop",
	"https://images.unsplash.com/photo-1470225620780-dba8ba36b745?w=300&h=300&fit=crop",
}

// Track is the playable content a query resolved to
type Track struct {
	Title    string
	Artist   string
	URL      string
	Cover    string
	Duration string
}

// Resolver turns a free-text query or link into a Track
type Resolver interface {
	Resolve(ctx context.Context, query string) (Track, error)
}

// IsYouTubeLink reports whether query looks like a YouTube video link
func IsYouTubeLink(query string) bool {
	return strings.Contains(query, "youtube.com") || strings.Contains(query, "youtu.be")
}

// MockResolver resolves queries without any lookup
type MockResolver struct {
	// Pick returns an index in [0, n). Defaults to a uniform random pick.
	Pick func(n int) int
}

func (m *MockResolver) Resolve(_ context.Context, query string) (Track, error) {
	return m.resolve(query), nil
}

func (m *MockResolver) resolve(query string) Track {
	track := Track{
		Cover:    m.cover(),
		Duration: DefaultDuration,
	}

	if IsYouTubeLink(query) {
		track.Title = YouTubeTitle
		track.Artist = YouTubeArtist
		track.URL = query
		return track
	}

	track.Title = query
	track.Artist = RequestedArtist
	if artist, title, ok := strings.Cut(query, "-"); ok {
		track.Artist = strings.TrimSpace(artist)
		track.Title = strings.TrimSpace(title)
	}
	track.URL = FallbackURL
	return track
}

// Cover picks a placeholder cover image
func (m *MockResolver) cover() string {
	pick := rand.IntN
	if m != nil && m.Pick != nil {
		pick = m.Pick
	}
	return Covers[pick(len(Covers))]
}

// Fallback resolves query with the mock policy, used when a real lookup fails
func Fallback(query string) Track {
	var m *MockResolver
	return m.resolve(query)
}

// Suggest returns mock search results for a query.
// Links are added directly so they get no suggestions.
func Suggest(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" || IsYouTubeLink(query) {
		return nil
	}
	if runes := []rune(query); len(runes) > maxSuggestionLen {
		query = string(runes[:maxSuggestionLen])
	}
	return []string{
		query + " - Original Mix",
		query + " - Live Version",
		"Best of " + query,
		query + " (Remix)",
	}
}
