package yt

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"Jukebox/music"
	"Jukebox/utils"

	"github.com/Strum355/log"
	"github.com/kkdai/youtube/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const metadataKeyPrefix = "ytmeta:"

// Resolver resolves YouTube links to their real title and author, caching
// metadata in Redis. Anything it cannot look up resolves like the mock.
type Resolver struct {
	redis         *redis.Client // Optional metadata cache
	cacheYoutube  time.Duration
	fetch         func(ctx context.Context, videoID string) (*Metadata, error)
	fetchPlaylist func(ctx context.Context, playlistURL string) ([]string, error)
	inflight      singleflight.Group // Collapses concurrent lookups of one video
}

// NewResolver creates a Resolver with an optional Redis cache
func NewResolver(rdb *redis.Client, cacheYoutube time.Duration) *Resolver {
	return &Resolver{
		redis:         rdb,
		cacheYoutube:  cacheYoutube,
		fetch:         FetchVideoMetadata,
		fetchPlaylist: FetchPlaylistVideoIDs,
	}
}

func (r *Resolver) Resolve(ctx context.Context, query string) (music.Track, error) {
	fallback := music.Fallback(query)
	if !music.IsYouTubeLink(query) {
		return fallback, nil
	}

	videoID, err := youtube.ExtractVideoID(query)
	if err != nil {
		return fallback, nil
	}
	meta, err := r.GetVideoMetadata(ctx, videoID)
	if err != nil {
		log.WithError(err).Error("Failed to fetch metadata for " + videoID)
		return fallback, nil
	}

	track := music.Track{
		Title:    meta.Title,
		Artist:   meta.Author,
		URL:      query,
		Cover:    meta.Thumbnail,
		Duration: utils.FormatDuration(time.Duration(meta.Seconds) * time.Second),
	}
	if track.Title == "" {
		track.Title = fallback.Title
	}
	if track.Artist == "" {
		track.Artist = fallback.Artist
	}
	if track.Cover == "" {
		track.Cover = fallback.Cover
	}
	if meta.Seconds == 0 {
		track.Duration = fallback.Duration
	}
	return track, nil
}

// GetVideoMetadata returns metadata for videoID from the cache or YouTube
func (r *Resolver) GetVideoMetadata(ctx context.Context, videoID string) (*Metadata, error) {
	// Try Redis
	if r.redis != nil {
		cached, err := r.redis.Get(ctx, metadataKeyPrefix+videoID).Bytes()
		if err == nil {
			var meta Metadata
			if json.Unmarshal(cached, &meta) == nil {
				return &meta, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.WithError(err).Error("Failed to read metadata cache")
		}
	}

	// Fetch from YouTube
	v, err, _ := r.inflight.Do(videoID, func() (any, error) {
		return r.fetch(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}
	meta := v.(*Metadata)

	// Store in Redis
	if r.redis != nil {
		data, _ := json.Marshal(meta)
		if err := r.redis.Set(ctx, metadataKeyPrefix+videoID, data, r.cacheYoutube).Err(); err != nil {
			log.WithError(err).Error("Failed to write metadata cache")
		}
	}
	return meta, nil
}

// PlaylistQueries expands a YouTube playlist link into watch links
func (r *Resolver) PlaylistQueries(ctx context.Context, playlistURL string) ([]string, error) {
	videoIDs, err := r.fetchPlaylist(ctx, playlistURL)
	if err != nil {
		return nil, err
	}
	queries := make([]string, 0, len(videoIDs))
	for _, id := range videoIDs {
		queries = append(queries, WatchURL(id))
	}
	return queries, nil
}
