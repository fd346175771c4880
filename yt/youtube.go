package yt

import (
	"context"
	"fmt"

	"github.com/kkdai/youtube/v2"
)

const watchURL = "https://www.youtube.com/watch?v="

// Metadata is the subset of video details a queued song needs
type Metadata struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Thumbnail string `json:"thumbnail"`
	Seconds   int64  `json:"seconds"`
}

// FetchVideoMetadata fetches basic metadata for a given videoID
func FetchVideoMetadata(ctx context.Context, videoID string) (*Metadata, error) {
	client := youtube.Client{}
	video, err := client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", videoID, err)
	}

	meta := &Metadata{
		ID:      video.ID,
		Title:   video.Title,
		Author:  video.Author,
		Seconds: int64(video.Duration.Seconds()),
	}
	if len(video.Thumbnails) > 0 {
		meta.Thumbnail = video.Thumbnails[0].URL
	}
	return meta, nil
}

// FetchPlaylistVideoIDs returns all video IDs of a YouTube playlist URL
func FetchPlaylistVideoIDs(ctx context.Context, playlistURL string) ([]string, error) {
	client := youtube.Client{}
	playlist, err := client.GetPlaylistContext(ctx, playlistURL)
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}

	videoIDs := make([]string, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		videoIDs = append(videoIDs, entry.ID)
	}
	return videoIDs, nil
}

// WatchURL returns the watch link for videoID
func WatchURL(videoID string) string {
	return watchURL + videoID
}
