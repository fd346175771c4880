package playlist

import (
	"context"
	"strings"

	"Jukebox/music"

	"github.com/Strum355/log"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// ResolveAll resolves queries with at most maxConcurrency lookups in flight.
// Tracks come back in query order; blank queries and failed lookups are
// skipped. An error is returned only if ctx is cancelled.
func ResolveAll(ctx context.Context, resolver music.Resolver, queries []string, maxConcurrency int) ([]music.Track, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultConcurrency
	}

	ordered := make([]*music.Track, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	// Loops over each query and resolves them concurrently
	for idx, query := range queries {
		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			track, err := resolver.Resolve(gctx, query)
			if err != nil {
				log.WithError(err).Error("Failed to resolve " + query)
				return nil
			}
			ordered[idx] = &track
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Filter out failed lookups
	tracks := make([]music.Track, 0, len(queries))
	for _, t := range ordered {
		if t != nil {
			tracks = append(tracks, *t)
		}
	}
	return tracks, nil
}
