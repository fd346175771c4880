package handlers

import (
	"context"
	"net/http"

	"Jukebox/room"

	"github.com/Strum355/log"
	"github.com/go-chi/chi/v5"
)

const ViewerHeader = "X-Viewer-ID"

// PlaylistSource expands a playlist link into one query per video
type PlaylistSource interface {
	PlaylistQueries(ctx context.Context, url string) ([]string, error)
}

// Server serves the JSON API and websocket updates over a Registry of viewers
type Server struct {
	registry  *room.Registry
	hub       *Hub
	origin    string
	playlists PlaylistSource // Optional, playlist imports fail without it
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) *apiError

// NewServer creates a Server. origin is used to build share links.
func NewServer(registry *room.Registry, origin string, playlists PlaylistSource) *Server {
	return &Server{
		registry:  registry,
		hub:       NewHub(registry.Bus()),
		origin:    origin,
		playlists: playlists,
	}
}

// Close disconnects every websocket client
func (s *Server) Close() {
	s.hub.Close()
}

// Handler returns the routes of the Server
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/join/{code}", s.handle("join-link", s.joinLink))
	r.Get("/ws/rooms/{code}", s.handle("websocket", s.serveWS))

	r.Route("/api", func(r chi.Router) {
		r.Post("/rooms", s.handle("create-room", s.createRoom))
		r.Post("/rooms/{code}/join", s.handle("join-room", s.joinRoom))
		r.Get("/rooms/{code}", s.handle("get-room", s.getRoom))

		r.Get("/viewer", s.handle("get-viewer", s.getViewer))
		r.Delete("/viewer", s.handle("close-viewer", s.closeViewer))

		r.Post("/queue", s.handle("add-song", s.addSong))
		r.Post("/queue/batch", s.handle("add-songs", s.addSongs))
		r.Post("/queue/playlist", s.handle("add-playlist", s.addPlaylist))
		r.Post("/queue/{songID}/vote", s.handle("vote", s.vote))

		r.Post("/player/next", s.handle("next", s.next))
		r.Post("/player/skip", s.handle("skip", s.skip))
		r.Post("/player/ensure", s.handle("ensure-playing", s.ensurePlaying))

		r.Get("/search", s.handle("search", s.search))
	})

	return r
}

func (s *Server) handle(name string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), log.Key, log.Fields{
			"handler":   name,
			"method":    r.Method,
			"path":      r.URL.Path,
			"viewer_id": r.Header.Get(ViewerHeader),
		})
		r = r.WithContext(ctx)

		log.WithContext(ctx).Info("Handling request")
		if err := h(w, r); err != nil {
			err.Handle(w)
		}
	}
}
