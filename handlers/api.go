package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"Jukebox/music"
	"Jukebox/queue"
	"Jukebox/room"
	"Jukebox/storage"
	"Jukebox/utils"

	"github.com/go-chi/chi/v5"
)

const maxBatchQueries = 200

type usernameRequest struct {
	Username string `json:"username"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type batchRequest struct {
	Queries []string `json:"queries"`
}

type playlistRequest struct {
	URL string `json:"url"`
}

type voteRequest struct {
	Direction queue.Direction `json:"direction"`
}

type viewerResponse struct {
	ViewerID  string    `json:"viewerId"`
	ShareLink string    `json:"shareLink"`
	View      room.View `json:"view"`
}

type songsResponse struct {
	Songs []*queue.Song `json:"songs"`
	View  room.View     `json:"view"`
}

type changedResponse struct {
	Changed bool      `json:"changed"`
	View    room.View `json:"view"`
}

func decode(r *http.Request, v any) *apiError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest(err, "Invalid request body")
	}
	return nil
}

func codeParam(r *http.Request) (string, *apiError) {
	raw := chi.URLParam(r, "code")
	code, ok := utils.NormalizeRoomCode(raw)
	if !ok || !room.ValidCode(code) {
		return "", badRequest(fmt.Errorf("invalid room code %q", raw), "Room code must be 4 letters or digits")
	}
	return code, nil
}

func usernameBody(r *http.Request) (string, *apiError) {
	var req usernameRequest
	if err := decode(r, &req); err != nil {
		return "", err
	}
	username, ok := utils.NormalizeUsername(req.Username)
	if !ok {
		return "", badRequest(errors.New("invalid username"), "Please enter a username")
	}
	return username, nil
}

func (s *Server) viewer(r *http.Request) (string, *room.Store, *apiError) {
	id := r.Header.Get(ViewerHeader)
	if id == "" {
		return "", nil, badRequest(errors.New("missing viewer id"), "Missing "+ViewerHeader+" header")
	}
	store, ok := s.registry.Get(id)
	if !ok {
		return "", nil, notFound(fmt.Errorf("unknown viewer %s", id), "Unknown viewer")
	}
	return id, store, nil
}

func (s *Server) viewerResponse(id string, store *room.Store) viewerResponse {
	view := store.View()
	resp := viewerResponse{ViewerID: id, View: view}
	if view.RoomCode != "" {
		resp.ShareLink = room.ShareLink(s.origin, view.RoomCode)
	}
	return resp
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) *apiError {
	username, apiErr := usernameBody(r)
	if apiErr != nil {
		return apiErr
	}

	id, store := s.registry.Open()
	store.CreateRoom(r.Context(), username)

	writeJSON(w, http.StatusCreated, s.viewerResponse(id, store))
	return nil
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) *apiError {
	code, apiErr := codeParam(r)
	if apiErr != nil {
		return apiErr
	}
	username, apiErr := usernameBody(r)
	if apiErr != nil {
		return apiErr
	}

	// Rejoining with a known viewer switches its room
	id := r.Header.Get(ViewerHeader)
	store, ok := s.registry.Get(id)
	if !ok {
		id, store = s.registry.Open()
	}

	if err := store.JoinRoom(r.Context(), code, username); err != nil {
		if !ok {
			s.registry.Close(id)
		}
		if errors.Is(err, room.ErrRoomNotFound) {
			return notFound(err, "Room "+code+" does not exist")
		}
		return internal(err, "Failed to join room")
	}

	writeJSON(w, http.StatusOK, s.viewerResponse(id, store))
	return nil
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) *apiError {
	code, apiErr := codeParam(r)
	if apiErr != nil {
		return apiErr
	}

	state, err := s.registry.Backend().Load(r.Context(), code)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(err, "Room "+code+" does not exist")
	}
	if err != nil {
		return internal(err, "Failed to load room")
	}

	writeJSON(w, http.StatusOK, state)
	return nil
}

func (s *Server) getViewer(w http.ResponseWriter, r *http.Request) *apiError {
	id, store, apiErr := s.viewer(r)
	if apiErr != nil {
		return apiErr
	}
	writeJSON(w, http.StatusOK, s.viewerResponse(id, store))
	return nil
}

func (s *Server) closeViewer(w http.ResponseWriter, r *http.Request) *apiError {
	id, _, apiErr := s.viewer(r)
	if apiErr != nil {
		return apiErr
	}
	s.registry.Close(id)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) addSong(w http.ResponseWriter, r *http.Request) *apiError {
	_, store, apiErr := s.viewer(r)
	if apiErr != nil {
		return apiErr
	}
	var req queryRequest
	if apiErr := decode(r, &req); apiErr != nil {
		return apiErr
	}
	query, ok := utils.NormalizeQuery(req.Query)
	if !ok {
		return badRequest(errors.New("empty query"), "Please enter a song name or link")
	}

	song, err := store.AddSong(r.Context(), query)
	if err != nil {
		return internal(err, "Failed to add song")
	}

	writeJSON(w, http.StatusCreated, songsResponse{Songs: []*queue.Song{song}, View: store.View()})
	return nil
}

func (s *Server) addSongs(w http.ResponseWriter, r *http.Request) *apiError {
	_, store, apiErr := s.viewer(r)
	if apiErr != nil {
		return apiErr
	}
	var req batchRequest
	if apiErr := decode(r, &req); apiErr != nil {
		return apiErr
	}
	return s.addQueries(w, r, store, req.Queries)
}

func (s *Server) addPlaylist(w http.ResponseWriter, r *http.Request) *apiError {
	_, store, apiErr := s.viewer(r)
	if apiErr != nil {
		return apiErr
	}
	var req playlistRequest
	if apiErr := decode(r, &req); apiErr != nil {
		return apiErr
	}
	url, ok := utils.NormalizeQuery(req.URL)
	if !ok {
		return badRequest(errors.New("empty playlist url"), "Please enter a playlist link")
	}
	if s.playlists == nil {
		return badRequest(errors.New("playlist import disabled"), "Playlist import is not enabled")
	}

	queries, err := s.playlists.PlaylistQueries(r.Context(), url)
	if err != nil {
		return badRequest(err, "Could not read playlist")
	}
	return s.addQueries(w, r, store, queries)
}

func (s *Server) addQueries(w http.ResponseWriter, r *http.Request, store *room.Store, queries []string) *apiError {
	if len(queries) > maxBatchQueries {
		return badRequest(fmt.Errorf("%d queries", len(queries)), fmt.Sprintf("At most %d songs can be added at once", maxBatchQueries))
	}
	songs, err := store.AddSongs(r.Context(), queries)
	if err != nil {
		return internal(err, "Failed to add songs")
	}
	if len(songs) == 0 {
		return badRequest(errors.New("nothing resolved"), "None of the songs could be added")
	}

	writeJSON(w, http.StatusCreated, songsResponse{Songs: songs, View: store.View()})
	return nil
}

func (s *Server) vote(w http.ResponseWriter, r *http.Request) *apiError {
	_, store, apiErr := s.viewer(r)
	if apiErr != nil {
		return apiErr
	}
	var req voteRequest
	if apiErr := decode(r, &req); apiErr != nil {
		return apiErr
	}
	if req.Direction != queue.Up && req.Direction != queue.Down {
		return badRequest(fmt.Errorf("invalid direction %q", req.Direction), "Direction must be up or down")
	}

	changed := store.Vote(r.Context(), chi.URLParam(r, "songID"), req.Direction)
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed, View: store.View()})
	return nil
}

func (s *Server) player(w http.ResponseWriter, r *http.Request, action func(*room.Store) bool) *apiError {
	_, store, apiErr := s.viewer(r)
	if apiErr != nil {
		return apiErr
	}
	changed := action(store)
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed, View: store.View()})
	return nil
}

func (s *Server) next(w http.ResponseWriter, r *http.Request) *apiError {
	return s.player(w, r, func(store *room.Store) bool {
		return store.Advance(r.Context())
	})
}

func (s *Server) skip(w http.ResponseWriter, r *http.Request) *apiError {
	return s.player(w, r, func(store *room.Store) bool {
		return store.Skip(r.Context())
	})
}

func (s *Server) ensurePlaying(w http.ResponseWriter, r *http.Request) *apiError {
	return s.player(w, r, func(store *room.Store) bool {
		return store.EnsurePlaying(r.Context())
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) *apiError {
	results := music.Suggest(r.URL.Query().Get("q"))
	if results == nil {
		results = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"results": results})
	return nil
}

func (s *Server) joinLink(w http.ResponseWriter, r *http.Request) *apiError {
	code, apiErr := codeParam(r)
	if apiErr != nil {
		return apiErr
	}
	http.Redirect(w, r, "/?join="+code, http.StatusFound)
	return nil
}
