package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"Jukebox/notify"
	"Jukebox/queue"
	"Jukebox/room"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialRoom(t *testing.T, url, code string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http") + "/ws/rooms/" + code
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) queue.SharedState {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wsMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "state", msg.Type)
	return msg.State
}

func TestWebsocket_SnapshotThenUpdates(t *testing.T) {
	ts, _ := setupServer(t, room.Options{}, nil)
	host := createRoom(t, ts, "alice")
	addSong(t, ts, host.ViewerID, "A - X")

	conn := dialRoom(t, ts.URL, host.View.RoomCode)

	state := readState(t, conn)
	assert.Equal(t, host.View.RoomCode, state.RoomCode)
	require.Len(t, state.Queue, 1)
	assert.Equal(t, "X", state.Queue[0].Title)

	added := addSong(t, ts, host.ViewerID, "B - Y")

	state = readState(t, conn)
	require.Len(t, state.Queue, 2)
	assert.Equal(t, added.ID, state.Queue[1].ID)
}

func TestWebsocket_OnlyWatchedRoom(t *testing.T) {
	ts, _ := setupServer(t, room.Options{}, nil)
	watched := createRoom(t, ts, "alice")
	other := createRoom(t, ts, "bob")

	conn := dialRoom(t, ts.URL, watched.View.RoomCode)
	readState(t, conn)

	addSong(t, ts, other.ViewerID, "B - Y")
	addSong(t, ts, watched.ViewerID, "A - X")

	state := readState(t, conn)
	assert.Equal(t, watched.View.RoomCode, state.RoomCode)
	require.Len(t, state.Queue, 1)
	assert.Equal(t, "X", state.Queue[0].Title)
}

func TestWebsocket_UnknownRoomStartsEmpty(t *testing.T) {
	ts, _ := setupServer(t, room.Options{}, nil)

	conn := dialRoom(t, ts.URL, "QQQQ")

	state := readState(t, conn)
	assert.Equal(t, "QQQQ", state.RoomCode)
	assert.Empty(t, state.Queue)
	assert.Nil(t, state.NowPlaying)
}

func TestWebsocket_InvalidCode(t *testing.T) {
	ts, _ := setupServer(t, room.Options{}, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/X"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHub_DropsSlowClients(t *testing.T) {
	bus := notify.NewBus()
	hub := NewHub(bus)
	defer hub.Close()

	client := &wsClient{hub: hub, code: "ABCD", send: make(chan []byte, 1)}
	hub.add(client)
	hub.prime(client, nil)
	require.Equal(t, 1, hub.Clients("ABCD"))

	bus.Publish(notify.Update{Origin: "other", State: queue.NewSharedState("ABCD")})
	assert.Equal(t, 1, hub.Clients("ABCD"))

	bus.Publish(notify.Update{Origin: "other", State: queue.NewSharedState("ABCD")})
	assert.Equal(t, 0, hub.Clients("ABCD"))

	_, ok := <-client.send
	assert.True(t, ok)
	_, ok = <-client.send
	assert.False(t, ok)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	bus := notify.NewBus()
	hub := NewHub(bus)

	client := &wsClient{hub: hub, code: "ABCD", send: make(chan []byte, 1)}
	hub.add(client)
	hub.prime(client, nil)

	hub.Close()
	assert.Equal(t, 0, hub.Clients("ABCD"))
	assert.Equal(t, 0, bus.Len())

	_, ok := <-client.send
	assert.False(t, ok)
}

func TestHub_UpdateBeforePrimeReplacesSnapshot(t *testing.T) {
	bus := notify.NewBus()
	hub := NewHub(bus)
	defer hub.Close()

	client := &wsClient{hub: hub, code: "ABCD", send: make(chan []byte, 4)}
	hub.add(client)

	st := queue.NewSharedState("ABCD")
	st.Enqueue(&queue.Song{ID: "fresh", Votes: 1, VotedBy: []string{"alice"}})
	bus.Publish(notify.Update{Origin: "other", State: st})
	assert.Empty(t, client.send)

	hub.prime(client, []byte(`{"type":"state","state":{"roomCode":"ABCD","queue":[]}}`))
	require.Len(t, client.send, 1)

	var msg wsMessage
	require.NoError(t, json.Unmarshal(<-client.send, &msg))
	require.Len(t, msg.State.Queue, 1)
	assert.Equal(t, "fresh", msg.State.Queue[0].ID)

	bus.Publish(notify.Update{Origin: "other", State: queue.NewSharedState("ABCD")})
	assert.Len(t, client.send, 1)
}

func TestHub_PrimeSendsSnapshot(t *testing.T) {
	bus := notify.NewBus()
	hub := NewHub(bus)
	defer hub.Close()

	client := &wsClient{hub: hub, code: "ABCD", send: make(chan []byte, 4)}
	hub.add(client)
	snapshot := []byte(`{"type":"state","state":{"roomCode":"ABCD","queue":[]}}`)
	hub.prime(client, snapshot)

	require.Len(t, client.send, 1)
	assert.Equal(t, snapshot, <-client.send)
}

func TestHub_PrimeAfterCloseIsNoOp(t *testing.T) {
	bus := notify.NewBus()
	hub := NewHub(bus)

	client := &wsClient{hub: hub, code: "ABCD", send: make(chan []byte, 4)}
	hub.add(client)
	hub.Close()

	hub.prime(client, []byte(`{}`))
	_, ok := <-client.send
	assert.False(t, ok)
}
