package db_client

import (
	"context"
	"os"
	"testing"

	"Jukebox/queue"
	"Jukebox/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoom(t *testing.T) {
	st := queue.NewSharedState("ABCD")
	st.Enqueue(&queue.Song{ID: "s1", Title: "X", Votes: 1, VotedBy: []string{"alice"}})

	row, err := encodeRoom(st)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", row.Code)
	assert.False(t, row.UpdatedAt.IsZero())

	loaded, err := decodeRoom(row)
	require.NoError(t, err)
	assert.Equal(t, st, loaded)
}

func TestDecodeRoom_Corrupt(t *testing.T) {
	_, err := decodeRoom(Room{Code: "ABCD", State: []byte("nope")})
	assert.Error(t, err)
}

func TestRoomBackend_Postgres(t *testing.T) {
	dsn := os.Getenv("JUKEBOX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("JUKEBOX_TEST_POSTGRES_DSN not set")
	}

	db, err := Open(dsn, 1)
	require.NoError(t, err)
	b := NewRoomBackend(db)
	ctx := context.Background()

	code := "TEST"
	t.Cleanup(func() { db.Delete(&Room{}, "code = ?", code) })

	_, err = b.Load(ctx, code)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	st := queue.NewSharedState(code)
	require.NoError(t, b.Save(ctx, st))

	st.Enqueue(&queue.Song{ID: "s1", Votes: 1, VotedBy: []string{"alice"}})
	require.NoError(t, b.Save(ctx, st))

	loaded, err := b.Load(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, st, loaded)
}
