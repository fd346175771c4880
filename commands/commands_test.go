package commands

import (
	"strings"
	"testing"

	"Jukebox/queue"
	"Jukebox/room"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSong(id string, voters ...string) *queue.Song {
	return &queue.Song{ID: id, Title: "Title " + id, Artist: "Artist", Duration: "3:00", Votes: len(voters), VotedBy: voters}
}

func TestViewerID(t *testing.T) {
	assert.Equal(t, "discord:g1:u1", viewerID("g1", "u1"))
}

func TestMemberName(t *testing.T) {
	user := &discordgo.User{Username: "alice99", GlobalName: "Alice"}

	assert.Equal(t, "Ali", memberName(&discordgo.Member{Nick: "Ali", User: user}))
	assert.Equal(t, "Alice", memberName(&discordgo.Member{User: user}))
	assert.Equal(t, "bob", memberName(&discordgo.Member{User: &discordgo.User{Username: "bob"}}))
}

func TestSongAt(t *testing.T) {
	view := room.View{Queue: []*queue.Song{testSong("a"), testSong("b")}}

	song, ok := songAt(view, 2)
	require.True(t, ok)
	assert.Equal(t, "b", song.ID)

	for _, position := range []int64{0, -1, 3} {
		_, ok := songAt(view, position)
		assert.False(t, ok, position)
	}
}

func TestQueueText(t *testing.T) {
	view := room.View{
		Username: "alice",
		Queue:    []*queue.Song{testSong("a", "alice", "bob"), testSong("b", "bob")},
	}

	assert.Equal(t,
		"1. **Title a** by Artist (`3:00`) · 2 votes ✅\n"+
			"2. **Title b** by Artist (`3:00`) · 1 vote",
		queueText(view))
}

func TestQueueText_Empty(t *testing.T) {
	assert.Equal(t, "The queue is empty, add a song with `/add`", queueText(room.View{}))
}

func TestQueueText_Truncates(t *testing.T) {
	var view room.View
	for i := range queuePreview + 3 {
		view.Queue = append(view.Queue, testSong(string(rune('a'+i))))
	}

	text := queueText(view)
	assert.Equal(t, queuePreview+1, len(strings.Split(text, "\n")))
	assert.True(t, strings.HasSuffix(text, "...and 3 more"))
}

func TestQueueEmbed(t *testing.T) {
	np := testSong("np", "carol")
	np.AddedBy = "carol"
	np.Cover = "https://example.com/cover.jpg"

	embed := queueEmbed(room.View{RoomCode: "ABCD", NowPlaying: np})
	assert.Equal(t, "🎶 Room ABCD", embed.Title)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "**Title np** by Artist (`3:00`)\nAdded by carol", embed.Fields[0].Value)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, np.Cover, embed.Thumbnail.URL)

	embed = queueEmbed(room.View{RoomCode: "ABCD"})
	assert.Equal(t, "Nothing is playing right now 😶", embed.Fields[0].Value)
	assert.Nil(t, embed.Thumbnail)
}

func TestPrefixCommand(t *testing.T) {
	tests := []struct {
		content string
		word    string
		ok      bool
	}{
		{"^help", "^help", true},
		{"^help me please", "^help", true},
		{"^", "^", true},
		{"hello ^help", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		word, ok := prefixCommand(tt.content, "^")
		assert.Equal(t, tt.ok, ok, tt.content)
		assert.Equal(t, tt.word, word, tt.content)
	}

	_, ok := prefixCommand("^help", "")
	assert.False(t, ok)
}

func TestHelpEmbed(t *testing.T) {
	saved := commands
	t.Cleanup(func() { commands = saved })
	commands = &Commands{}
	commands.Add(&discordgo.ApplicationCommand{Name: "queue", Description: "Show the room queue."}, showQueue)
	commands.Add(&discordgo.ApplicationCommand{
		Name:        "vote",
		Description: "Vote for a queued song.",
		Options:     []*discordgo.ApplicationCommandOption{positionOption},
	}, voteSong)

	embed := helpEmbed("")
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "`/queue` Show the room queue.\n`/vote position` Vote for a queued song.", embed.Fields[0].Value)
	assert.Nil(t, embed.Thumbnail)
}
