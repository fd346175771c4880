package commands

import (
	"fmt"
	"strings"

	"Jukebox/queue"
	"Jukebox/room"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

const queuePreview = 10

// viewerID maps a guild member to its viewer in the registry
func viewerID(guildID, userID string) string {
	return "discord:" + guildID + ":" + userID
}

// memberName is the username a member votes and adds songs with
func memberName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

// songAt returns the song at a 1-based queue position
func songAt(view room.View, position int64) (*queue.Song, bool) {
	if position < 1 || position > int64(len(view.Queue)) {
		return nil, false
	}
	return view.Queue[position-1], true
}

func songLine(song *queue.Song) string {
	return fmt.Sprintf("**%s** by %s (`%s`)", song.Title, song.Artist, song.Duration)
}

// queueText lists the first songs of the queue with their votes. Songs the
// viewer voted for are ticked.
func queueText(view room.View) string {
	if len(view.Queue) == 0 {
		return "The queue is empty, add a song with `/add`"
	}

	var b strings.Builder
	limit := min(len(view.Queue), queuePreview)
	for idx, song := range view.Queue[:limit] {
		voted := ""
		if song.HasVoted(view.Username) {
			voted = " ✅"
		}
		fmt.Fprintf(&b, "%d. %s · %d %s%s\n", idx+1, songLine(song), song.Votes, plural(song.Votes, "vote"), voted)
	}
	if len(view.Queue) > queuePreview {
		fmt.Fprintf(&b, "...and %d more", len(view.Queue)-queuePreview)
	}
	return strings.TrimRight(b.String(), "\n")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// queueEmbed shows what is playing and what is up next in the room
func queueEmbed(view room.View) *discordgo.MessageEmbed {
	nowPlaying := "Nothing is playing right now 😶"
	if view.NowPlaying != nil {
		nowPlaying = songLine(view.NowPlaying) + "\nAdded by " + view.NowPlaying.AddedBy
	}

	embed := &discordgo.MessageEmbed{
		Title: "🎶 Room " + view.RoomCode,
		Color: viper.GetInt("theme"),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Now Playing", Value: nowPlaying},
			{Name: "Up Next", Value: queueText(view)},
		},
	}
	if view.NowPlaying != nil && view.NowPlaying.Cover != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: view.NowPlaying.Cover}
	}
	return embed
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}
