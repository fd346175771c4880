package commands

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// HandlerConfig sets the intents and adds the message handler
func HandlerConfig(s *discordgo.Session) {
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuilds | discordgo.IntentsMessageContent
	s.AddHandler(MessageHandler)
}

// prefixCommand returns the first word of content if it starts with prefix
func prefixCommand(content, prefix string) (string, bool) {
	if content == "" || prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", false
	}
	firstWord, _, _ := strings.Cut(content, " ")
	return firstWord, true
}

// MessageHandler handles prefix message commands
func MessageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	prefix := viper.GetString("prefix")

	firstWord, ok := prefixCommand(m.Content, prefix)
	if !ok {
		return
	}
	switch firstWord {
	case prefix:
		s.ChannelMessageSend(m.ChannelID, "type `"+prefix+"help` to open help menu.")
	case prefix + "help":
		s.ChannelMessageSendEmbed(m.ChannelID, helpEmbed(s.State.User.AvatarURL("64")))
	}
}

// helpEmbed lists the slash commands
func helpEmbed(avatarURL string) *discordgo.MessageEmbed {
	var b strings.Builder
	for _, com := range commands.commands {
		b.WriteString("`/" + com.Name)
		for _, opt := range com.Options {
			b.WriteString(" " + opt.Name)
		}
		b.WriteString("` " + com.Description + "\n")
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Jukebox Help",
		Description: "Create a room, share its code and vote on what plays next.",
		Color:       viper.GetInt("theme"),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Commands", Value: strings.TrimRight(b.String(), "\n")},
		},
	}
	if avatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatarURL}
	}
	return embed
}
