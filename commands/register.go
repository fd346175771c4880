package commands

import (
	"context"
	"errors"

	"Jukebox/room"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

var (
	commands = &Commands{}
	viewers  *room.Registry
	origin   string
)

// RegisterSlashCommands adds all slash commands to the session. Every guild
// member becomes a viewer of registry.
func RegisterSlashCommands(s *discordgo.Session, registry *room.Registry, shareOrigin string) {
	viewers = registry
	origin = shareOrigin

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "create",
			Description: "Create a new jukebox room.",
		},
		createRoom,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "join",
			Description: "Join a jukebox room.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "code",
					Description: "4 character room code",
					Required:    true,
				},
			},
		},
		joinRoom,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "add",
			Description: "Add a song to the room queue.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Song name as Artist - Title, or a Youtube link",
					Required:    true,
				},
			},
		},
		addSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "vote",
			Description: "Vote for a queued song, voting again removes it.",
			Options:     []*discordgo.ApplicationCommandOption{positionOption},
		},
		voteSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "unvote",
			Description: "Remove your vote from a queued song.",
			Options:     []*discordgo.ApplicationCommandOption{positionOption},
		},
		unvoteSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "queue",
			Description: "Show the room queue.",
		},
		showQueue,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "next",
			Description: "Play the highest voted song.",
		},
		nextSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "skip",
			Description: "Skip the current song.",
		},
		skipSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "share",
			Description: "Show the link to join the room.",
		},
		shareRoom,
	)

	if err := commands.Register(s); err != nil {
		log.WithError(err).Error("Failed to register slash commands")
	}
}

var positionOption = &discordgo.ApplicationCommandOption{
	Type:        discordgo.ApplicationCommandOptionInteger,
	Name:        "position",
	Description: "Position of the song in /queue",
	Required:    true,
	MinValue:    &minPosition,
}

var minPosition = 1.0

type CommandHandler func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError

type Commands struct {
	commands []*discordgo.ApplicationCommand
	handlers map[string]CommandHandler
}

// Adds command to the slash commands.
func (c *Commands) Add(com *discordgo.ApplicationCommand, handler CommandHandler) {
	c.commands = append(c.commands, com)
	if c.handlers == nil {
		c.handlers = map[string]CommandHandler{}
	}
	c.handlers[com.Name] = handler
}

// Register all slash commands
func (c *Commands) Register(s *discordgo.Session) error {
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type == discordgo.InteractionApplicationCommand {
			callCommandHandler(s, i)
		}
	})

	if _, err := s.ApplicationCommandBulkOverwrite(viper.GetString("discord.app.id"), "", c.commands); err != nil {
		log.WithError(err).Error("Failed to create commands")
		return err
	}
	return nil
}

// Cannot be an interaction through DMs
func checkDirectMessage(i *discordgo.InteractionCreate) (*discordgo.Member, *interactionError) {
	if i.GuildID == "" || i.Member == nil {
		return nil, &interactionError{
			err:     errors.New("command invoked outside of valid guild"),
			message: "This command is only available in a valid server",
		}
	}
	return i.Member, nil
}

// Slash command interactions
func callCommandHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	member, iError := checkDirectMessage(i)
	if iError != nil {
		iError.Handle(s, i)
		return
	}

	commandName := i.ApplicationCommandData().Name
	handler, ok := commands.handlers[commandName]
	if !ok {
		return
	}

	ctx := context.WithValue(context.Background(), log.Key, log.Fields{
		"author_id":        member.User.ID,
		"channel_id":       i.ChannelID,
		"guild_id":         i.GuildID,
		"user":             member.User.Username,
		"viewer_id":        viewerID(i.GuildID, member.User.ID),
		"interaction_type": "application",
		"command":          commandName,
	})
	log.WithContext(ctx).Info("Invoking application command")
	if iError := handler(ctx, s, i); iError != nil {
		iError.Handle(s, i)
	}
}
