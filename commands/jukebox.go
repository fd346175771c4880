package commands

import (
	"context"
	"errors"
	"fmt"

	"Jukebox/queue"
	"Jukebox/room"
	"Jukebox/utils"

	"github.com/bwmarrin/discordgo"
)

// memberStore returns the invoker's viewer, creating it on first use
func memberStore(i *discordgo.InteractionCreate) *room.Store {
	return viewers.OpenWithID(viewerID(i.GuildID, i.Member.User.ID))
}

// activeStore returns the invoker's viewer if it is in a room
func activeStore(s *discordgo.Session, i *discordgo.InteractionCreate) (*room.Store, room.View, bool) {
	store, ok := viewers.Get(viewerID(i.GuildID, i.Member.User.ID))
	if !ok {
		respond(s, i, "Create a room with `/create` or join one with `/join` first 😉")
		return nil, room.View{}, false
	}
	view := store.View()
	if view.RoomCode == "" {
		respond(s, i, "Create a room with `/create` or join one with `/join` first 😉")
		return nil, room.View{}, false
	}
	return store, view, true
}

// createRoom starts a room hosted by the invoker
func createRoom(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	username, ok := utils.NormalizeUsername(memberName(i.Member))
	if !ok {
		respond(s, i, "Your server nickname can't be used as a username 😅")
		return nil
	}

	store := memberStore(i)
	code := store.CreateRoom(ctx, username)
	respond(s, i, fmt.Sprintf("🎉 Room **%s** created! Share it with %s", code, room.ShareLink(origin, code)))
	return nil
}

// joinRoom moves the invoker into the room with the given code
func joinRoom(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	code, ok := utils.NormalizeRoomCode(i.ApplicationCommandData().Options[0].StringValue())
	if !ok || !room.ValidCode(code) {
		respond(s, i, "❌ Room codes are 4 letters or digits")
		return nil
	}
	username, ok := utils.NormalizeUsername(memberName(i.Member))
	if !ok {
		respond(s, i, "Your server nickname can't be used as a username 😅")
		return nil
	}

	store := memberStore(i)
	if err := store.JoinRoom(ctx, code, username); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			respond(s, i, "❌ Room **"+code+"** does not exist")
			return nil
		}
		return &interactionError{err: err, message: "Couldn't join room " + code}
	}
	respondEmbed(s, i, queueEmbed(store.View()))
	return nil
}

// addSong resolves the query and queues it
func addSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	store, _, ok := activeStore(s, i)
	if !ok {
		return nil
	}
	query, ok := utils.NormalizeQuery(i.ApplicationCommandData().Options[0].StringValue())
	if !ok {
		respond(s, i, "❌ Please enter a song name or link")
		return nil
	}

	// Looking up a link can take longer than the interaction deadline
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	song, err := store.AddSong(ctx, query)
	if err != nil {
		return &interactionError{err: err, message: "Couldn't add the song", deferred: true}
	}
	s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: "🎵 " + songLine(song) + " added to the queue",
	})
	return nil
}

func voteSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	return applyVote(ctx, s, i, queue.Up)
}

func unvoteSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	return applyVote(ctx, s, i, queue.Down)
}

// applyVote votes on the song at the given queue position
func applyVote(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, dir queue.Direction) *interactionError {
	store, view, ok := activeStore(s, i)
	if !ok {
		return nil
	}
	position := i.ApplicationCommandData().Options[0].IntValue()
	song, ok := songAt(view, position)
	if !ok {
		respond(s, i, fmt.Sprintf("❌ There is no song at position %d", position))
		return nil
	}

	if !store.Vote(ctx, song.ID, dir) {
		respond(s, i, "You have no vote on **"+song.Title+"** to remove")
		return nil
	}
	if dir == queue.Up && !song.HasVoted(view.Username) {
		respond(s, i, "👍 Voted for **"+song.Title+"**")
		return nil
	}
	respond(s, i, "👎 Removed your vote from **"+song.Title+"**")
	return nil
}

// showQueue shows the room queue using an embed
func showQueue(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	_, view, ok := activeStore(s, i)
	if !ok {
		return nil
	}
	respondEmbed(s, i, queueEmbed(view))
	return nil
}

func nextSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	return advance(s, i, func(store *room.Store) bool {
		return store.Advance(ctx)
	})
}

func skipSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	return advance(s, i, func(store *room.Store) bool {
		return store.Skip(ctx)
	})
}

func advance(s *discordgo.Session, i *discordgo.InteractionCreate, action func(*room.Store) bool) *interactionError {
	store, _, ok := activeStore(s, i)
	if !ok {
		return nil
	}
	if !action(store) {
		respond(s, i, "The queue is empty 😶")
		return nil
	}
	view := store.View()
	respond(s, i, "⏭️ Now playing "+songLine(view.NowPlaying))
	return nil
}

func shareRoom(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	_, view, ok := activeStore(s, i)
	if !ok {
		return nil
	}
	respond(s, i, fmt.Sprintf("🔗 Join room **%s** at %s", view.RoomCode, room.ShareLink(origin, view.RoomCode)))
	return nil
}
