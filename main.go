package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Jukebox/commands"
	"Jukebox/config"
	"Jukebox/handlers"
	"Jukebox/music"
	"Jukebox/notify"
	"Jukebox/redis_client"
	"Jukebox/room"
	"Jukebox/yt"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var production bool

var rootCmd = &cobra.Command{
	Use:          "jukebox",
	Short:        "Shared voting jukebox rooms over HTTP, websockets and Discord",
	SilenceUsage: true,
	RunE:         serve,
}

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run the jukebox server",
	SilenceUsage: true,
	RunE:         serve,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&production, "production", "p", false, "enables production with json logging")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, args []string) error {
	if production {
		log.InitJSONLogger(&log.Config{Output: os.Stdout})
	} else {
		log.InitSimpleLogger(&log.Config{Output: os.Stdout})
	}

	// Sets up Configurations for Viper
	config.InitConfig()
	if err := config.Validate(); err != nil {
		log.WithError(err).Error("Invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := connectRedis(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to connect to Redis")
		return err
	}

	backend, closeBackend, err := openBackend(rdb)
	if err != nil {
		log.WithError(err).Error("Failed to open room storage")
		return err
	}

	bus := notify.NewBus()
	var relay *notify.RedisRelay
	if viper.GetBool("notify.redis") {
		relay = notify.NewRedisRelay(bus, rdb, uuid.NewString(), viper.GetString("notify.channel"))
		relay.Start(ctx)
	}

	var (
		resolver  music.Resolver = &music.MockResolver{}
		playlists handlers.PlaylistSource
	)
	if viper.GetBool("resolver.youtube") {
		ytResolver := yt.NewResolver(rdb, time.Duration(viper.GetInt("cache.youtube"))*time.Second)
		resolver = ytResolver
		playlists = ytResolver
	}

	registry := room.NewRegistry(room.Options{
		Backend:      backend,
		Bus:          bus,
		Resolver:     resolver,
		StrictJoin:   viper.GetBool("room.strict_join"),
		CodeAttempts: viper.GetInt("room.code_attempts"),
		Concurrency:  viper.GetInt("import.concurrency"),
	})

	origin := viper.GetString("server.origin")
	api := handlers.NewServer(registry, origin, playlists)
	httpServer := &http.Server{
		Addr:              viper.GetString("server.addr"),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Listening on " + httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	s := openDiscord(registry, origin)

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		log.WithError(err).Error("HTTP server stopped")
	}

	gracefulShutdown(httpServer, api, s, relay, registry)
	closeBackend()
	if rdb != nil {
		rdb.Close()
	}
	log.Info("Cleanly exiting")
	return err
}

// connectRedis connects to Redis when a configured component needs it. The
// metadata cache is optional, so failing to reach Redis only for it logs and
// returns no client.
func connectRedis(ctx context.Context) (*redis.Client, error) {
	addr := viper.GetString("redis.address")
	required, wanted := redisUsage()
	if !required && !wanted {
		return nil, nil
	}

	rdb, err := redis_client.NewClient(ctx, addr)
	if err != nil && !required {
		log.WithError(err).Error("Failed to connect to Redis, running without the metadata cache")
		return nil, nil
	}
	return rdb, err
}

// redisUsage reports whether a configured component cannot run without Redis
// and whether one would only like to use it
func redisUsage() (required, wanted bool) {
	required = viper.GetString("storage.driver") == "redis" || viper.GetBool("notify.redis")
	wanted = viper.GetString("redis.address") != "" && viper.GetBool("resolver.youtube")
	return required, wanted
}

// openDiscord starts the Discord front-end if a bot token is configured
func openDiscord(registry *room.Registry, origin string) *discordgo.Session {
	token := viper.GetString("discord.token")
	if token == "" {
		log.Info("No Discord token configured, running without the bot")
		return nil
	}

	s, err := discordgo.New("Bot " + token)
	if err != nil {
		log.WithError(err).Error("Failed to create Discord session")
		return nil
	}

	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info("Bot has registered handlers")
	})

	// Configuring Intents and Adding Handlers
	commands.HandlerConfig(s)

	// Register Slash Commands
	commands.RegisterSlashCommands(s, registry, origin)

	// Connecting to Discord Server Gateway
	if err := s.Open(); err != nil {
		log.WithError(err).Error("Failed to open Discord session")
		return nil
	}
	log.Info("Bot is initialising")
	return s
}

// gracefulShutdown stops accepting work and disconnects every viewer
func gracefulShutdown(httpServer *http.Server, api *handlers.Server, s *discordgo.Session, relay *notify.RedisRelay, registry *room.Registry) {
	log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Failed to shut down HTTP server")
	}
	api.Close()

	if s != nil {
		s.Close()
	}
	if relay != nil {
		relay.Stop()
	}
	registry.CloseAll()
}
