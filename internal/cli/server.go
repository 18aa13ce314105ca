package cli

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/fakhriyor21/Quizbot-final/internal/app"
	"github.com/fakhriyor21/Quizbot-final/internal/config"
	"github.com/fakhriyor21/Quizbot-final/internal/infra/memory"
	pgstore "github.com/fakhriyor21/Quizbot-final/internal/infra/postgres"
	redissession "github.com/fakhriyor21/Quizbot-final/internal/infra/redis"
	"github.com/fakhriyor21/Quizbot-final/internal/transport/ws"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var store app.Store = memory.NewStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()

		store = pgstore.NewStore(db, pool)
	}

	var sessions app.SessionStore = memory.NewSessionStore()
	if redisClient != nil {
		sessionTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
		sessions = redissession.NewSessionStore(redisClient, sessionTTL)
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	questions := memory.NewQuestionCache(store, cacheTTL)

	gateway := ws.NewGateway()
	feed := ws.NewFeed()
	publisher := app.NewChannelBroadcast(store, feed, cfg.Bot.Name)
	engine := app.NewEngine(store, sessions, questions)

	bot := app.NewBot(app.BotOptions{
		Store:         store,
		Engine:        engine,
		Authoring:     app.NewAuthoring(store, publisher, questions),
		Registration:  app.NewRegistration(store),
		Sender:        gateway,
		Publisher:     publisher,
		Cache:         questions,
		AdminIDs:      cfg.Bot.AdminIDs,
		FeedbackDelay: config.TTLDuration(cfg.Quiz.FeedbackDelay, 1500*time.Millisecond),
	})
	gateway.Bind(bot)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", gateway.ServeWS)
	mux.HandleFunc("/channel", feed.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
