package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/broadcast"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	pgloader "live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
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
	log := newLogger(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var rooms app.RoomRegistry
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		rooms = redisstore.NewRoomStore(redisClient, nil, redisTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		rooms = memory.NewRoomStore(nil)
	}

	defaults := app.DefaultTiming()
	timing := app.Timing{
		RevealGrace:        config.TTLDuration(cfg.Game.RevealGrace, defaults.RevealGrace),
		EvictAfterEnd:      config.TTLDuration(cfg.Game.EvictAfterEnd, defaults.EvictAfterEnd),
		EvictAfterHostLoss: config.TTLDuration(cfg.Game.EvictAfterHostLoss, defaults.EvictAfterHostLoss),
	}

	var auth *transport.Authenticator
	if cfg.Auth.JWTSecret != "" {
		auth = transport.NewAuthenticator(cfg.Auth.JWTSecret)
	}

	orchestrator := app.NewOrchestrator(rooms, quizRepo, broadcast.NewHub(log),
		app.WithLogger(log),
		app.WithTiming(timing),
		app.WithIdentityRequired(auth != nil),
	)
	wsHandler := transport.NewWSHandler(orchestrator, auth, log)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewMux(wsHandler, rooms),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting live quiz service", "port", finalPort, "redis", redisClient != nil, "postgres", pool != nil, "auth", auth != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds the static loader used when no database is configured.
// Hosts open it with userId 0d9e8f7a-6b5c-4d3e-2f10-a9b8c7d6e5f4.
func sampleQuizzes() map[string]domain.Quiz {
	const id = "6f1c2a9e-3b4d-4c5e-8f70-1a2b3c4d5e6f"
	return map[string]domain.Quiz{
		id: {
			ID:      id,
			OwnerID: "0d9e8f7a-6b5c-4d3e-2f10-a9b8c7d6e5f4",
			Title:   "Warm-up",
			Questions: []domain.Question{
				{
					Text:         "What is 2 + 2?",
					Options:      []string{"3", "4", "5", "22"},
					CorrectIndex: 1,
				},
				{
					Text:             "Which planet is closest to the sun?",
					Options:          []string{"Venus", "Earth", "Mercury", "Mars"},
					CorrectIndex:     2,
					TimeLimitSeconds: 20,
					BasePoints:       30,
				},
			},
		},
	}
}
