package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-buzzer-service/internal/app"
	"quiz-buzzer-service/internal/config"
	"quiz-buzzer-service/internal/domain"
	"quiz-buzzer-service/internal/infra/memory"
	pgloader "quiz-buzzer-service/internal/infra/postgres"
	redisinfra "quiz-buzzer-service/internal/infra/redis"
	"quiz-buzzer-service/internal/infra/serialfeed"
	transport "quiz-buzzer-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var simulate bool
	var feedPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the buzzer coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, simulate, feedPath)
		},
	}
	cmd.Flags().BoolVar(&simulate, "simulate", false, "read simulated button presses from stdin (digits, 'RESET')")
	cmd.Flags().StringVar(&feedPath, "feed", "", "path to a buzzer-controller device emitting line-delimited JSON")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string, simulate bool, feedPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	defaults, err := cfg.QuizDefaults()
	if err != nil {
		return err
	}
	roster := cfg.RosterSize()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionSetLoader = memory.NewStaticQuestionSetLoader(sampleQuestionSets())
	if pool != nil {
		loader = pgloader.NewQuestionSetLoader(pool)
	}

	setTTL := config.TTLDuration(cfg.Quiz.SetTTL, 10*time.Minute)
	var library app.QuestionSetRepository
	if redisClient != nil {
		library = redisinfra.NewQuestionSetRepository(redisClient, loader, setTTL)
	} else {
		library = memory.NewQuestionSetRepository(loader, setTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL, roster, defaults)
	} else {
		store = memory.NewSessionStore(roster, defaults)
	}
	service := app.NewBuzzerService(store, library)
	wsHandler := transport.NewWSHandler(service)

	feedCtx, stopFeeds := context.WithCancel(ctx)
	defer stopFeeds()
	if simulate {
		feed := serialfeed.New(transport.DefaultSession, service)
		go func() {
			log.Printf("simulation feed: press 1-%d, RESET to clear", roster)
			if err := feed.Run(feedCtx, os.Stdin); err != nil && feedCtx.Err() == nil {
				log.Printf("simulation feed stopped: %v", err)
			}
		}()
	}
	if feedPath != "" {
		device, err := os.Open(feedPath)
		if err != nil {
			return err
		}
		defer device.Close()
		feed := serialfeed.New(transport.DefaultSession, service)
		go func() {
			log.Printf("controller feed attached: %s", feedPath)
			if err := feed.Run(feedCtx, device); err != nil && feedCtx.Err() == nil {
				log.Printf("controller feed stopped: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting buzzer coordinator on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}
	stopFeeds()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestionSets provides a minimal library for deployments without
// Postgres; real events load sets via the migrate/seed path.
func sampleQuestionSets() map[string]domain.QuestionSet {
	hint := "Think of primary colors"
	return map[string]domain.QuestionSet{
		"demo": {
			ID:    "demo",
			Title: "Demo questions",
			Questions: []domain.QuestionData{
				{
					Question: "What color do you get mixing red and blue?",
					Answer:   "Purple",
					Hint:     &hint,
				},
				{
					Question: "What is the capital of Japan?",
					Answer:   "Tokyo",
				},
			},
		},
	}
}
