package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/config"
	"exam-quiz-service/internal/domain"
	"exam-quiz-service/internal/infra/memory"
	"exam-quiz-service/internal/infra/postgres"
	redisinfra "exam-quiz-service/internal/infra/redis"
	"exam-quiz-service/internal/questionstore"
	transport "exam-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	defaultQuestionTimeout  = 5 * time.Second
	defaultQuestionCacheTTL = 30 * time.Second
	defaultSubmissionGrace  = 2 * time.Minute
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

type questionBackend interface {
	app.QuestionResolver
	app.QuestionGenerator
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	config.InitLogger(cfg.Log.Level, cfg.Log.Format)
	log := config.Logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var (
		quizzes     app.QuizRepository       = memory.NewQuizRepository()
		submissions app.SubmissionRepository = memory.NewSubmissionStore()
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		quizzes = postgres.NewQuizStore(pool)
		submissions = postgres.NewSubmissionStore(pool)
	} else {
		log.Warn("postgres not configured; quizzes and submissions are kept in memory")
	}

	questionTimeout := config.Duration(cfg.QuestionStore.Timeout, defaultQuestionTimeout)
	var backend questionBackend
	if cfg.QuestionStore.BaseURL != "" {
		backend = questionstore.NewClient(cfg.QuestionStore.BaseURL, &http.Client{Timeout: questionTimeout})
	} else {
		log.Warn("question store not configured; serving built-in sample questions")
		backend = sampleQuestionStore()
	}

	cacheTTL := config.Duration(cfg.QuestionStore.CacheTTL, defaultQuestionCacheTTL)
	var resolver app.QuestionResolver
	if redisClient != nil {
		resolver = redisinfra.NewQuestionCache(redisClient, backend, cacheTTL, log).WithFetchTimeout(questionTimeout)
	} else {
		resolver = memory.NewQuestionCache(backend, cacheTTL).WithFetchTimeout(questionTimeout)
	}

	codec, err := app.AnswerCodecByName(cfg.Submissions.AnswerFormat)
	if err != nil {
		return err
	}

	feed := app.NewResultsFeed()
	opts := []app.Option{
		app.WithAnswerCodec(codec),
		app.WithResultsFeed(feed),
		app.WithResolveTimeout(questionTimeout),
		app.WithSubmissionGrace(config.Duration(cfg.Quiz.SubmissionGrace, defaultSubmissionGrace)),
	}
	if redisClient != nil {
		relay := redisinfra.NewEventRelay(redisClient, feed, log)
		opts = append(opts, app.WithSubmissionPublisher(relay))
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("submission relay stopped")
			}
		}()
	}
	service := app.NewQuizService(quizzes, submissions, resolver, backend, opts...)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestionStore stands in for the question store during local runs.
func sampleQuestionStore() *memory.StaticQuestionStore {
	return memory.NewStaticQuestionStore(
		domain.Question{ID: 1, Title: "What is the capital of France?", Type: "SHORT", CorrectAnswer: "Paris", Points: 10},
		domain.Question{ID: 2, Title: "What is 2 + 2?", Type: domain.QuestionTypeMCQ, Options: [4]string{"3", "4", "5", "22"}, CorrectAnswer: "4", Points: 5},
		domain.Question{ID: 3, Title: "Which planet is known as the red planet?", Type: domain.QuestionTypeMCQ, Options: [4]string{"Venus", "Mars", "Jupiter", "Saturn"}, CorrectAnswer: "Mars", Points: 5},
	).WithCategory("general", 1, 2, 3)
}
