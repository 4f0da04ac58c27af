package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"souviens_toi/internal/api"
	"souviens_toi/internal/auth"
	"souviens_toi/internal/bucketurl"
	"souviens_toi/internal/config"
	"souviens_toi/internal/download"
	"souviens_toi/internal/notify"
	"souviens_toi/internal/objectstore/cache"
	"souviens_toi/internal/objectstore/s3store"
	"souviens_toi/internal/objectstore/supabase"
	"souviens_toi/internal/publisher"
	"souviens_toi/internal/service"
	"souviens_toi/internal/storage/memory"
	"souviens_toi/internal/storage/postgres"
)

type stores struct {
	events       service.EventStore
	stories      service.StoryStore
	eventStories service.EventStoryStore
	media        service.MediaStore
	tx           service.TransactionManager
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeDB, err := openStores(cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	objects, err := openObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up object storage", "error", err)
		os.Exit(1)
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, signed urls will not be cached until it recovers", "error", err)
		}
		objects = cache.NewSignedURLStore(objects, rdb, cfg.Storage.Bucket, logger)
		logger.Info("signed url cache enabled", "addr", cfg.Redis.Addr)
	}

	resolver := bucketurl.New(cfg.Storage.ResolverConfig())
	notifier := notify.NewDispatcher(logger)
	fetcher := download.New(download.Config{Timeout: cfg.Download.Timeout}, logger)

	relationships := service.NewRelationshipManager(
		st.stories, st.eventStories, st.media,
		st.tx, notifier, logger,
		resolver.ResolveCanonicalURL,
	)

	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()

		unsubscribe := relationships.Subscribe(rabbitMQ.OnLinkChange)
		defer unsubscribe()
	}

	handler := api.NewHandler(
		service.NewEventService(st.events, st.tx, notifier, logger),
		service.NewStoryService(st.stories, st.tx, notifier, logger),
		service.NewMediaService(st.media, objects, fetcher, resolver, st.tx, notifier, logger, cfg.Storage),
		relationships,
		service.NewStatsService(st.events, st.stories, st.media, st.tx, notifier, logger),
		logger,
	)

	router := api.NewRouter(api.RouterConfig{
		Handler:         handler,
		Verifier:        auth.NewVerifier(cfg.Supabase.JWTSecret, cfg.Supabase.JWTAudience),
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		MaxUploadMemory: cfg.Storage.MaxFileSize,
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)

		shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
		cancel()
	}()

	logger.Info("starting server",
		"addr", cfg.HTTP.Addr,
		"database", cfg.Database.Driver,
		"storage", cfg.Storage.Backend,
		"bucket", cfg.Storage.Bucket,
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	<-ctx.Done()
	logger.Info("server stopped")
}

func openStores(cfg config.DatabaseConfig, logger *slog.Logger) (*stores, func(), error) {
	if cfg.Driver == "memory" {
		logger.Warn("using in-memory database, data is lost on restart")
		mem := memory.NewStore()
		return &stores{
			events:       mem.Events(),
			stories:      mem.Stories(),
			eventStories: mem.EventStories(),
			media:        mem.Media(),
			tx:           memory.TxManager{},
		}, func() {}, nil
	}

	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database")

	return &stores{
		events:       postgres.NewEventStore(db),
		stories:      postgres.NewStoryStore(db),
		eventStories: postgres.NewEventStoryStore(db),
		media:        postgres.NewMediaStore(db),
		tx:           postgres.NewTransactionManager(db),
	}, func() { _ = db.Close() }, nil
}

func openObjectStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.ObjectStore, error) {
	if cfg.Storage.Backend == "s3" {
		return s3store.New(ctx, s3store.Config{
			Endpoint:        cfg.Storage.S3.Endpoint,
			Region:          cfg.Storage.S3.Region,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			ProjectURL:      cfg.Supabase.URL,
		}, logger)
	}

	apiKey := cfg.Supabase.ServiceKey
	if apiKey == "" {
		apiKey = cfg.Supabase.AnonKey
	}
	return supabase.New(supabase.Config{
		ProjectURL: cfg.Supabase.URL,
		Bucket:     cfg.Storage.Bucket,
		APIKey:     apiKey,
		Timeout:    cfg.Storage.Timeout,
	}, logger), nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
