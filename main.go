package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"foodgram/internal/cache"
	"foodgram/internal/config"
	"foodgram/internal/database"
	"foodgram/internal/importer"
	"foodgram/internal/logging"
	"foodgram/internal/middleware"
	"foodgram/internal/repositories"
	"foodgram/internal/services"
	"foodgram/internal/storage"
	"foodgram/pkg/rabbitmq"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}

	root := &cobra.Command{
		Use:          "foodgram",
		Short:        "Foodgram recipe sharing backend",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			if _, err := database.OpenAndMigrate(cfg.DatabaseDriver, cfg.DatabaseDSN); err != nil {
				return err
			}
			slog.Info("database migrated", "driver", cfg.DatabaseDriver)
			return nil
		},
	}

	var csvPath string
	importIngredients := &cobra.Command{
		Use:   "import-ingredients",
		Short: "Load ingredients from a name,measurement_unit CSV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd.Context(), envFile, csvPath)
		},
	}
	importIngredients.Flags().StringVar(&csvPath, "file", "data/ingredients.csv", "path to the CSV file")

	var tagsPath string
	importTags := &cobra.Command{
		Use:   "import-tags",
		Short: "Load tags from a name,color,slug CSV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImportTags(cmd.Context(), envFile, tagsPath)
		},
	}
	importTags.Flags().StringVar(&tagsPath, "file", "data/tags.csv", "path to the CSV file")

	root.AddCommand(serve, migrate, importIngredients, importTags)
	return root
}

func loadConfig(envFile string) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel)
	return cfg, nil
}

// openForImport loads config, migrates the database and opens the CSV file.
// Imports run without a cache; a running server picks the new rows up once
// its entries expire.
func openForImport(envFile, path string) (*gorm.DB, *os.File, error) {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.OpenAndMigrate(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return db, f, nil
}

func runImport(ctx context.Context, envFile, path string) error {
	db, f, err := openForImport(envFile, path)
	if err != nil {
		return err
	}
	defer f.Close()

	sink := services.NewIngredientService(repositories.NewGORMIngredientRepository(db), nil, 0)
	res, err := importer.ImportIngredients(ctx, f, sink)
	if err != nil {
		return err
	}
	slog.Info("ingredients imported", "file", path, "read", res.Read, "inserted", res.Inserted)
	return nil
}

func runImportTags(ctx context.Context, envFile, path string) error {
	db, f, err := openForImport(envFile, path)
	if err != nil {
		return err
	}
	defer f.Close()

	sink := services.NewTagService(repositories.NewGORMTagRepository(db), nil, 0)
	res, err := importer.ImportTags(ctx, f, sink)
	if err != nil {
		return err
	}
	slog.Info("tags imported", "file", path, "read", res.Read, "inserted", res.Inserted)
	return nil
}

func runServe(ctx context.Context, envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db, err := database.OpenAndMigrate(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}

	c, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	images, mediaRoot, err := openImageStore(cfg)
	if err != nil {
		return err
	}

	events, closeEvents, err := openEvents(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeEvents()

	limiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)
	app := NewApp(cfg, Resources{
		DB:           db,
		Cache:        c,
		Images:       images,
		Events:       events,
		MediaRoot:    mediaRoot,
		LoginLimiter: limiter,
	})

	// Periodically drop idle limiter buckets and expired in-process cache entries.
	janitorTasks := []func(){limiter.Cleanup}
	if mc, ok := c.(*cache.MemoryCache); ok {
		janitorTasks = append(janitorTasks, func() {
			if n := mc.DeleteExpired(); n > 0 {
				slog.Debug("swept expired cache entries", "count", n)
			}
		})
	}
	go runJanitor(ctx, janitorInterval, janitorTasks...)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.AppPort)
		listenErr <- app.Listen(cfg.AppPort)
	}()

	// Wait for interrupt signal to gracefully shut down the server
	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	slog.Info("shutting down server")

	if err := app.Shutdown(); err != nil {
		slog.Error("error during fiber shutdown", "error", err)
	}
	slog.Info("server gracefully stopped")
	return nil
}

const janitorInterval = time.Minute

// runJanitor calls every task once per interval until ctx is cancelled.
func runJanitor(ctx context.Context, interval time.Duration, tasks ...func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, task := range tasks {
				task()
			}
		case <-ctx.Done():
			return
		}
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryCache(), func() {}, nil
	}
	rc, err := cache.NewRedisCache(ctx, cfg.RedisURL, "foodgram:")
	if err != nil {
		return nil, nil, err
	}
	return rc, func() {
		if err := rc.Close(); err != nil {
			slog.Error("failed to close redis", "error", err)
		}
	}, nil
}

// openImageStore returns the configured store and, for local disk, the
// directory to serve at MEDIA_URL.
func openImageStore(cfg *config.Config) (storage.ImageStore, string, error) {
	if cfg.S3.Enabled() {
		return storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
		}), "", nil
	}
	local, err := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
	if err != nil {
		return nil, "", err
	}
	return local, local.Root(), nil
}

// openEvents connects to RabbitMQ when configured and starts the subscriber
// notification consumer on the same queue.
func openEvents(ctx context.Context, cfg *config.Config, db *gorm.DB) (rabbitmq.Publisher, func(), error) {
	if cfg.RabbitMQURL == "" {
		slog.Info("RABBITMQ_URL not set, recipe events are disabled")
		return rabbitmq.NopPublisher{}, func() {}, nil
	}
	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
	}

	notifier := services.NewNotificationService(repositories.NewGORMSubscriptionRepository(db), slog.Default())
	if err := client.ConsumeRecipeEvents(ctx, notifier.HandleRecipeEvent); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to start RabbitMQ consumer: %w", err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			slog.Error("failed to close RabbitMQ client", "error", err)
		}
	}, nil
}
