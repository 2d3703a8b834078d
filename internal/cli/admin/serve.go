package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/legacy-decks/deckhand/internal/api/handlers"
	"github.com/legacy-decks/deckhand/internal/config"
	"github.com/legacy-decks/deckhand/internal/database"
	"github.com/legacy-decks/deckhand/internal/jobs"
	"github.com/legacy-decks/deckhand/internal/openai"
	"github.com/legacy-decks/deckhand/internal/repository"
	"github.com/legacy-decks/deckhand/internal/server"
	"github.com/legacy-decks/deckhand/internal/service"
	"github.com/legacy-decks/deckhand/internal/storage"
	"github.com/legacy-decks/deckhand/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the deckhand API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	assistantRepo := repository.NewAssistantRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	searchLogRepo := repository.NewSearchLogRepository(pool)

	var archive *storage.S3Client
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		archive, err = storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	var aiClient *openai.Client
	var backfillWorker *jobs.Worker
	if cfg.HasOpenAI() {
		aiClient = openai.NewClient(cfg.OpenAIAPIKey)
		backfill := jobs.NewEmbeddingBackfill(chunkRepo, aiClient)
		backfillWorker = jobs.NewWorker(backfill, 10*time.Second)
		go backfillWorker.Start(ctx)
		log.Println("embedding backfill worker started")
	}

	assistantSvc := service.NewAssistantService(assistantRepo)

	var embedding service.EmbeddingBatchClient = &disabledAI{}
	var streamer service.ChatStreamer = &disabledAI{}
	if aiClient != nil {
		embedding = aiClient
		streamer = aiClient
	}

	retrievalSvc := service.NewRetrievalServiceWithConfig(
		chunkRepo, embedding, searchLogRepo, service.DefaultRetrievalConfig(),
	)

	chatCfg := service.DefaultChatConfig()
	chatCfg.Model = cfg.OpenAIChatModel
	chatSvc := service.NewChatServiceWithConfig(assistantRepo, retrievalSvc, streamer, chatCfg)

	var documentArchive service.DocumentArchive
	var documentStore handlers.DocumentStore
	if archive != nil {
		documentArchive = archive
		documentStore = archive
	}
	indexingSvc := service.NewIndexingService(chunkRepo, embedding, documentArchive)

	routerCfg := server.RouterConfig{
		APIKey:           cfg.APIKey,
		AssistantHandler: handlers.NewAssistantHandler(assistantSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(indexingSvc, documentStore),
		SearchHandler:    handlers.NewSearchHandler(retrievalSvc),
		ChatHandler:      handlers.NewChatHandler(chatSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if backfillWorker != nil {
		backfillWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// disabledAI stands in when OPENAI_API_KEY is not set. Retrieval degrades to
// lexical ranking; chat requests fail with a clear error.
type disabledAI struct{}

func (d *disabledAI) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")
}

func (d *disabledAI) GenerateEmbeddings(ctx context.Context, texts []string) ([]openai.IndexedEmbedding, error) {
	return nil, fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")
}

func (d *disabledAI) Dimensions() int {
	return openai.DefaultEmbeddingDimensions
}

func (d *disabledAI) StreamChat(ctx context.Context, req openai.ChatRequest) (openai.ChatStream, error) {
	return nil, fmt.Errorf("chat provider not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	upToDate := err == migrate.ErrNoChange

	version, dirty, err := m.Version()
	if err == migrate.ErrNilVersion {
		log.Println("migrations: no migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	if upToDate {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
