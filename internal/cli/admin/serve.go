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
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/baatasaari/agenthub-knowledge/internal/api/handlers"
	"github.com/baatasaari/agenthub-knowledge/internal/config"
	"github.com/baatasaari/agenthub-knowledge/internal/embedding"
	"github.com/baatasaari/agenthub-knowledge/internal/jobs"
	"github.com/baatasaari/agenthub-knowledge/internal/knowledge"
	"github.com/baatasaari/agenthub-knowledge/internal/openai"
	"github.com/baatasaari/agenthub-knowledge/internal/repository"
	"github.com/baatasaari/agenthub-knowledge/internal/server"
	"github.com/baatasaari/agenthub-knowledge/internal/storage"
	"github.com/baatasaari/agenthub-knowledge/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the knowledge API server",
		Long:  "Start the knowledge engine API server on the specified port",
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
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnv,
			TracesSampleRate: cfg.SentrySampleRate,
			Debug:            cfg.Debug,
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

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	tenantRepo := repository.NewTenantConfigRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	cacheRepo := repository.NewEmbeddingCacheRepository(pool)

	store := knowledge.NewStore()
	adminSvc := knowledge.NewAdminService(store,
		knowledge.WithTenantConfigStore(tenantRepo),
		knowledge.WithDocumentLoader(docRepo),
	)

	tenants, err := adminSvc.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild knowledge store: %w", err)
	}
	log.Printf("knowledge store rebuilt for %d tenants", tenants)

	ingestOpts := []knowledge.IngestOption{
		knowledge.WithDocumentRepository(docRepo),
		knowledge.WithEmbedConcurrency(cfg.EmbedConcurrency),
	}

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		ingestOpts = append(ingestOpts, knowledge.WithContentFetcher(s3Client))
	}

	var (
		ingestSvc handlers.IngestionService
		querySvc  handlers.QueryService
		sweeper   *jobs.CacheSweeper
	)
	if cfg.HasOpenAI() {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		cache := embedding.NewCache(client,
			embedding.WithTTL(cfg.CacheTTL),
			embedding.WithMirror(cacheRepo),
		)

		ingestSvc = knowledge.NewIngestService(store, cache, ingestOpts...)
		synthesizer := knowledge.NewSynthesizer(client, cfg.MaxContextChars)
		querySvc = knowledge.NewQueryService(store, cache, synthesizer,
			knowledge.WithRankConfig(knowledge.RankConfig{
				SimilarityThreshold: cfg.SimilarityThreshold,
				TopK:                cfg.TopK,
			}),
			knowledge.WithQueryTimeout(cfg.QueryTimeout),
		)
		sweeper = jobs.NewCacheSweeper(cache, cacheRepo)
	} else {
		log.Println("OPENAI_API_KEY not set; ingestion and query are disabled")
		ingestSvc = &NoOpIngestionService{}
		querySvc = &NoOpQueryService{}
		sweeper = jobs.NewCacheSweeper(nil, cacheRepo)
	}

	sweepWorker := jobs.NewWorker(sweeper, cfg.SweepInterval)
	go sweepWorker.Start(ctx)
	log.Println("cache sweep worker started")

	router := server.NewRouter(server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(ingestSvc, querySvc, adminSvc),
		ConfigHandler:    handlers.NewConfigHandler(adminSvc),
	})

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

	sweepWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type NoOpIngestionService struct{}

func (s *NoOpIngestionService) Ingest(ctx context.Context, req knowledge.IngestRequest) (*knowledge.IngestResult, error) {
	return nil, fmt.Errorf("ingestion not configured: OPENAI_API_KEY required")
}

func (s *NoOpIngestionService) DeleteDocument(ctx context.Context, tenantID, documentID string) (int, error) {
	return 0, fmt.Errorf("ingestion not configured: OPENAI_API_KEY required")
}

func (s *NoOpIngestionService) DeleteAll(ctx context.Context, tenantID string) (int, error) {
	return 0, fmt.Errorf("ingestion not configured: OPENAI_API_KEY required")
}

type NoOpQueryService struct{}

func (s *NoOpQueryService) Query(ctx context.Context, req knowledge.QueryRequest) (*knowledge.QueryResult, error) {
	return nil, fmt.Errorf("query not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// golang-migrate wants a database/sql connection
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

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
