package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/wayBiggger/way-bigger-sub000/api"
	"github.com/wayBiggger/way-bigger-sub000/config"
	"github.com/wayBiggger/way-bigger-sub000/database"
	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
	"github.com/wayBiggger/way-bigger-sub000/services"
	"github.com/wayBiggger/way-bigger-sub000/storage"
)

// app holds every wired component. db is nil when DATABASE_URL is unset and
// cloud is nil when no cloud cache is configured.
type app struct {
	db       *database.Database
	pipeline *services.Pipeline
	local    *storage.Local
	cloud    storage.ProjectCache
	closers  []io.Closer
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing component")
		}
	}
}

// dependencies converts the app into the api layer's view of it, keeping
// absent tiers as nil interfaces.
func (a *app) dependencies() api.Dependencies {
	deps := api.Dependencies{
		LocalCache: a.local,
		Generator:  a.pipeline,
	}
	if a.cloud != nil {
		deps.CloudCache = a.cloud
	}
	if a.db != nil {
		deps.Store = a.db.ProjectRepo()
	}
	return deps
}

// setupLogger configures the global zerolog logger from LOG_LEVEL and LOG_FORMAT.
func setupLogger(c map[string]string, out io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(c, "LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(config.GetString(c, "LOG_FORMAT", "console"), "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// overlaySSM merges Parameter Store values under AWS_SSM_PARAMETER_PATH into c.
// Failures are logged and startup continues.
func overlaySSM(ctx context.Context, c map[string]string) {
	path := config.GetString(c, "AWS_SSM_PARAMETER_PATH", "")
	if path == "" {
		return
	}
	client, err := config.NewSSMClient(ctx, config.GetString(c, "AWS_REGION", ""))
	if err != nil {
		log.Warn().Err(err).Msg("ssm client unavailable, using environment only")
		return
	}
	added, err := config.LoadSSMParameters(ctx, client, path, c)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ssm overlay failed")
		return
	}
	log.Info().Int("parameters", added).Str("path", path).Msg("loaded ssm parameters")
}

// openDatabase connects to DATABASE_URL, registering DATABASE_REPLICA_URL as a
// read replica. It returns nil, nil when no database is configured.
func openDatabase(c map[string]string) (*gorm.DB, error) {
	dsn := config.GetString(c, "DATABASE_URL", "")
	if dsn == "" {
		return nil, nil
	}

	newLogger := logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt: false,
		Logger:      newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if replica := config.GetString(c, "DATABASE_REPLICA_URL", ""); replica != "" {
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.New(postgres.Config{DSN: replica, PreferSimpleProtocol: true})},
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, fmt.Errorf("registering read replica: %w", err)
		}
	}

	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("testing database connection: %w", err)
	}
	return db, nil
}

func usePgvector(c map[string]string) bool {
	return vectorProvider(c) == "pgvector"
}

func vectorProvider(c map[string]string) string {
	return strings.ToLower(config.GetString(c, "VECTOR_PROVIDER", "pinecone"))
}

// bootstrapDatabase opens the database and migrates the schema. The
// embeddings table is only created when pgvector backs the vector index.
func bootstrapDatabase(c map[string]string) (*database.Database, error) {
	db, err := openDatabase(c)
	if err != nil || db == nil {
		return nil, err
	}

	withEmbeddings := usePgvector(c)
	if withEmbeddings {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "vector"`).Error; err != nil {
			return nil, fmt.Errorf("enabling vector extension: %w", err)
		}
	}

	d := database.New(db)
	if err := d.Migrate(withEmbeddings); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &d, nil
}

// buildVectorIndex selects the index named by VECTOR_PROVIDER. A nil index
// disables semantic filtering.
func buildVectorIndex(ctx context.Context, c map[string]string, db *database.Database) services.VectorIndex {
	switch provider := vectorProvider(c); provider {
	case "pgvector":
		if db == nil {
			log.Warn().Msg("VECTOR_PROVIDER=pgvector without DATABASE_URL, novelty filter disabled")
			return nil
		}
		return services.NewPgvectorIndex(db.EmbeddingRepo())
	case "pinecone":
	default:
		log.Warn().Err(errs.NewConfigInvalidError("VECTOR_PROVIDER", provider)).Msg("novelty filter disabled")
		return nil
	}

	client, err := services.NewPineconeClient(services.PineconeConfig{
		APIKey:    config.GetString(c, "PINECONE_API_KEY", ""),
		IndexName: config.GetString(c, "PINECONE_INDEX", services.DefaultPineconeIndex),
		IndexHost: config.GetString(c, "PINECONE_INDEX_HOST", ""),
	})
	if err != nil {
		log.Info().Err(err).Msg("pinecone not configured, novelty filter disabled")
		return nil
	}
	if err := client.Resolve(ctx); err != nil {
		log.Warn().Err(err).Msg("pinecone index unavailable, novelty filter disabled")
		return nil
	}
	return services.NewPineconeIndex(client)
}

func buildNoveltyChecker(ctx context.Context, c map[string]string, db *database.Database) services.NoveltyChecker {
	embedder, err := services.NewOpenAIEmbedder(
		config.GetString(c, "OPENAI_API_KEY", ""),
		config.GetString(c, "OPENAI_EMBEDDING_MODEL", services.DefaultEmbeddingModel),
	)
	if err != nil {
		log.Info().Err(err).Msg("embeddings not configured, novelty filter disabled")
		return services.AlwaysAccept{}
	}

	index := buildVectorIndex(ctx, c, db)
	if index == nil {
		return services.AlwaysAccept{}
	}
	return services.NewNoveltyChecker(embedder, index, config.GetFloat(c, "NOVELTY_THRESHOLD", services.DefaultNoveltyThreshold))
}

func buildPipeline(ctx context.Context, c map[string]string, db *database.Database) *services.Pipeline {
	var model services.TextModel
	gemini, err := services.NewGeminiModel(ctx,
		config.GetString(c, "GOOGLE_API_KEY", ""),
		config.GetString(c, "GEMINI_MODEL", services.DefaultGeminiModel),
	)
	if err != nil {
		log.Warn().Err(err).Msg("gemini not configured, generation will serve fallback data")
	} else {
		model = gemini
	}

	opts := []services.PipelineOption{
		services.WithLimiter(services.NewRequestLimiter(config.GetInt(c, "GEMINI_REQUESTS_PER_MINUTE", services.DefaultRequestsPerMinute))),
		services.WithBreaker(services.NewCircuitBreakerState(
			config.GetSeconds(c, "CIRCUIT_BREAKER_COOLDOWN_SECONDS", services.DefaultBreakerCooldown),
			time.Now,
		)),
	}
	if db != nil {
		opts = append(opts, services.WithProjectStore(db.ProjectRepo()))
	}

	return services.NewPipeline(
		services.NewContentGenerator(model),
		buildNoveltyChecker(ctx, c, db),
		opts...,
	)
}

// buildCloudCache selects the cache named by CLOUD_STORAGE_PROVIDER. A nil
// cache disables the cloud tier.
func buildCloudCache(ctx context.Context, c map[string]string) (storage.ProjectCache, io.Closer) {
	switch provider := strings.ToLower(config.GetString(c, "CLOUD_STORAGE_PROVIDER", "gcs")); provider {
	case "none":
		return nil, nil
	case "s3":
		s3Cache, err := storage.NewS3FromEnv(ctx, config.GetString(c, "S3_BUCKET_NAME", ""), config.GetString(c, "AWS_REGION", ""))
		if err != nil {
			log.Warn().Err(err).Msg("s3 cache unavailable")
			return nil, nil
		}
		return s3Cache, nil
	case "gcs":
		if !config.Has(c, "GOOGLE_CLOUD_PROJECT_ID") {
			log.Info().Msg("GOOGLE_CLOUD_PROJECT_ID not set, cloud cache disabled")
			return nil, nil
		}
		gcs, err := storage.NewGCS(ctx, storage.GCSConfig{
			ProjectID:       config.GetString(c, "GOOGLE_CLOUD_PROJECT_ID", ""),
			BucketName:      config.GetString(c, "GCS_BUCKET_NAME", "waybigger-projects"),
			CredentialsFile: config.GetString(c, "GOOGLE_APPLICATION_CREDENTIALS", ""),
		})
		if err != nil {
			log.Warn().Err(err).Msg("gcs cache unavailable")
			return nil, nil
		}
		return gcs, gcs
	default:
		log.Warn().Err(errs.NewConfigInvalidError("CLOUD_STORAGE_PROVIDER", provider)).Msg("cloud cache disabled")
		return nil, nil
	}
}

func buildApp(ctx context.Context, c map[string]string) (*app, error) {
	db, err := bootstrapDatabase(c)
	if err != nil {
		return nil, err
	}
	if db == nil {
		log.Info().Msg("DATABASE_URL not set, durable store disabled")
	}

	local, err := storage.NewLocal(config.GetString(c, "DATA_DIR", "./data"))
	if err != nil {
		return nil, err
	}

	a := &app{
		db:       db,
		pipeline: buildPipeline(ctx, c, db),
		local:    local,
	}
	cloud, closer := buildCloudCache(ctx, c)
	if cloud != nil {
		a.cloud = cloud
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return a, nil
}

// runExpirySweep is the one-shot maintenance job: drop expired rows,
// regenerate every level and refresh the caches with non-empty results.
func runExpirySweep(ctx context.Context, a *app) error {
	logger := log.With().Str("service", "expirySweep").Logger()

	if a.db != nil {
		removed, err := a.db.ProjectRepo().DeleteExpired()
		if err != nil {
			return errs.NewDatabaseError("delete", "expired projects", err)
		}
		logger.Info().Int64("removed", removed).Msg("deleted expired projects")
		for _, level := range models.Levels {
			active, err := a.db.ProjectRepo().CountActiveByLevel(level)
			if err != nil {
				return errs.NewDatabaseError("count", "active projects", err)
			}
			logger.Info().Str("level", string(level)).Int64("active", active).Msg("active projects after sweep")
		}
	}

	results, genErr := a.pipeline.GenerateAllLevels(ctx)
	if genErr != nil {
		logger.Warn().Err(genErr).Msg("generation finished with errors")
	}

	for level, projects := range results {
		if len(projects) == 0 {
			logger.Warn().Str("level", string(level)).Msg("no projects generated, keeping existing cache")
			continue
		}
		if err := a.local.StoreProjects(ctx, level, projects); err != nil {
			return err
		}
		if a.cloud != nil {
			if err := a.cloud.StoreProjects(ctx, level, projects); err != nil {
				logger.Warn().Err(err).Str("level", string(level)).Msg("cloud cache write failed")
			}
		}
		logger.Info().Str("level", string(level)).Int("count", len(projects)).Msg("refreshed cache")
	}
	return nil
}

// runWipe is the one-shot level-scoped wipe: every durable row for the level
// and its cached lists are removed.
func runWipe(ctx context.Context, a *app, rawLevel string) error {
	level, err := models.ParseLevel(rawLevel)
	if err != nil {
		return errs.NewConfigInvalidError("WIPE_LEVEL", rawLevel)
	}
	logger := log.With().Str("service", "wipe").Str("level", string(level)).Logger()

	if a.db != nil {
		removed, err := a.db.ProjectRepo().DeleteByLevel(level)
		if err != nil {
			return errs.NewDatabaseError("delete", "generated projects", err)
		}
		logger.Info().Int64("removed", removed).Msg("deleted stored projects")
	}

	if err := a.local.DeleteProjects(ctx, level); err != nil {
		return err
	}
	if a.cloud != nil {
		if err := a.cloud.DeleteProjects(ctx, level); err != nil {
			return err
		}
	}
	logger.Info().Msg("cleared cached projects")
	return nil
}
