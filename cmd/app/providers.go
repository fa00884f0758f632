package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"
	"gorm.io/gorm"

	"github.com/yanqian/knowledgebase/internal/domain/audit"
	"github.com/yanqian/knowledgebase/internal/domain/question"
	"github.com/yanqian/knowledgebase/internal/infra/auditrepo"
	"github.com/yanqian/knowledgebase/internal/infra/config"
	"github.com/yanqian/knowledgebase/internal/infra/embedder"
	"github.com/yanqian/knowledgebase/internal/infra/postgres"
	"github.com/yanqian/knowledgebase/internal/infra/questionrepo"
	"github.com/yanqian/knowledgebase/internal/infra/sqlite"
	"github.com/yanqian/knowledgebase/pkg/util"
)

func provideQuestionConfig(cfg *config.Config) question.Config {
	return question.Config{
		TopK:                cfg.Search.TopK,
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
		FallbackAnswer:      cfg.Search.FallbackAnswer,
	}
}

func provideClock() util.Clock {
	return util.NowUTC
}

func usesDriver(cfg *config.Config, driver string) bool {
	return cfg.Storage.Driver == driver || cfg.AuditDriver() == driver
}

// providePostgresPool returns nil when no component needs Postgres or the database is unreachable;
// repositories then fall back to memory.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func()) {
	noop := func() {}
	if !usesDriver(cfg, config.DriverPostgres) {
		return nil, noop
	}
	dsn := strings.TrimSpace(cfg.Storage.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repositories")
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := postgres.Open(ctx, postgres.Options{
		DSN:      dsn,
		MaxConns: cfg.Storage.Postgres.MaxConns,
		MinConns: cfg.Storage.Postgres.MinConns,
	})
	if err != nil {
		logger.Error("postgres unavailable, using memory repositories", "error", err)
		return nil, noop
	}
	if cfg.Storage.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			logger.Error("postgres schema setup failed, using memory repositories", "error", err)
			pool.Close()
			return nil, noop
		}
	}
	logger.Info("postgres connection verified")
	return pool, pool.Close
}

func provideSQLiteDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, func()) {
	noop := func() {}
	if !usesDriver(cfg, config.DriverSQLite) {
		return nil, noop
	}
	db, err := sqlite.Open(cfg.Storage.SQLite.Path, logger)
	if err != nil {
		logger.Error("sqlite unavailable, using memory repositories", "error", err)
		return nil, noop
	}
	return db, func() {
		if err := sqlite.Close(db); err != nil {
			logger.Warn("sqlite close failed", "error", err)
		}
	}
}

func provideQuestionRepository(cfg *config.Config, pool *pgxpool.Pool, db *gorm.DB, logger *slog.Logger) question.Repository {
	switch {
	case cfg.Storage.Driver == config.DriverPostgres && pool != nil:
		logger.Info("question repository", "driver", config.DriverPostgres)
		return questionrepo.NewPostgresRepository(pool)
	case cfg.Storage.Driver == config.DriverSQLite && db != nil:
		repo, err := questionrepo.NewSQLiteRepository(db, cfg.Storage.AutoMigrate)
		if err != nil {
			logger.Error("sqlite question repository failed, using memory repository", "error", err)
			break
		}
		logger.Info("question repository", "driver", config.DriverSQLite, "path", cfg.Storage.SQLite.Path)
		return repo
	}
	logger.Info("question repository", "driver", config.DriverMemory)
	return questionrepo.NewMemoryRepository(nil)
}

func provideAuditRepository(cfg *config.Config, pool *pgxpool.Pool, db *gorm.DB, logger *slog.Logger) (audit.Repository, func()) {
	noop := func() {}
	driver := cfg.AuditDriver()
	switch {
	case driver == config.DriverPostgres && pool != nil:
		logger.Info("audit repository", "driver", driver)
		return auditrepo.NewPostgresRepository(pool), noop
	case driver == config.DriverSQLite && db != nil:
		repo, err := auditrepo.NewSQLiteRepository(db, cfg.Storage.AutoMigrate)
		if err != nil {
			logger.Error("sqlite audit repository failed, using memory repository", "error", err)
			break
		}
		logger.Info("audit repository", "driver", driver)
		return repo, noop
	case driver == config.DriverValkey:
		client, err := newValkeyClient(cfg.Audit.Valkey.Addr)
		if err != nil {
			logger.Error("valkey unavailable, using memory audit repository", "error", err)
			break
		}
		logger.Info("audit repository", "driver", driver, "addr", cfg.Audit.Valkey.Addr)
		return auditrepo.NewValkeyRepository(client, cfg.Audit.Valkey.Key), client.Close
	}
	logger.Info("audit repository", "driver", config.DriverMemory)
	return auditrepo.NewMemoryRepository(), noop
}

func newValkeyClient(addr string) (valkey.Client, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
		if err != nil {
			return nil, err
		}
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func provideEmbedder(cfg *config.Config, logger *slog.Logger) (question.Embedder, error) {
	if cfg.Embedding.Provider != config.ProviderOpenAI {
		logger.Info("embedding provider", "provider", config.ProviderDeterministic)
		return embedder.NewDeterministicEmbedder(question.EmbeddingDimensions), nil
	}
	e, err := embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		MaxTokens: cfg.Embedding.MaxTokens,
		Timeout:   cfg.Embedding.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("embedding provider", "provider", config.ProviderOpenAI, "model", cfg.Embedding.Model)
	return e, nil
}
