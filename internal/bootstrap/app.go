// Package bootstrap wires shared dependencies into a runnable application.
package bootstrap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-sync/internal/collab"
	"resume-sync/internal/imports"
	"resume-sync/internal/persistence"
	"resume-sync/internal/remotedoc"
	"resume-sync/internal/scoring"
	"resume-sync/internal/session"
	"resume-sync/internal/shared/config"
	"resume-sync/internal/shared/server"
	"resume-sync/internal/shared/storage/db"
	"resume-sync/internal/shared/telemetry"
	"resume-sync/internal/versions"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Cache           persistence.KeyValueStore
	Hub             *collab.Hub
	Sessions        *session.Registry
	Uploads         *imports.UploadStage
	JobLink         *imports.JobLink
	Scorer          *scoring.Resolver
	VersionsRepo    versions.VersionsRepo
	VersionsService *versions.Service
	SessionHandler  *session.Handler
	VersionsHandler *versions.Handler
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cache, err := buildCache(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Cache:   cache,
		Hub:     collab.NewHub(),
		Uploads: imports.NewUploadStage(cache),
		JobLink: imports.NewJobLink(cache),
	}

	var remote persistence.RemoteClient
	if strings.TrimSpace(cfg.RemoteDocURL) != "" {
		remote = remotedoc.NewClient(cfg.RemoteDocURL)
	}

	if strings.TrimSpace(cfg.ScoringURL) != "" {
		oracle := scoring.NewClient(cfg.ScoringURL)
		app.Scorer = scoring.NewResolver(oracle, cache, previewFromCache(cache), 0)
	}

	app.Sessions = session.NewRegistry(session.Deps{
		Cache:        cache,
		Remote:       remote,
		Importer:     app.Uploads,
		Channel:      app.Hub,
		WriteDelay:   cfg.CacheWriteDelay,
		HistoryDelay: cfg.HistoryDelay,
	})
	app.SessionHandler = session.NewHandler(app.Sessions, app.Uploads, app.JobLink, app.Scorer, cfg.SSEKeepAlive)

	if sqlDB != nil {
		app.VersionsRepo = &versions.PGRepo{DB: sqlDB}
	} else {
		app.VersionsRepo = versions.NewMemoryRepo()
	}
	app.VersionsService = &versions.Service{Repo: app.VersionsRepo}
	app.VersionsHandler = versions.NewHandler(app.VersionsService)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Sessions: app.SessionHandler,
		Versions: app.VersionsHandler,
	})

	return app, nil
}

// Close flushes live sessions and releases shared resources.
func (a *App) Close(ctx context.Context) {
	if a.Scorer != nil {
		a.Scorer.Stop()
	}
	if a.Sessions != nil {
		a.Sessions.CloseAll(ctx)
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap: DATABASE_URL empty; using in-memory version store", nil)
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap: database connect failed; using in-memory version store", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildCache(cfg config.Config) (persistence.KeyValueStore, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		telemetry.Info("bootstrap: REDIS_URL empty; using in-memory cache", nil)
		return persistence.NewMemoryStore(), nil
	}

	store, err := persistence.NewRedisStore(cfg.RedisURL)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap: redis connect failed; using in-memory cache", map[string]any{"error": err.Error()})
			return persistence.NewMemoryStore(), nil
		}
		return nil, err
	}
	return store, nil
}

// previewFromCache renders the owner's cached document snapshot as the plain
// text the scoring oracle consumes. While no snapshot has been written yet it
// returns empty text, which the resolver treats as "not ready, retry".
func previewFromCache(cache persistence.KeyValueStore) scoring.PreviewFunc {
	return func(ctx context.Context, owner string) (string, error) {
		raw, err := cache.Get(ctx, persistence.DocumentKey(owner))
		if errors.Is(err, persistence.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		var snap persistence.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return "", err
		}
		return snap.Document.PlainText(), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
