package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"coverage-backend/internal/analysis"
	"coverage-backend/internal/jobs"
	"coverage-backend/internal/llm"
	"coverage-backend/internal/llm/anthropic"
	"coverage-backend/internal/llm/moonshot"
	"coverage-backend/internal/reports"
	"coverage-backend/internal/scripts"
	"coverage-backend/internal/shared/config"
	"coverage-backend/internal/shared/metrics"
	"coverage-backend/internal/shared/server/middleware"
	"coverage-backend/internal/shared/server/respond"
	"coverage-backend/internal/shared/storage/db"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	// Providers
	primary, err := moonshot.NewClient(cfg.MoonshotAPIKey, cfg.MoonshotModel)
	if err != nil {
		return nil, fmt.Errorf("moonshot client: %w", err)
	}
	var fallback llm.Client
	if cfg.AnthropicAPIKey != "" {
		fb, err := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		if err != nil {
			return nil, fmt.Errorf("anthropic client: %w", err)
		}
		fallback = fb
	} else {
		log.Printf("ANTHROPIC_API_KEY not set, provider fallback disabled")
	}

	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, opts)
		if err != nil {
			log.Printf("failed to connect database, falling back to memory: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to memory: %v", err)
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var scriptRepo scripts.Repo
	if sqlDB != nil {
		scriptRepo = &scripts.PGRepo{DB: sqlDB}
	} else {
		scriptRepo = scripts.NewMemoryRepo()
	}
	var reportRepo reports.Repo
	if sqlDB != nil {
		reportRepo = &reports.PGRepo{DB: sqlDB}
	} else {
		reportRepo = reports.NewMemoryRepo()
	}
	var jobRepo jobs.Repo
	if sqlDB != nil {
		jobRepo = &jobs.PGRepo{DB: sqlDB}
	} else {
		jobRepo = jobs.NewMemoryRepo()
	}

	pipeline := &analysis.Pipeline{
		Primary:  primary,
		Fallback: fallback,
		Reports:  reportRepo,
	}
	manager := jobs.NewManager(jobRepo, reportRepo, pipeline)
	if cfg.LLMTimeout > 0 {
		manager.Deadline = cfg.LLMTimeout
	}

	scriptHandler := &scripts.Handler{Repo: scriptRepo}
	reportHandler := &reports.Handler{Repo: reportRepo}
	jobHandler := &jobs.Handler{Manager: manager}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	scriptHandler.Register(api)
	reportHandler.Register(api)
	jobHandler.Register(api)

	r.GET("/metrics", metrics.Handler())

	return r, nil
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
