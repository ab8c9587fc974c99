package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/s2010/story-twister/internal/audit"
	"github.com/s2010/story-twister/internal/config"
	"github.com/s2010/story-twister/internal/database"
	"github.com/s2010/story-twister/internal/generator"
	"github.com/s2010/story-twister/internal/handler"
	"github.com/s2010/story-twister/internal/router"
	"github.com/s2010/story-twister/internal/service"
)

// API is the HTTP + WebSocket API application.
type API struct {
	cfg *config.Config
	srv *http.Server
	db  *gorm.DB
	hub *service.FeedHub
	log *zap.Logger
}

// NewAPI creates the API application: validates config, runs migrations,
// opens the DB, wires services and builds the router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}

	var client generator.Client
	if cfg.Generator.APIKey != "" {
		client = generator.NewHTTPClient(cfg.Generator)
		logger.Info("text generator configured", zap.String("model", cfg.Generator.Model))
	} else {
		logger.Info("text generator not configured, using fallback pools")
	}
	writer := generator.NewWriter(client, cfg.Generator, logger)

	hub := service.NewFeedHub(logger)
	storySvc := service.NewStoryService(db, cfg, writer, hub, logger)
	sessionSvc := service.NewSessionService(db, cfg, storySvc, hub, logger)
	analysisSvc := service.NewAnalysisService(db, cfg, writer, storySvc, hub, logger)
	reportSvc := service.NewReportService(db, storySvc, logger)
	recorder := audit.NewRecorder(db, logger)

	sessionHandler := handler.NewSessionHandler(sessionSvc)
	storyHandler := handler.NewStoryHandler(storySvc, analysisSvc, reportSvc)
	adminHandler := handler.NewAdminHandler(sessionSvc, storySvc, reportSvc, recorder, cfg.FrontendURL)
	feedWS := handler.NewFeedWSHandler(hub, sessionSvc, logger)
	health := handler.NewHealthHandler()

	r := router.New(sessionHandler, storyHandler, adminHandler, feedWS, health, cfg.AdminToken)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, db: db, hub: hub, log: logger}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled; then shuts
// down gracefully.
func (a *API) Run(ctx context.Context) error {
	addr := a.srv.Addr
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", addr)
	log.Printf("  Health:      %s/health", base)
	log.Printf("  Ready:       %s/ready", base)
	log.Printf("  API:         %s/api/v1", base)
	log.Printf("  Admin:       %s/api/v1/admin", base)
	log.Printf("  WebSocket:   ws://%s:%s/ws/feed/:team_code", host, a.cfg.HTTPPort)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	_ = a.log.Sync()
	return nil
}
