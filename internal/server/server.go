package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/pixelquest/internal/backup"
	"github.com/dukerupert/pixelquest/internal/coach"
	"github.com/dukerupert/pixelquest/internal/config"
	"github.com/dukerupert/pixelquest/internal/database"
	"github.com/dukerupert/pixelquest/internal/handler"
	"github.com/dukerupert/pixelquest/internal/metrics"
	"github.com/dukerupert/pixelquest/internal/middleware"
	"github.com/dukerupert/pixelquest/internal/resolution"
	"github.com/dukerupert/pixelquest/internal/session"
	ws "github.com/dukerupert/pixelquest/internal/websocket"
)

const (
	loginLimit  = 10
	coachLimit  = 5
	limitWindow = time.Minute
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	origins       []string
	registry      *prometheus.Registry
	sessions      *session.Manager
	resolutions   *resolution.Manager
	backupManager *backup.Manager
	resolutionH   *handler.ResolutionHandler
	sessionH      *handler.SessionHandler
	coachH        *handler.CoachHandler
	backupH       *handler.BackupHandler
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

// New wires every component. backend overrides the coach backend built
// from cfg when non-nil.
func New(cfg config.Config, db *sql.DB, backend coach.Backend, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sessions := session.NewManager(db, hub, logger.With("component", "session"))
	resolutions := resolution.NewManager(db, hub, m, logger.With("component", "resolution"))

	advisor := NewAdvisor(cfg, backend, m, logger.With("component", "coach"))
	backupMgr := NewBackupManager(cfg, db, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, logger.With("component", "backup"))

	return &Server{
		db:            db,
		hub:           hub,
		origins:       cfg.AllowedOrigins,
		registry:      reg,
		sessions:      sessions,
		resolutions:   resolutions,
		backupManager: backupMgr,
		resolutionH:   handler.NewResolutionHandler(resolutions, logger.With("component", "resolution_handler")),
		sessionH:      handler.NewSessionHandler(sessions, logger.With("component", "session_handler")),
		coachH:        handler.NewCoachHandler(advisor, resolutions, logger.With("component", "coach_handler")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// NewAdvisor builds the coach advisor from cfg. backend overrides the
// OpenAI backend when non-nil.
func NewAdvisor(cfg config.Config, backend coach.Backend, m *metrics.Metrics, logger *slog.Logger) *coach.Advisor {
	if backend == nil {
		backend = coach.NewBackend(coach.OpenAIConfig{
			APIKey:     cfg.Coach.APIKey,
			BaseURL:    cfg.Coach.BaseURL,
			Model:      cfg.Coach.Model,
			ImageModel: cfg.Coach.ImageModel,
		})
	}
	return coach.NewAdvisor(backend, coach.Config{
		Timeout:   cfg.Coach.Timeout,
		AvatarTTL: cfg.Coach.AvatarTTL,
	}, m, logger)
}

// NewBackupManager builds the backup manager from cfg.
func NewBackupManager(cfg config.Config, db *sql.DB, callback backup.StatusCallback, logger *slog.Logger) *backup.Manager {
	return backup.NewManager(backup.Config{
		Dir:        cfg.Backup.Dir,
		Interval:   cfg.Backup.Interval,
		Passphrase: cfg.Backup.Passphrase,
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3.Endpoint,
			Bucket:    cfg.Backup.S3.Bucket,
			Region:    cfg.Backup.S3.Region,
			AccessKey: cfg.Backup.S3.AccessKey,
			SecretKey: cfg.Backup.S3.SecretKey,
		},
	}, db, callback, logger)
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no session required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	outerMux.HandleFunc("GET /ws", ws.Handler(s.hub, s.origins))
	outerMux.HandleFunc("POST /api/session", s.rateLimited(s.sessionH.Login, loginLimit))
	outerMux.HandleFunc("GET /api/session", s.sessionH.Current)
	outerMux.HandleFunc("DELETE /api/session", s.sessionH.Logout)

	// Protected routes, wrapped with RequireSession middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	requireSession := middleware.RequireSession(s.sessions, s.logger.With("component", "auth"))
	outerMux.Handle("/api/", requireSession(protectedMux))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/resolutions", s.resolutionH.List)
	mux.HandleFunc("POST /api/resolutions", s.resolutionH.Create)
	mux.HandleFunc("PUT /api/resolutions/{id}", s.resolutionH.Update)
	mux.HandleFunc("DELETE /api/resolutions/{id}", s.resolutionH.Delete)
	mux.HandleFunc("POST /api/resolutions/{id}/toggle", s.resolutionH.Toggle)
	mux.HandleFunc("GET /api/resolutions/{id}/history", s.resolutionH.History)

	mux.HandleFunc("GET /api/coach", s.rateLimited(s.coachH.Consult, coachLimit))

	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.backupH.Run)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.backupH.Restore)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	version, err := database.SchemaVersion(r.Context(), s.db)
	if err != nil {
		s.logger.Warn("health check failed", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":         status,
		"schema_version": version,
		"clients":        s.hub.ClientCount(),
	})
}

func (s *Server) rateLimited(h http.HandlerFunc, limit int) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return r.URL.Path + "|" + middleware.RealIP(r)
	}
	return middleware.RateLimit(s.rateLimiter, keyFunc, limit, limitWindow)(h).ServeHTTP
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// Scheduled backups and rate limiter cleanup run alongside the listener.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.rateLimiter.RunCleanup(ctx, 5*time.Minute)
		return nil
	})
	g.Go(func() error {
		s.backupManager.Start(ctx)
		<-ctx.Done()
		s.backupManager.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
