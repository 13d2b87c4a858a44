// EduMind risk core - academic-risk prediction orchestration
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VoidEngineers/EduMind-sub000/internal/config"
	"github.com/VoidEngineers/EduMind-sub000/internal/draft"
	"github.com/VoidEngineers/EduMind-sub000/internal/engagement"
	"github.com/VoidEngineers/EduMind-sub000/internal/health"
	"github.com/VoidEngineers/EduMind-sub000/internal/history"
	"github.com/VoidEngineers/EduMind-sub000/internal/logging"
	"github.com/VoidEngineers/EduMind-sub000/internal/orchestrator"
	"github.com/VoidEngineers/EduMind-sub000/internal/riskclient"
	"github.com/VoidEngineers/EduMind-sub000/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	logger := logging.New("info", "text")

	logger.Info("starting edumind risk core",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Recreate the logger with the configured level and format.
	logger = logging.New(cfg.LogLevel, cfg.LogFormat)

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"xai_api", cfg.XAIBaseURL,
		"engagement_api", cfg.EngagementBaseURL,
		"data_dir", cfg.DataDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTraces, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTraces(shutdownCtx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	riskAPI := riskclient.New(cfg.XAIBaseURL, logger)
	riskAPI.HTTPClient.Timeout = cfg.HTTPTimeout
	riskAPI.MaxAttempts = cfg.RetryMaxAttempts
	riskAPI.RetryDelay = cfg.RetryDelay

	engagementAPI := engagement.New(cfg.EngagementBaseURL, logger)
	engagementAPI.HTTPClient.Timeout = cfg.HTTPTimeout

	drafts, err := draft.NewFileStore(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open draft store", "error", err)
		os.Exit(1)
	}
	predictions, err := history.NewFileStore(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open prediction history", "error", err)
		os.Exit(1)
	}

	core := orchestrator.New(riskAPI, drafts, predictions, orchestrator.Options{
		AutosaveDelay: cfg.AutosaveDelay,
		ToastTTL:      cfg.ToastTTL,
		Logger:        logger,
	})
	if err := core.LoadDraft(); err != nil && !errors.Is(err, draft.ErrNoDraft) {
		logger.Warn("failed to restore saved draft", "error", err)
	}

	registry := health.NewRegistry()
	registry.Register("risk-service", func(ctx context.Context) health.Status {
		resp, err := riskAPI.Health(ctx)
		if err != nil {
			return health.Down("risk-service", err.Error())
		}
		if !resp.ModelLoaded {
			return health.Down("risk-service", "model not loaded")
		}
		st := health.Up("risk-service")
		st.ModelLoaded = true
		return st
	})
	registry.Register("engagement-service", func(ctx context.Context) health.Status {
		if _, err := engagementAPI.Health(ctx); err != nil {
			return health.Down("engagement-service", err.Error())
		}
		return health.Up("engagement-service")
	})

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	healthy, statuses := registry.CheckAll(probeCtx)
	cancel()
	for _, s := range statuses {
		logger.Info("startup probe", "subsystem", s.Name, "healthy", s.Healthy, "latency_ms", s.LatencyMS, "detail", s.Detail)
	}
	if !healthy {
		logger.Warn("one or more upstream services are unavailable; predictions may be rejected")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthy, statuses := registry.CheckAll(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"healthy":    healthy,
			"subsystems": statuses,
		})
	})

	srv := &http.Server{
		Addr:              getEnv("OPS_ADDR", ":9090"),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("ops endpoint listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops endpoint failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops endpoint shutdown failed", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
