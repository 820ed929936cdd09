package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conference-orchestrator/internal/mixerctl"
	"conference-orchestrator/internal/orchestrator"
	"conference-orchestrator/internal/platform/config"
	"conference-orchestrator/internal/platform/logger"
	"conference-orchestrator/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// metricsHooks feeds conference lifecycle notifications into the Prometheus
// counters. Registered as an ordinary orchestrator listener.
type metricsHooks struct {
	m *metrics.Metrics
}

func (h metricsHooks) OnConferenceCreated(conf orchestrator.Conference) {
	h.m.IncConferencesCreated()
	if conf.AdHoc() {
		h.m.IncAdHocConferences()
	}
}

func (h metricsHooks) OnConferenceDestroyed(confID string) {
	h.m.IncConferencesEnded()
}

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	confDir := config.GetEnv("CONF_DIR", "conf")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	shutdownTimeout := config.GetEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	log := logger.New(logLevel, logFormat)

	store, err := orchestrator.NewFileStore(confDir)
	if err != nil {
		log.Error("open catalog store", "dir", confDir, "error", err)
		os.Exit(1)
	}

	mixers := orchestrator.NewMixerRegistry(store, log)
	profiles := orchestrator.NewProfileCatalog(store, log)
	templates := orchestrator.NewTemplateCatalog(store, mixers, profiles, log)
	// Templates validate mixer/profile references, so they load last.
	if err := mixers.Load(); err != nil {
		log.Error("catalog load failed", "catalog", "mixers", "error", err)
	}
	if err := profiles.Load(); err != nil {
		log.Error("catalog load failed", "catalog", "profiles", "error", err)
	}
	if err := templates.Load(); err != nil {
		log.Error("catalog load failed", "catalog", "templates", "error", err)
	}

	factory := mixerctl.NewFactory(log)
	orch := orchestrator.New(log, mixers, profiles, templates, factory, factory)

	met := metrics.New()
	orch.AddListener(metricsHooks{m: met})

	h := orchestrator.NewHandler(orch, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() {
			met.SetActiveConferences(orch.ActiveConferenceCount())
			met.SetActiveBroadcasts(orch.BroadcastCount())
		}).ServeHTTP(w, req)
	})
	r.Mount("/", h.Routes())

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"conf_dir", confDir,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
