// Package main provides the fact-checking bot server entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/factcheck-tw/rumorbot/internal/analytics"
	"github.com/factcheck-tw/rumorbot/internal/config"
	"github.com/factcheck-tw/rumorbot/internal/engine"
	"github.com/factcheck-tw/rumorbot/internal/lineutil"
	"github.com/factcheck-tw/rumorbot/internal/logger"
	"github.com/factcheck-tw/rumorbot/internal/metrics"
	"github.com/factcheck-tw/rumorbot/internal/sentry"
	"github.com/factcheck-tw/rumorbot/internal/session"
	"github.com/factcheck-tw/rumorbot/internal/states"
	"github.com/factcheck-tw/rumorbot/internal/storage"
	"github.com/factcheck-tw/rumorbot/internal/webhook"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting rumorbot server")

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
	}); err != nil {
		log.WithError(err).Warn("Failed to initialize Sentry, error tracking disabled")
	} else if sentry.IsEnabled() {
		log.Info("Sentry error tracking enabled")
	}

	db, err := storage.New(cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())

	m := metrics.New(registry)
	db.SetMetrics(m)
	log.Info("Metrics initialized")

	replier, err := lineutil.NewClient(cfg.LineChannelToken, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create LINE client")
	}

	emitter := analytics.NewLogEmitter(log)
	handlers := states.New(db, emitter, log, cfg.Engine.SiteURL)

	eng := engine.New(engine.Config{
		ReplyTimeout:    cfg.Engine.ReplyTimeout,
		BatchWindow:     cfg.Engine.BatchWindow,
		UserIDBlacklist: cfg.Engine.UserIDBlacklist,
		SiteURL:         cfg.Engine.SiteURL,
	}, engine.Deps{
		Sessions:   session.NewManager(db),
		Batches:    db,
		Replier:    replier,
		Dispatcher: handlers.Dispatcher(log, m),
		Processor:  handlers,
		Settings:   db,
		Analytics:  emitter,
		Logger:     log,
		Metrics:    m,
	})
	log.WithField("reply_timeout", cfg.Engine.ReplyTimeout).
		WithField("batch_window", cfg.Engine.BatchWindow).
		Info("Engine created")

	webhookHandler := webhook.NewHandler(cfg.LineChannelSecret, eng, m, log)

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(log))

	setupRoutes(router, webhookHandler, db, registry, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.WebhookHTTPRead,
		WriteTimeout: config.WebhookHTTPWrite,
		IdleTimeout:  config.WebhookHTTPIdle,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Drain in-flight webhook events first so their replies go out.
		if err := webhookHandler.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Timed out waiting for in-flight events")
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Server exited with error")
	}

	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}
	log.Info("Server stopped")
}
