package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"dentalflow/internal/config"
	"dentalflow/internal/logging"
	"dentalflow/internal/mail"
	"dentalflow/internal/metrics"
	"dentalflow/internal/ops"
	"dentalflow/internal/store"
	"dentalflow/internal/trigger"
	"dentalflow/internal/worker"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.Env != "development")
	if cfg.UseMemoryStore() {
		log.Fatal("the worker needs postgres; with STORE_DRIVER=memory the server runs the worker loops itself")
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.WithError(err).Fatal("ping postgres")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	sender, err := mail.NewSender(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("mail sender")
	}
	opts, closeDeps, err := worker.Connect(ctx, cfg, m)
	if err != nil {
		log.WithError(err).Fatal("worker dependencies")
	}
	defer closeDeps()

	st := store.New(pool)
	opsSrv := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           ops.Router(st, prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("ops server stopped")
		}
	}()

	log.WithFields(log.Fields{
		"mail_provider": cfg.MailProvider,
		"push":          opts.Publisher != nil,
		"dedupe":        opts.Dedupe != nil,
	}).Info("worker starting")

	w := worker.New(cfg, st, trigger.NewListener(pool), sender, opts)
	if err := w.Run(ctx); err != nil {
		log.WithError(err).Error("worker stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = opsSrv.Shutdown(shutdownCtx)
	log.Info("worker shut down")
}
