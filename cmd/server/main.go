package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"dentalflow/internal/auth"
	"dentalflow/internal/config"
	"dentalflow/internal/gateway"
	"dentalflow/internal/handler"
	"dentalflow/internal/logging"
	"dentalflow/internal/mail"
	"dentalflow/internal/metrics"
	"dentalflow/internal/middleware"
	"dentalflow/internal/ops"
	"dentalflow/internal/rpc"
	"dentalflow/internal/store"
	"dentalflow/internal/worker"
)

type backend interface {
	handler.Store
	auth.AccountStore
	Ping(ctx context.Context) error
}

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.Env != "development")
	if err := cfg.RequireServer(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	var st backend
	if cfg.UseMemoryStore() {
		mem := store.NewMemory()
		st = mem
		// nothing else can see this store, so the worker loops run here
		sender, err := mail.NewSender(ctx, cfg)
		if err != nil {
			log.WithError(err).Fatal("mail sender")
		}
		opts, closeDeps, err := worker.Connect(ctx, cfg, m)
		if err != nil {
			log.WithError(err).Fatal("worker dependencies")
		}
		defer closeDeps()
		w := worker.New(cfg, mem, mem, sender, opts)
		go func() {
			if err := w.Run(ctx); err != nil {
				log.WithError(err).Error("in-process worker stopped")
			}
		}()
		log.Warn("using in-memory store, data is lost on exit")
	} else {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("connect postgres")
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.WithError(err).Fatal("ping postgres")
		}
		log.Info("connected to postgres")
		st = store.New(pool)
	}

	h := handler.New(st, auth.NewProvider(st, cfg.JWTSecret))

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rl.Close()
	chain := middleware.Chain(
		middleware.Observe(m),
		middleware.RateLimit(rl),
		middleware.Auth(cfg.JWTSecret),
	)

	srv := grpc.NewServer(grpc.UnaryInterceptor(chain))
	rpc.RegisterDentalFlowServer(srv, h)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.WithError(err).WithField("addr", cfg.GRPCAddr).Fatal("listen")
	}
	go func() {
		log.WithField("addr", cfg.GRPCAddr).Info("grpc listening")
		if err := srv.Serve(lis); err != nil {
			log.WithError(err).Error("grpc stopped")
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           gateway.New(h, chain).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	opsSrv := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           ops.Router(st, prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	for name, s := range map[string]*http.Server{"gateway": httpSrv, "ops": opsSrv} {
		go func() {
			log.WithFields(log.Fields{"server": name, "addr": s.Addr}).Info("http listening")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).WithField("server", name).Error("http stopped")
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	_ = opsSrv.Shutdown(shutdownCtx)
	srv.GracefulStop()
}
