package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ledgergate/internal/account"
	"ledgergate/internal/audit"
	"ledgergate/internal/auth/handler"
	"ledgergate/internal/auth/metrics"
	"ledgergate/internal/auth/service"
	"ledgergate/internal/auth/token"
	"ledgergate/internal/platform/config"
	"ledgergate/internal/platform/httpserver"
	"ledgergate/internal/platform/logger"
	"ledgergate/internal/platform/middleware"
	platformredis "ledgergate/internal/platform/redis"
	"ledgergate/internal/registry"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accountStore, closeStore, err := buildAccountStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	auditStore := audit.NewAsyncStore(audit.NewMemoryStore(), 256)
	auditPublisher := audit.NewPublisher(auditStore)
	codec := token.NewCodec(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	verifier := registry.NewClient(cfg.RegistryBaseURL, cfg.RegistryTimeout)

	svc := service.New(
		codec,
		verifier,
		auditPublisher,
		log,
		metrics.New(),
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	resolver := account.NewResolver(accountStore, auditPublisher, log)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Logger(log))
	router.Use(middleware.ContentTypeJSON)

	gate := middleware.RequireAuth(svc, resolver, log)
	handler.New(svc, gate, log).Register(router)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting ledgergate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := auditStore.Worker().Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// buildAccountStore picks the account backend from configuration: postgres
// when a DSN is set, otherwise the in-memory store for local development,
// with an optional redis read-through cache layered on top.
func buildAccountStore(ctx context.Context, cfg config.Server, log *slog.Logger) (account.Store, func(), error) {
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	var store account.Store
	if cfg.PostgresDSN != "" {
		db, err := account.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		store = account.NewPostgresStore(db)
	} else {
		log.Warn("no account store DSN configured, using in-memory store")
		store = account.NewMemoryStore()
	}

	if cfg.Redis.URL != "" {
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		store = account.NewCachedStore(store, client.Client, cfg.AccountCacheTTL, log)
	}

	return store, closeAll, nil
}
