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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"medisync/internal/audit"
	"medisync/internal/auth/notify"
	authsvc "medisync/internal/auth/service"
	credentialStore "medisync/internal/auth/store/credential"
	refreshStore "medisync/internal/auth/store/refreshtoken"
	"medisync/internal/crypto"
	"medisync/internal/crypto/codec"
	"medisync/internal/jwttoken"
	"medisync/internal/platform/config"
	"medisync/internal/platform/logger"
	"medisync/internal/platform/metrics"
	"medisync/internal/platform/tracer"
	recordsService "medisync/internal/records/service"
	recordsStore "medisync/internal/records/store"
	httptransport "medisync/internal/transport/http"
)

const (
	shutdownTimeout    = 10 * time.Second
	tokenPurgeInterval = time.Hour
)

// main wires the trust core: key derivation, the encrypting record store
// with its audit hook, and the auth service. Business logic lives in the
// internal packages; this stays assembly and lifecycle.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if cfg.Development {
		log = logger.New(logger.WithLevel(slog.LevelDebug))
	}

	m := metrics.New()
	observer := metricsObserver{metrics: m}
	tr := tracer.NewOTel()

	km, err := crypto.DeriveKey([]byte(cfg.EncryptionSecret))
	if err != nil {
		log.Error("key derivation failed", "error", err)
		os.Exit(1)
	}
	cipher, err := crypto.NewCipher(km)
	if err != nil {
		log.Error("cipher initialization failed", "error", err)
		os.Exit(1)
	}
	fieldCodec := codec.New(cipher, codec.WithObserver(observer))

	auditStore := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(auditStore,
		audit.WithLogger(log),
		audit.WithObserver(observer),
	)

	recStore := recordsStore.NewInMemoryStore(fieldCodec, recorder)
	records := recordsService.NewService(recStore, auditStore,
		recordsService.WithLogger(log),
		recordsService.WithTracer(tr),
	)

	jwtService := jwttoken.New(cfg.JWTSigningKey, "medisync", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	credentials := credentialStore.NewInMemoryCredentialStore()
	refreshTokens := refreshStore.NewInMemoryRefreshTokenStore()
	auth := authsvc.NewService(credentials, refreshTokens, jwtService, recorder,
		authsvc.WithLogger(log),
		authsvc.WithMetrics(m),
		authsvc.WithTracer(tr),
		authsvc.WithNotifier(notify.NewLogNotifier(log)),
		authsvc.WithLockoutThreshold(cfg.LockoutThreshold),
		authsvc.WithResetTicketTTL(cfg.ResetTicketTTL),
	)

	auditHandler := httptransport.NewAuditHandler(records, log)

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/api", func(r chi.Router) {
		r.Use(httptransport.RequireAuth(auth, log))
		auditHandler.Register(r)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr, "development", cfg.Development)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		ticker := time.NewTicker(tokenPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := auth.PurgeExpiredRefreshTokens(ctx); err != nil {
					log.Error("refresh token purge failed", "error", err)
				}
			}
		}
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
