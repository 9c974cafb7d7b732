// Package app wires configuration, storage, key material and the HTTP
// server into the running service.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ptetdev/ptet/internal/auth/keys"
	"github.com/ptetdev/ptet/internal/auth/token"
	"github.com/ptetdev/ptet/internal/handler"
	"github.com/ptetdev/ptet/internal/storage/database"
	"github.com/ptetdev/ptet/pkg/health"
	"github.com/ptetdev/ptet/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles
// graceful shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	bdb, err := database.Open(cfg.Database)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer func() { _ = bdb.Close() }()

	if err := database.Migrate(ctx, bdb); err != nil {
		return errors.Wrap(err, "apply schema")
	}

	keyCache, err := keys.Open(cfg.KeysDir)
	if err != nil {
		return errors.Wrap(err, "open key directory")
	}
	if keyCache.DefaultKeyID() == "" {
		lg.Warn("Key directory holds no keys, all tokens will be rejected",
			zap.String("dir", cfg.KeysDir))
	}

	verifier := token.NewVerifier(keyCache).
		ExpectAudience(cfg.ServerBaseURI).
		WithMaxExpiration(cfg.JWT.MaxExpiration)
	if cfg.JWT.ExpectIssuer != "" {
		verifier = verifier.ExpectIssuer(cfg.JWT.ExpectIssuer)
	}
	if cutoff, err := cfg.JWT.IssuedAfterTime(); err != nil {
		return err
	} else if !cutoff.IsZero() {
		verifier = verifier.MustBeIssuedAfter(cutoff)
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("database", 5*time.Second, func(ctx context.Context) error {
		return bdb.PingContext(ctx)
	})
	healthSvc.AddReadinessCheck("keys", time.Second, func(context.Context) error {
		_, err := keyCache.Store().KeyIDs()
		return err
	})

	h := handler.NewHandler(
		verifier,
		database.NewUserRepository(bdb),
		database.NewRideRepository(bdb),
		database.NewTagRepository(bdb),
		database.NewRideTagRepository(bdb),
		lg.Named("handler"),
	)

	mux := chi.NewRouter()
	mux.Method(http.MethodGet, "/livez", healthSvc.LivenessHandler())
	mux.Method(http.MethodGet, "/readyz", healthSvc.ReadinessHandler())
	mux.Mount("/api/v1", h.Routes())

	wrapped := httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins: cfg.CORS.Origins,
			AllowHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:       86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(wrapped, "ptet-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}
	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	// Graceful shutdown: drop readiness, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}
