// Package app wires the discount service together: configuration, lookup
// clients, the rule engine, HTTP routing, health probes and graceful
// shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lubart/discount-service/internal/domain/discount"
	"github.com/lubart/discount-service/internal/entity"
	"github.com/lubart/discount-service/internal/entityclient"
	"github.com/lubart/discount-service/internal/handler"
	"github.com/lubart/discount-service/pkg/health"
	"github.com/lubart/discount-service/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// Entity service endpoints. With no explicit URLs configured the server
	// resolves entities against its own embedded simulator.
	customerURL := cfg.CustomerServiceURL
	productURL := cfg.ProductServiceURL
	if customerURL == "" {
		customerURL = selfBaseURL(cfg.Addr)
	}
	if productURL == "" {
		productURL = selfBaseURL(cfg.Addr)
	}
	if (cfg.CustomerServiceURL == "" || cfg.ProductServiceURL == "") && !cfg.EmbedEntities {
		return errors.New("entity service URL is required when the embedded entity fixtures are disabled")
	}

	clientOpts := entityclient.Options{
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
		Timeout:        cfg.LookupTimeout,
	}
	customers := entityclient.NewCustomerClient(customerURL, clientOpts)
	products := entityclient.NewProductClient(productURL, clientOpts)

	params, err := cfg.Rules.Params()
	if err != nil {
		return errors.Wrap(err, "rule parameters")
	}
	engine := discount.NewEngine(customers, products, params)

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddReadinessCheck("customer-service", 5*time.Second,
		health.HTTPGetCheck(nil, customerURL+"/customer/1"))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Routing: health probes, the embedded entity simulator, and the
	// discount endpoints with a JSON 404 fallback.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	if cfg.EmbedEntities {
		entity.NewHandler().Register(mux)
	}
	handler.NewHandler(engine).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Drain before shutdown: flip readiness first so load balancers stop
		// routing, then give in-flight requests a grace period.
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}
