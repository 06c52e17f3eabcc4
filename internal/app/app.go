package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookstore-catalog/internal/domain/auth"
	"github.com/xenking/bookstore-catalog/internal/domain/product"
	"github.com/xenking/bookstore-catalog/internal/event"
	"github.com/xenking/bookstore-catalog/internal/handler"
	"github.com/xenking/bookstore-catalog/internal/stockcheck"
	"github.com/xenking/bookstore-catalog/internal/storage/postgres"
	"github.com/xenking/bookstore-catalog/pkg/health"
	"github.com/xenking/bookstore-catalog/pkg/httpmiddleware"
)

const serviceName = "bookstore-catalog"

// Run creates all dependencies, starts the HTTP server and the optional
// Kafka workers, and handles graceful shutdown. It is the single wiring
// point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
	)

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	policy, err := product.ParseStockPolicy(cfg.Stock.NegativePolicy)
	if err != nil {
		return errors.Wrap(err, "stock policy")
	}

	// Kafka producers. Events are only published when brokers are set.
	var (
		dispatcher *event.Dispatcher
		writers    []*kafka.Writer
	)
	newWriter := func(topic string) *kafka.Writer {
		w := &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		}
		writers = append(writers, w)
		return w
	}
	defer func() {
		for _, w := range writers {
			if err := w.Close(); err != nil {
				lg.Error("Close kafka writer", zap.String("topic", w.Topic), zap.Error(err))
			}
		}
	}()

	svcCfg := product.ServiceConfig{StockPolicy: policy}
	if cfg.Kafka.Enabled() {
		dispatcher = event.NewDispatcher(newWriter(cfg.Kafka.ProductTopic), lg, event.DispatcherConfig{
			PublishTimeout: cfg.Kafka.PublishTimeout,
			TracerProvider: m.TracerProvider(),
			Propagator:     otel.GetTextMapPropagator(),
		})
		// Flush pending events before the writers close.
		defer dispatcher.Wait()
		svcCfg.OnCreate = dispatcher
	}

	// Domain service.
	catalog := product.NewService(postgres.NewProductStore(pool), svcCfg)

	// Role gates, one per route group.
	gate := auth.NewGate(auth.GateConfig{
		Secret:       []byte(cfg.JWT.Secret),
		RequiredRole: cfg.JWT.RequiredRole,
	})
	meter := m.MeterProvider().Meter("github.com/xenking/bookstore-catalog/internal/handler")
	productSec, err := handler.NewSecurityHandler(gate, meter)
	if err != nil {
		return errors.Wrap(err, "product security handler")
	}
	stockSec, err := handler.NewSecurityHandler(gate.WithRequiredRole(cfg.JWT.StockRole), meter)
	if err != nil {
		return errors.Wrap(err, "stock security handler")
	}

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(catalog).Register(mux, productSec, stockSec)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	g, gctx := errgroup.WithContext(ctx)

	// Stock check responder.
	if cfg.Kafka.Enabled() && cfg.Kafka.StockCheckTopic != "" {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.StockCheckTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer func() {
			if err := reader.Close(); err != nil {
				lg.Error("Close kafka reader", zap.Error(err))
			}
		}()
		responder := stockcheck.NewResponder(reader, newWriter(cfg.Kafka.StockReplyTopic), catalog, lg,
			stockcheck.ResponderConfig{
				TracerProvider: m.TracerProvider(),
				Propagator:     otel.GetTextMapPropagator(),
			},
		)
		g.Go(func() error {
			return responder.Run(gctx)
		})
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
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
