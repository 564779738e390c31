// Package app holds the process bootstrap shared by the storefront and admin
// binaries: configuration, telemetry, store connections and the services
// built on top of them.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/dropship-storefront/internal/catalog"
	"github.com/joao-fontenele/dropship-storefront/internal/config"
	"github.com/joao-fontenele/dropship-storefront/internal/contact"
	"github.com/joao-fontenele/dropship-storefront/internal/email"
	"github.com/joao-fontenele/dropship-storefront/internal/inventory"
	"github.com/joao-fontenele/dropship-storefront/internal/messaging"
	"github.com/joao-fontenele/dropship-storefront/internal/orders"
	"github.com/joao-fontenele/dropship-storefront/internal/telemetry"
)

const version = "0.1.0"

// Runtime is a started process: telemetry is registered and both stores are
// connected.
type Runtime struct {
	Config     *config.Config
	Logger     *slog.Logger
	DB         *sql.DB
	Redis      *redis.Client
	Metrics    http.Handler
	HTTPClient *http.Client

	closers []func(context.Context) error
}

// Start loads configuration and connects to Postgres and Redis. An
// unreachable Postgres is logged and tolerated since every store has a Redis
// fallback; Redis itself is required.
func Start(ctx context.Context, serviceName string) (*Runtime, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", serviceName)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := config.Require(map[string]string{"POSTGRES_URL": cfg.PostgresURL}); err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		HTTPClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: telemetry.Transport(),
		},
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, version)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	rt.closers = append(rt.closers, shutdownTracer)

	metrics, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, version)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}
	rt.Metrics = metrics
	rt.closers = append(rt.closers, shutdownMeter)

	rt.DB, err = telemetry.OpenDB(ctx, "postgres", cfg.PostgresURL)
	switch {
	case errors.Is(err, telemetry.ErrDatabaseUnreachable):
		logger.Warn("postgres unreachable at startup, serving from fallback until it recovers", "error", err)
	case err != nil:
		rt.Close(ctx)
		return nil, err
	}
	rt.closers = append(rt.closers, func(context.Context) error { return rt.DB.Close() })

	rt.Redis, err = telemetry.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.closers = append(rt.closers, func(context.Context) error { return rt.Redis.Close() })

	return rt, nil
}

// Close releases everything Start acquired, newest first.
func (rt *Runtime) Close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.Logger.Error("shutdown error", "error", err)
		}
	}
	rt.closers = nil
}

// Mailer returns the email provider client configured for this process.
func (rt *Runtime) Mailer() *email.Client {
	cfg := rt.Config
	return email.NewClient(email.Config{
		BaseURL:   cfg.EmailAPIURL,
		ServiceID: cfg.EmailServiceID,
		PublicKey: cfg.EmailPublicKey,
		Inbox:     cfg.ContactInbox,
		Templates: email.Templates{
			OrderConfirmation: cfg.EmailTemplateOrder,
			OrderCancellation: cfg.EmailTemplateCancel,
			ContactRelay:      cfg.EmailTemplateContact,
			StaffInvitation:   cfg.EmailTemplateInvite,
		},
	}, rt.HTTPClient)
}

// Services are the domain services both HTTP binaries expose.
type Services struct {
	Catalog *catalog.Service
	Sales   *inventory.Reconciler
	Ledger  *orders.Ledger
	Contact *contact.Service
}

// Services wires every domain service to its Postgres primary and Redis
// fallback. Order events are published to Kafka when brokers are configured.
func (rt *Runtime) Services() (*Services, error) {
	salesFallback := inventory.NewRedisSalesStore(rt.Redis)
	sales, err := inventory.NewReconciler(inventory.NewSalesRepository(rt.DB), salesFallback, rt.Logger)
	if err != nil {
		return nil, err
	}

	var ledgerOpts []orders.LedgerOption
	if brokers := rt.Config.Brokers(); len(brokers) > 0 {
		created := messaging.NewProducer(brokers, messaging.TopicOrderCreated)
		cancelled := messaging.NewProducer(brokers, messaging.TopicOrderCancelled)
		rt.closers = append(rt.closers,
			func(context.Context) error { return created.Close() },
			func(context.Context) error { return cancelled.Close() },
		)
		ledgerOpts = append(ledgerOpts, orders.WithPublishers(created, cancelled))
	} else {
		rt.Logger.Warn("KAFKA_BROKERS not set, order notifications are disabled")
	}
	ledgerOpts = append(ledgerOpts, orders.WithNotifyTimeout(rt.Config.NotifyTimeout))

	ledger, err := orders.NewLedger(orders.NewOrderRepository(rt.DB), orders.NewRedisStore(rt.Redis), sales, rt.Logger, ledgerOpts...)
	if err != nil {
		return nil, err
	}

	return &Services{
		Catalog: catalog.NewService(catalog.NewProductRepository(rt.DB), catalog.NewRedisStore(rt.Redis), salesFallback, rt.Logger),
		Sales:   sales,
		Ledger:  ledger,
		Contact: contact.NewService(contact.NewRepository(rt.DB), contact.NewRedisStore(rt.Redis), rt.Mailer(), rt.Logger),
	}, nil
}

// Serve runs handler on port until SIGINT or SIGTERM, then drains in-flight
// requests.
func Serve(logger *slog.Logger, port string, handler http.Handler) error {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
