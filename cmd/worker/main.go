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

	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/dropship-storefront/internal/config"
	"github.com/joao-fontenele/dropship-storefront/internal/email"
	"github.com/joao-fontenele/dropship-storefront/internal/messaging"
	"github.com/joao-fontenele/dropship-storefront/internal/telemetry"
	"github.com/joao-fontenele/dropship-storefront/internal/worker"
)

const groupID = "notification-worker"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.Require(map[string]string{
		"KAFKA_BROKERS":    cfg.KafkaBrokers,
		"EMAIL_SERVICE_ID": cfg.EmailServiceID,
		"EMAIL_PUBLIC_KEY": cfg.EmailPublicKey,
	}); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, "worker", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: telemetry.Transport(),
	}

	mailer := email.NewClient(email.Config{
		BaseURL:   cfg.EmailAPIURL,
		ServiceID: cfg.EmailServiceID,
		PublicKey: cfg.EmailPublicKey,
		Templates: email.Templates{
			OrderConfirmation: cfg.EmailTemplateOrder,
			OrderCancellation: cfg.EmailTemplateCancel,
		},
	}, httpClient)
	notificationHandler := worker.NewNotificationHandler(mailer, logger)

	brokers := cfg.Brokers()
	opts := []messaging.ConsumerOption{
		messaging.WithRetries(3, 2*time.Second),
		messaging.WithLogger(logger),
	}
	createdConsumer := messaging.NewConsumer(brokers, messaging.TopicOrderCreated, groupID, opts...)
	defer func() { _ = createdConsumer.Close() }()
	cancelledConsumer := messaging.NewConsumer(brokers, messaging.TopicOrderCancelled, groupID, opts...)
	defer func() { _ = cancelledConsumer.Close() }()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting notification worker", "brokers", brokers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return createdConsumer.Consume(gctx, notificationHandler.HandleOrderCreated)
	})
	g.Go(func() error {
		return cancelledConsumer.Consume(gctx, notificationHandler.HandleOrderCancelled)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("consumers stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
