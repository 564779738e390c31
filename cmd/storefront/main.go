package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joao-fontenele/dropship-storefront/internal/app"
	"github.com/joao-fontenele/dropship-storefront/internal/cart"
	"github.com/joao-fontenele/dropship-storefront/internal/catalog"
	"github.com/joao-fontenele/dropship-storefront/internal/checkout"
	"github.com/joao-fontenele/dropship-storefront/internal/config"
	"github.com/joao-fontenele/dropship-storefront/internal/contact"
	"github.com/joao-fontenele/dropship-storefront/internal/inventory"
	"github.com/joao-fontenele/dropship-storefront/internal/orders"
	"github.com/joao-fontenele/dropship-storefront/internal/payment"
	"github.com/joao-fontenele/dropship-storefront/internal/ratelimit"
	"github.com/joao-fontenele/dropship-storefront/internal/telemetry"
)

func main() {
	ctx := context.Background()

	rt, err := app.Start(ctx, "storefront")
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer rt.Close(ctx)

	logger := rt.Logger
	cfg := rt.Config

	services, err := rt.Services()
	if err != nil {
		logger.Error("failed to build services", "error", err)
		os.Exit(1)
	}

	provider, err := paymentProvider(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up payment provider", "error", err)
		os.Exit(1)
	}

	carts := cart.NewStore(rt.Redis)
	checkoutService := checkout.NewService(carts, provider, services.Ledger,
		checkout.NewRedisSessionStore(rt.Redis), cfg.CheckoutTTL, logger)
	limiter := ratelimit.NewLimiter(rt.Redis, cfg.RateLimitPerMinute, time.Minute, logger)

	catalogHandler := catalog.NewHandler(services.Catalog, logger)
	salesHandler := inventory.NewHandler(services.Sales, logger)
	cartHandler := cart.NewHandler(carts, services.Catalog, logger)
	checkoutHandler := checkout.NewHandler(checkoutService, logger)
	ordersHandler := orders.NewHandler(services.Ledger, logger)
	contactHandler := contact.NewHandler(services.Contact, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGet))
	mux.HandleFunc("POST /products/{id}/reviews", telemetry.WithHTTPRoute(catalogHandler.HandleAddReview))
	mux.HandleFunc("GET /products/{id}/sales", telemetry.WithHTTPRoute(salesHandler.HandleGetSales))
	mux.HandleFunc("GET /best-sellers", telemetry.WithHTTPRoute(salesHandler.HandleBestSellers))

	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(cartHandler.HandleGet))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleAdd))
	mux.HandleFunc("PATCH /cart/items/{id}", telemetry.WithHTTPRoute(cartHandler.HandleAdjust))
	mux.HandleFunc("DELETE /cart/items/{id}", telemetry.WithHTTPRoute(cartHandler.HandleRemove))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(cartHandler.HandleClear))

	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(checkoutHandler.HandleBegin))
	mux.HandleFunc("POST /checkout/{id}/complete", telemetry.WithHTTPRoute(checkoutHandler.HandleComplete))
	mux.HandleFunc("POST /checkout/{id}/cancel", telemetry.WithHTTPRoute(checkoutHandler.HandleCancel))

	mux.HandleFunc("GET /orders/history", telemetry.WithHTTPRoute(ordersHandler.HandleHistory))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(ordersHandler.HandleGet))
	mux.HandleFunc("POST /orders/{id}/cancel", telemetry.WithHTTPRoute(ordersHandler.HandleCancel))

	mux.Handle("POST /contact", limiter.Middleware("contact")(telemetry.WithHTTPRoute(contactHandler.HandleSubmit)))

	mux.Handle("GET /metrics", rt.Metrics)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if err := app.Serve(logger, cfg.Port, telemetry.Handler(mux, "storefront")); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// paymentProvider uses PayPal when credentials are configured and the local
// fake provider otherwise.
func paymentProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (checkout.PaymentProvider, error) {
	if cfg.PayPalClientID == "" {
		logger.Warn("PAYPAL_CLIENT_ID not set, using the fake payment provider")
		return payment.NewFake(cfg.PayPalReturnURL), nil
	}

	paypal, err := payment.NewPayPal(ctx, payment.PayPalConfig{
		ClientID:  cfg.PayPalClientID,
		Secret:    cfg.PayPalSecret,
		APIBase:   payment.APIBase(cfg.PayPalMode),
		Currency:  cfg.Currency,
		ReturnURL: cfg.PayPalReturnURL,
		CancelURL: cfg.PayPalCancelURL,
		Transport: telemetry.Transport(),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("using paypal payment provider", "mode", cfg.PayPalMode)
	return paypal, nil
}
