package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joao-fontenele/dropship-storefront/internal/app"
	"github.com/joao-fontenele/dropship-storefront/internal/auth"
	"github.com/joao-fontenele/dropship-storefront/internal/catalog"
	"github.com/joao-fontenele/dropship-storefront/internal/config"
	"github.com/joao-fontenele/dropship-storefront/internal/contact"
	"github.com/joao-fontenele/dropship-storefront/internal/inventory"
	"github.com/joao-fontenele/dropship-storefront/internal/orders"
	"github.com/joao-fontenele/dropship-storefront/internal/ratelimit"
	"github.com/joao-fontenele/dropship-storefront/internal/telemetry"
)

func main() {
	ctx := context.Background()

	rt, err := app.Start(ctx, "admin")
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer rt.Close(ctx)

	logger := rt.Logger
	cfg := rt.Config

	if err := config.Require(map[string]string{"JWT_SECRET": cfg.JWTSecret}); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	services, err := rt.Services()
	if err != nil {
		logger.Error("failed to build services", "error", err)
		os.Exit(1)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewStaffRepository(rt.DB), auth.NewRedisStore(rt.Redis), tokens, rt.Mailer(), logger)

	if err := authService.EnsureOwner(ctx, cfg.AdminBootstrapEmail, cfg.AdminBootstrapPass); err != nil {
		logger.Error("failed to create bootstrap owner account", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.NewLimiter(rt.Redis, cfg.RateLimitPerMinute, time.Minute, logger)
	protect := auth.RequireStaff(tokens)

	authHandler := auth.NewHandler(authService, logger)
	catalogHandler := catalog.NewHandler(services.Catalog, logger)
	salesHandler := inventory.NewHandler(services.Sales, logger)
	ordersHandler := orders.NewHandler(services.Ledger, logger)
	contactHandler := contact.NewHandler(services.Contact, logger)

	staff := func(h http.HandlerFunc) http.Handler {
		return protect(telemetry.WithHTTPRoute(h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /auth/sign-in", limiter.Middleware("sign-in")(telemetry.WithHTTPRoute(authHandler.HandleSignIn)))
	mux.Handle("GET /auth/me", staff(authHandler.HandleMe))
	mux.Handle("POST /staff/invitations", staff(authHandler.HandleInvite))

	mux.Handle("GET /products", staff(catalogHandler.HandleList))
	mux.Handle("GET /products/{id}", staff(catalogHandler.HandleGet))
	mux.Handle("POST /products", staff(catalogHandler.HandleCreate))
	mux.Handle("PUT /products/{id}", staff(catalogHandler.HandleUpdate))
	mux.Handle("DELETE /products/{id}", staff(catalogHandler.HandleDelete))
	mux.Handle("POST /products/{id}/reviews", staff(catalogHandler.HandleAdminReply))
	mux.Handle("GET /best-sellers", staff(salesHandler.HandleBestSellers))

	mux.Handle("GET /orders", staff(ordersHandler.HandleList))
	mux.Handle("GET /orders/{id}", staff(ordersHandler.HandleGet))
	mux.Handle("PUT /orders/{id}/status", staff(ordersHandler.HandleUpdateStatus))
	mux.Handle("PUT /orders/{id}/supplier", staff(ordersHandler.HandleSetSupplier))
	mux.Handle("GET /customers/emails", staff(ordersHandler.HandleCustomerEmails))

	mux.Handle("GET /contact-messages", staff(contactHandler.HandleList))

	mux.Handle("GET /metrics", rt.Metrics)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if err := app.Serve(logger, cfg.Port, telemetry.Handler(mux, "admin")); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
