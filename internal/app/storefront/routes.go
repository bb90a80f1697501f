// Package storefront предоставляет маршруты шлюза витрины.
package storefront

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/ev-storefront/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/ev-storefront/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/ev-storefront/internal/http/handlers/auth/profile"
	"github.com/magabrotheeeer/ev-storefront/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/ev-storefront/internal/http/handlers/cart/add"
	"github.com/magabrotheeeer/ev-storefront/internal/http/handlers/cart/clear"
	"github.com/magabrotheeeer/ev-storefront/internal/http/handlers/cart/list"
	"github.com/magabrotheeeer/ev-storefront/internal/http/handlers/cart/remove"
	"github.com/magabrotheeeer/ev-storefront/internal/http/handlers/cart/update"
	"github.com/magabrotheeeer/ev-storefront/internal/http/handlers/checkout/finalize"
	"github.com/magabrotheeeer/ev-storefront/internal/http/middlewarectx"
	storefrontservice "github.com/magabrotheeeer/ev-storefront/internal/storefront"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, service *storefrontservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.VisitorMiddleware())
		r.Use(middlewarectx.RateLimitMiddleware(logger))

		r.Post("/register", register.New(logger, service).ServeHTTP)
		r.Post("/login", login.New(logger, service).ServeHTTP)
		r.Post("/logout", logout.New(logger, service).ServeHTTP)
		r.Get("/profile", profile.New(logger, service).ServeHTTP)

		r.Get("/cart", list.New(logger, service).ServeHTTP)
		r.Post("/cart", add.New(logger, service).ServeHTTP)
		r.Put("/cart/{id}", update.New(logger, service).ServeHTTP)
		r.Delete("/cart/{id}", remove.New(logger, service).ServeHTTP)
		r.Delete("/cart", clear.New(logger, service).ServeHTTP)

		r.Post("/checkout/complete", finalize.New(logger, service).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
