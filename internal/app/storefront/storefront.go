// Package storefront собирает и запускает HTTP-шлюз витрины: хранилище,
// клиент коммерческого бэкенда, фасад корзины и сервер с маршрутами.
package storefront

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/ev-storefront/internal/cart/events"
	"github.com/magabrotheeeer/ev-storefront/internal/commerce"
	"github.com/magabrotheeeer/ev-storefront/internal/config"
	"github.com/magabrotheeeer/ev-storefront/internal/kvstore"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/sl"
	storefrontservice "github.com/magabrotheeeer/ev-storefront/internal/storefront"
)

// App — собранное приложение шлюза витрины.
type App struct {
	server *http.Server
	logger *slog.Logger
}

// New собирает приложение. Redis используется как основное хранилище
// состояния посетителей; если он недоступен, витрина продолжает работать
// на хранилище в памяти — состояние переживает лишь жизнь процесса.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	var kv kvstore.Store
	redisStore, err := kvstore.InitRedis(ctx, cfg.RedisConnection)
	if err != nil {
		logger.Warn("redis is unavailable, falling back to in-memory store", sl.Err(err))
		kv = kvstore.NewMemory()
	} else {
		kv = redisStore
	}

	authClient := commerce.NewClient(logger, cfg.BaseURL, cfg.Timeout, cfg.SessionTTL)
	service := storefrontservice.New(logger, cfg, kv, events.NewBus(), authClient)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, service)

	router.Get("/docs/*", httpSwagger.WrapHandler)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста или ошибки
// сервера. При отмене сервер завершается корректно.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}
