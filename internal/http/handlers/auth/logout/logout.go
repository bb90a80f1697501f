// Package logout реализует HTTP-обработчик выхода пользователя.
//
// Локальная сессия стирается в любом случае; бэкенд уведомляется по
// возможности.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ev-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ev-storefront/internal/http/response"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/sl"
)

// Handler управляет HTTP-запросами на выход.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выхода.
type Service interface {
	Logout(ctx context.Context, visitorID string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Tags Auth
// @Produce json
// @Success 200 {object} response.OKResponse "Сессия завершена"
// @Failure 500 {object} response.ErrorResponse "Не удалось стереть локальную сессию"
// @Router /logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	visitorID, ok := middlewarectx.VisitorID(r.Context())
	if !ok {
		log.Error("visitor id not found in context")
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("visitor is not resolved"))
		return
	}

	if err := h.service.Logout(r.Context(), visitorID); err != nil {
		log.Error("logout failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not log out"))
		return
	}

	log.Info("user logged out")
	render.JSON(w, r, response.OK())
}
