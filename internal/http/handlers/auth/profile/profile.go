// Package profile реализует HTTP-обработчик обновления профиля.
//
// Свежая запись пользователя запрашивается у бэкенда и замещает прежнюю в
// сессии; токен и срок действия не меняются.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ev-storefront/internal/commerce"
	"github.com/magabrotheeeer/ev-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ev-storefront/internal/http/response"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/ev-storefront/internal/models"
)

// Handler управляет HTTP-запросами профиля.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики обновления профиля.
type Service interface {
	RefreshProfile(ctx context.Context, visitorID string) (*models.UserRecord, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Профиль пользователя
// @Description Возвращает свежую запись пользователя и обновляет её в сессии.
// @Tags Auth
// @Produce json
// @Success 200 {object} response.OKResponse "Запись пользователя"
// @Failure 401 {object} response.ErrorResponse "Нет активной сессии"
// @Failure 502 {object} response.ErrorResponse "Бэкенд недоступен"
// @Router /profile [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.profile"
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

	user, err := h.service.RefreshProfile(r.Context(), visitorID)
	if err != nil {
		if errors.Is(err, commerce.ErrAuthRequired) {
			log.Warn("profile requested without a session")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("authentication required"))
			return
		}
		log.Error("failed to refresh profile", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not load profile"))
		return
	}

	render.JSON(w, r, response.OKWithData(user))
}
