// Package list реализует HTTP-обработчик чтения корзины.
//
// Handler возвращает нормализованные позиции корзины текущего посетителя
// вместе с вычисленной сводкой. Путь чтения никогда не отвечает ошибкой
// из-за бэкенда: пустая корзина — безопасный ответ.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ev-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ev-storefront/internal/http/response"
	"github.com/magabrotheeeer/ev-storefront/internal/models"
)

// Handler управляет HTTP-запросами чтения корзины.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения корзины.
type Service interface {
	ListCart(ctx context.Context, visitorID string) ([]models.CartItem, models.CartSummary)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// payload — данные ответа: позиции и сводка.
type payload struct {
	Items   []models.CartItem  `json:"items"`
	Summary models.CartSummary `json:"summary"`
}

// ServeHTTP godoc
// @Summary Получить корзину
// @Description Возвращает позиции корзины текущего посетителя и её сводку.
// @Tags Cart
// @Produce json
// @Success 200 {object} response.OKResponse "Корзина посетителя"
// @Router /cart [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.list"
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

	items, summary := h.service.ListCart(r.Context(), visitorID)
	render.JSON(w, r, response.OKWithData(payload{Items: items, Summary: summary}))
}
