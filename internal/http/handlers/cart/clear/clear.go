// Package clear реализует HTTP-обработчик полной очистки корзины.
package clear

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ev-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ev-storefront/internal/http/response"
)

// Handler управляет HTTP-запросами на очистку корзины.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики очистки корзины.
type Service interface {
	ClearCart(ctx context.Context, visitorID string) bool
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Очистить корзину
// @Tags Cart
// @Produce json
// @Success 200 {object} response.OKResponse "Корзина очищена"
// @Failure 502 {object} response.ErrorResponse "Бэкенд не подтвердил очистку"
// @Router /cart [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.clear"
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

	if !h.service.ClearCart(r.Context(), visitorID) {
		log.Error("backend did not acknowledge clear")
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not clear cart"))
		return
	}

	render.JSON(w, r, response.OK())
}
