// Package remove реализует HTTP-обработчик удаления позиции из корзины.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ev-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ev-storefront/internal/http/response"
)

// Handler управляет HTTP-запросами на удаление позиции.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления позиции.
type Service interface {
	RemoveItem(ctx context.Context, visitorID, itemID string) bool
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить позицию корзины
// @Tags Cart
// @Produce json
// @Param id path string true "Идентификатор позиции"
// @Success 200 {object} response.OKResponse "Позиция удалена"
// @Failure 502 {object} response.ErrorResponse "Бэкенд не подтвердил удаление"
// @Router /cart/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	itemID := chi.URLParam(r, "id")
	if itemID == "" {
		log.Error("item id is missing in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("item id is required"))
		return
	}

	visitorID, ok := middlewarectx.VisitorID(r.Context())
	if !ok {
		log.Error("visitor id not found in context")
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("visitor is not resolved"))
		return
	}

	if !h.service.RemoveItem(r.Context(), visitorID, itemID) {
		log.Error("backend did not acknowledge remove", slog.String("item_id", itemID))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not remove item"))
		return
	}

	render.JSON(w, r, response.OK())
}
