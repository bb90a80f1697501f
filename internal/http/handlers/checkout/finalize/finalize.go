// Package finalize реализует HTTP-обработчик завершения оформления заказа.
//
// Вызывается после того, как бэкенд подтвердил размещение заказа: корзина
// очищается с ограниченным числом повторов. Отказ возвращается наружу —
// UI показывает кнопку повтора, локальное состояние не подделывается под
// пустое.
package finalize

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ev-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ev-storefront/internal/http/response"
)

// Handler управляет HTTP-запросами завершения оформления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики завершения оформления.
type Service interface {
	FinalizeCheckout(ctx context.Context, visitorID string) bool
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Завершить оформление заказа
// @Description Очищает корзину после подтвержденного заказа, с повторами.
// @Tags Checkout
// @Produce json
// @Success 200 {object} response.OKResponse "Корзина очищена"
// @Failure 502 {object} response.ErrorResponse "Очистка не удалась, требуется повтор"
// @Router /checkout/complete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.finalize"
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

	if !h.service.FinalizeCheckout(r.Context(), visitorID) {
		log.Error("post-checkout clear failed after all attempts")
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not clear cart after checkout, retry later"))
		return
	}

	log.Info("checkout finalized")
	render.JSON(w, r, response.OK())
}
