// Package update реализует HTTP-обработчик изменения количества позиции корзины.
package update

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ev-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ev-storefront/internal/http/response"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/sl"
)

// Request — тело запроса на изменение количества. Количество меньше
// единицы исправляется до единицы перед отправкой на бэкенд.
type Request struct {
	Quantity int `json:"quantity"`
}

// Handler управляет HTTP-запросами на изменение количества.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики изменения количества.
type Service interface {
	UpdateQuantity(ctx context.Context, visitorID, itemID string, quantity int) bool
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Изменить количество позиции
// @Description Меняет количество позиции корзины. Значение меньше 1 приводится к 1.
// @Tags Cart
// @Accept json
// @Produce json
// @Param id path string true "Идентификатор позиции"
// @Param request body Request true "Новое количество"
// @Success 200 {object} response.OKResponse "Количество изменено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 502 {object} response.ErrorResponse "Бэкенд не подтвердил изменение"
// @Router /cart/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.update"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	visitorID, ok := middlewarectx.VisitorID(r.Context())
	if !ok {
		log.Error("visitor id not found in context")
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("visitor is not resolved"))
		return
	}

	if !h.service.UpdateQuantity(r.Context(), visitorID, itemID, req.Quantity) {
		log.Error("backend did not acknowledge quantity update", slog.String("item_id", itemID))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not update quantity"))
		return
	}

	render.JSON(w, r, response.OK())
}
