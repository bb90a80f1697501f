// Package add реализует HTTP-обработчик добавления товара в корзину.
//
// Handler принимает JSON-запрос с товаром, валидирует его и вызывает
// бизнес-логику добавления. Количество меньше единицы исправляется ниже
// по стеку, а не отклоняется. Добавление — единственная мутация корзины,
// по которой UI показывает контекстную ошибку, поэтому отказы бэкенда
// возвращаются с внятным статусом.
package add

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/ev-storefront/internal/cart"
	"github.com/magabrotheeeer/ev-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ev-storefront/internal/http/response"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/ev-storefront/internal/models"
)

// Request — тело запроса на добавление товара.
type Request struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
}

// Handler управляет HTTP-запросами на добавление товара в корзину.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики добавления товара.
type Service interface {
	AddToCart(ctx context.Context, visitorID, productID string, quantity int, color string) (*models.CartItem, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Добавить товар в корзину
// @Description Добавляет товар в корзину текущего посетителя и возвращает нормализованную позицию.
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body Request true "Товар и количество"
// @Success 200 {object} response.OKResponse "Добавленная позиция"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Добавление этого товара уже выполняется"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Бэкенд отказал в добавлении"
// @Router /cart [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.add"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	visitorID, ok := middlewarectx.VisitorID(r.Context())
	if !ok {
		log.Error("visitor id not found in context")
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("visitor is not resolved"))
		return
	}

	item, err := h.service.AddToCart(r.Context(), visitorID, req.ProductID, req.Quantity, req.Color)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrAddInFlight):
			log.Warn("duplicate add rejected", slog.String("product_id", req.ProductID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("this product is already being added"))
		default:
			log.Error("failed to add item", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("could not add item to cart"))
		}
		return
	}

	log.Info("item added", slog.String("product_id", req.ProductID))
	render.JSON(w, r, response.OKWithData(item))
}
