package add

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/ev-storefront/internal/cart"
	"github.com/magabrotheeeer/ev-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ev-storefront/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) AddToCart(ctx context.Context, visitorID, productID string, quantity int, color string) (*models.CartItem, error) {
	args := m.Called(ctx, visitorID, productID, quantity, color)
	item, _ := args.Get(0).(*models.CartItem)
	return item, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestAddHandler_ServeHTTP(t *testing.T) {
	serviceMock := new(ServiceMock)
	logger := newNoopLogger()

	handler := New(logger, serviceMock)

	addedItem := &models.CartItem{
		ID:        "7",
		ProductID: "42",
		Quantity:  2,
		Price:     1000,
		Total:     2000,
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		withVisitor    bool
		mockItem       *models.CartItem
		mockErr        error
		wantStatusCode int
		wantData       map[string]any
		wantError      string
		wantStatus     string
	}{
		{
			name:           "successful add",
			requestBody:    Request{ProductID: "42", Quantity: 2},
			withVisitor:    true,
			mockItem:       addedItem,
			wantStatusCode: http.StatusOK,
			wantData: map[string]any{
				"id":         "7",
				"product_id": "42",
				"quantity":   float64(2),
				"total":      float64(2000),
			},
			wantStatus: "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			withVisitor:    true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name:           "validation error - missing product id",
			requestBody:    Request{Quantity: 1},
			withVisitor:    true,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field ProductID is a required field",
			wantStatus:     "Error",
		},
		{
			name:           "visitor is not resolved",
			requestBody:    Request{ProductID: "42", Quantity: 1},
			withVisitor:    false,
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "visitor is not resolved",
			wantStatus:     "Error",
		},
		{
			name:           "duplicate add in flight",
			requestBody:    Request{ProductID: "42", Quantity: 1},
			withVisitor:    true,
			mockErr:        cart.ErrAddInFlight,
			wantStatusCode: http.StatusConflict,
			wantError:      "this product is already being added",
			wantStatus:     "Error",
		},
		{
			name:           "backend refused add",
			requestBody:    Request{ProductID: "42", Quantity: 1},
			withVisitor:    true,
			mockErr:        errors.New("backend error"),
			wantStatusCode: http.StatusBadGateway,
			wantError:      "could not add item to cart",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock.ExpectedCalls = nil
			serviceMock.Calls = nil

			if tt.mockItem != nil || tt.mockErr != nil {
				req := tt.requestBody.(Request)
				serviceMock.On("AddToCart", mock.Anything, "visitor-1", req.ProductID, req.Quantity, req.Color).
					Return(tt.mockItem, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/cart", bytes.NewReader(bodyBytes))
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tt.withVisitor {
				ctx = context.WithValue(ctx, middlewarectx.Visitor, "visitor-1")
			}
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)

			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				errStr, ok := got["error"].(string)
				assert.True(t, ok)
				assert.Equal(t, tt.wantError, errStr)
			} else {
				assert.Nil(t, got["error"])
			}

			if tt.wantData != nil {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				for k, v := range tt.wantData {
					assert.Equal(t, v, data[k])
				}
			}

			if tt.mockItem != nil || tt.mockErr != nil {
				serviceMock.AssertExpectations(t)
			}
		})
	}
}
