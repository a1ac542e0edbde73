package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository/memory"
	"planty-of-food/internal/service"
)

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := memory.New()
	orders := service.NewOrderService(store, service.NewStockService())
	return NewRouter(RouterConfig{},
		NewOrderHandler(orders),
		NewUserHandler(service.NewUserService(store.Users())),
		NewProductHandler(service.NewProductService(store.Products(), nil)),
	)
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createUser(t *testing.T, e *echo.Echo, email string) entity.User {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/users", fmt.Sprintf(`{"name":"Mario","surname":"Rossi","email":%q}`, email))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[entity.User](t, rec)
}

func createProduct(t *testing.T, e *echo.Echo, name string, qty int) entity.Product {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/products", fmt.Sprintf(`{"name":%q,"type":"vegetable","quantity":%d}`, name, qty))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[entity.Product](t, rec)
}

func productQuantity(t *testing.T, e *echo.Echo, id string) int {
	t.Helper()
	rec := do(t, e, http.MethodGet, "/products/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[entity.Product](t, rec).Quantity
}

func TestOrderLifecycle(t *testing.T) {
	e := newServer(t)
	user := createUser(t, e, "mario@example.com")
	tomato := createProduct(t, e, "Pomodoro", 10)

	rec := do(t, e, http.MethodPost, "/orders",
		fmt.Sprintf(`{"userId":%q,"products":[{"product":%q,"orderedQuantity":3}]}`, user.ID, tomato.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[entity.Order](t, rec)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.Equal(t, 7, productQuantity(t, e, tomato.ID))

	rec = do(t, e, http.MethodGet, "/orders/"+order.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]any](t, rec)
	assert.Equal(t, user.ID, detail["userId"])
	assert.Equal(t, "mario@example.com", detail["user"].(map[string]any)["email"])
	line := detail["products"].([]any)[0].(map[string]any)
	assert.Equal(t, "Pomodoro", line["product"].(map[string]any)["name"])
	assert.EqualValues(t, 3, line["orderedQuantity"])

	rec = do(t, e, http.MethodPut, "/orders/"+order.ID,
		fmt.Sprintf(`{"status":"paid","products":[{"product":%q,"orderedQuantity":2}]}`, tomato.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[entity.Order](t, rec)
	assert.Equal(t, entity.OrderStatusPaid, updated.Status)
	assert.Len(t, updated.Products, 2)
	assert.Equal(t, 5, productQuantity(t, e, tomato.ID))

	rec = do(t, e, http.MethodDelete, "/orders/"+order.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 10, productQuantity(t, e, tomato.ID))

	rec = do(t, e, http.MethodGet, "/orders/"+order.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderErrorStatuses(t *testing.T) {
	e := newServer(t)
	user := createUser(t, e, "mario@example.com")
	tomato := createProduct(t, e, "Pomodoro", 2)

	rec := do(t, e, http.MethodPost, "/orders",
		fmt.Sprintf(`{"userId":%q,"products":[{"product":%q,"orderedQuantity":1}]}`, user.ID, tomato.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[entity.Order](t, rec)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"malformed json", http.MethodPost, "/orders", `{"userId":`, http.StatusBadRequest},
		{"empty products", http.MethodPost, "/orders", fmt.Sprintf(`{"userId":%q,"products":[]}`, user.ID), http.StatusBadRequest},
		{"zero quantity", http.MethodPost, "/orders", fmt.Sprintf(`{"userId":%q,"products":[{"product":%q,"orderedQuantity":0}]}`, user.ID, tomato.ID), http.StatusBadRequest},
		{"unknown user", http.MethodPost, "/orders", fmt.Sprintf(`{"userId":"ghost","products":[{"product":%q,"orderedQuantity":1}]}`, tomato.ID), http.StatusNotFound},
		{"unknown product", http.MethodPost, "/orders", fmt.Sprintf(`{"userId":%q,"products":[{"product":"ghost","orderedQuantity":1}]}`, user.ID), http.StatusNotFound},
		{"insufficient stock", http.MethodPost, "/orders", fmt.Sprintf(`{"userId":%q,"products":[{"product":%q,"orderedQuantity":5}]}`, user.ID, tomato.ID), http.StatusConflict},
		{"invalid status", http.MethodPut, "/orders/" + order.ID, `{"status":"shipped"}`, http.StatusUnprocessableEntity},
		{"update missing order", http.MethodPut, "/orders/missing", `{"status":"paid"}`, http.StatusNotFound},
		{"reassign to unknown user", http.MethodPut, "/orders/" + order.ID, `{"userId":"ghost"}`, http.StatusNotFound},
		{"reassign to blank user", http.MethodPut, "/orders/" + order.ID, `{"userId":"  "}`, http.StatusBadRequest},
		{"delete missing order", http.MethodDelete, "/orders/missing", "", http.StatusNotFound},
		{"bad date", http.MethodGet, "/orders?date=yesterday", "", http.StatusBadRequest},
		{"duplicate email", http.MethodPost, "/users", `{"name":"Mario","surname":"Bianchi","email":"mario@example.com"}`, http.StatusConflict},
		{"bad product type", http.MethodPost, "/products", `{"name":"Bistecca","type":"meat","quantity":1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			body := decode[map[string]string](t, rec)
			assert.NotEmpty(t, body["message"])
		})
	}

	assert.Equal(t, 1, productQuantity(t, e, tomato.ID))
}

func TestOrderUserKey(t *testing.T) {
	e := newServer(t)
	mario := createUser(t, e, "mario@example.com")
	luigi := createUser(t, e, "luigi@example.com")
	tomato := createProduct(t, e, "Pomodoro", 10)

	rec := do(t, e, http.MethodPost, "/orders",
		fmt.Sprintf(`{"user":%q,"products":[{"product":%q,"orderedQuantity":1}]}`, mario.ID, tomato.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "userId is required", decode[map[string]string](t, rec)["message"])

	rec = do(t, e, http.MethodPost, "/orders",
		fmt.Sprintf(`{"userId":%q,"products":[{"product":%q,"orderedQuantity":1}]}`, mario.ID, tomato.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[entity.Order](t, rec)
	assert.Equal(t, mario.ID, order.UserID)

	rec = do(t, e, http.MethodPut, "/orders/"+order.ID, fmt.Sprintf(`{"userId":%q}`, luigi.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, luigi.ID, decode[entity.Order](t, rec).UserID)

	rec = do(t, e, http.MethodGet, "/orders/"+order.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]any](t, rec)
	assert.Equal(t, luigi.ID, detail["userId"])
	assert.Equal(t, "luigi@example.com", detail["user"].(map[string]any)["email"])

	rec = do(t, e, http.MethodPut, "/orders/"+order.ID, `{"userId":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, e, http.MethodGet, "/orders/user/"+luigi.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entity.OrderDetail](t, rec), 1)
	assert.Equal(t, 9, productQuantity(t, e, tomato.ID))
}

func TestListOrdersQuery(t *testing.T) {
	e := newServer(t)
	mario := createUser(t, e, "mario@example.com")
	luigi := createUser(t, e, "luigi@example.com")
	tomato := createProduct(t, e, "Pomodoro", 10)
	apple := createProduct(t, e, "Mela", 10)

	for _, body := range []string{
		fmt.Sprintf(`{"userId":%q,"products":[{"product":%q,"orderedQuantity":1}]}`, mario.ID, tomato.ID),
		fmt.Sprintf(`{"userId":%q,"products":[{"product":%q,"orderedQuantity":1}]}`, luigi.ID, apple.ID),
	} {
		rec := do(t, e, http.MethodPost, "/orders", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, e, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entity.OrderDetail](t, rec), 2)

	rec = do(t, e, http.MethodGet, "/orders?productId="+apple.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]entity.OrderDetail](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, luigi.ID, got[0].UserID)

	rec = do(t, e, http.MethodGet, "/orders/user/"+mario.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[[]entity.OrderDetail](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, tomato.ID, got[0].Products[0].ProductID)

	today := time.Now().UTC().Format(time.DateOnly)
	rec = do(t, e, http.MethodGet, "/orders?userId="+luigi.ID+"&date="+today, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entity.OrderDetail](t, rec), 1)

	rec = do(t, e, http.MethodGet, "/orders?date=2001-01-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestUserAndProductEndpoints(t *testing.T) {
	e := newServer(t)
	user := createUser(t, e, "mario@example.com")
	createUser(t, e, "luigi@example.com")

	rec := do(t, e, http.MethodGet, "/users?email=luigi", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entity.User](t, rec), 1)

	rec = do(t, e, http.MethodPut, "/users/"+user.ID, `{"surname":"Neri"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Neri", decode[entity.User](t, rec).Surname)

	rec = do(t, e, http.MethodDelete, "/users/"+user.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodGet, "/users/"+user.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	water := createProduct(t, e, "Acqua", 0)
	assert.False(t, water.Availability)
	rec = do(t, e, http.MethodPut, "/products/"+water.ID, `{"quantity":6}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[entity.Product](t, rec).Availability)

	rec = do(t, e, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entity.Product](t, rec), 1)

	rec = do(t, e, http.MethodDelete, "/products/"+water.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodGet, "/products/"+water.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestStatusHidesInternalErrors(t *testing.T) {
	boom := errors.New("dial tcp 10.0.0.5:3306: connection refused")

	code, msg := status(boom, false)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", msg)

	_, msg = status(boom, true)
	assert.Equal(t, boom.Error(), msg)

	code, _ = status(&entity.InsufficientStockError{ProductID: "p1", Available: 0, Requested: 1}, false)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = status(fmt.Errorf("update: %w", &entity.InvalidStatusError{Status: "x"}), false)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestRateLimiter(t *testing.T) {
	store := memory.New()
	e := NewRouter(RouterConfig{RateLimit: 1, RateBurst: 1},
		NewOrderHandler(service.NewOrderService(store, service.NewStockService())),
		NewUserHandler(service.NewUserService(store.Users())),
		NewProductHandler(service.NewProductService(store.Products(), nil)),
	)

	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/health", "").Code)
	rec := do(t, e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decode[map[string]string](t, rec)["message"])
}
