package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"planty-of-food/internal/service"
)

const headerIdempotencyKey = "Idempotency-Key"

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder --> POST /orders
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	input := service.CreateOrderInput{}
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request payload"})
	}
	input.IdempotencyKey = c.Request().Header.Get(headerIdempotencyKey)

	order, err := h.orderService.CreateOrder(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, order)
}

// ListOrders --> GET /orders?date=YYYY-MM-DD&userId=&productId=
func (h *OrderHandler) ListOrders(c echo.Context) error {
	orders, err := h.orderService.ListOrders(c.Request().Context(), service.OrderQuery{
		Date:      c.QueryParam("date"),
		UserID:    c.QueryParam("userId"),
		ProductID: c.QueryParam("productId"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

// ListUserOrders --> GET /orders/user/:userId
func (h *OrderHandler) ListUserOrders(c echo.Context) error {
	orders, err := h.orderService.ListOrders(c.Request().Context(), service.OrderQuery{
		UserID: c.Param("userId"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder --> GET /orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.orderService.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateOrder --> PUT /orders/:id
func (h *OrderHandler) UpdateOrder(c echo.Context) error {
	input := service.UpdateOrderInput{}
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request payload"})
	}

	order, err := h.orderService.UpdateOrder(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// DeleteOrder --> DELETE /orders/:id
func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	if err := h.orderService.DeleteOrder(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
