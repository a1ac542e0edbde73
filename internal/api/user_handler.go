package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"planty-of-food/internal/repository"
	"planty-of-food/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new instance of UserHandler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUser creates a new user --> POST /users
func (h *UserHandler) CreateUser(c echo.Context) error {
	input := service.CreateUserInput{}
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request payload"})
	}

	user, err := h.userService.CreateUser(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// ListUsers --> GET /users?name=&email=
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.ListUsers(c.Request().Context(), repository.UserFilter{
		Name:  c.QueryParam("name"),
		Email: c.QueryParam("email"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser retrieves a user by ID --> GET /users/:id
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.userService.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser --> PUT /users/:id
func (h *UserHandler) UpdateUser(c echo.Context) error {
	input := service.UpdateUserInput{}
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request payload"})
	}

	user, err := h.userService.UpdateUser(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser --> DELETE /users/:id
func (h *UserHandler) DeleteUser(c echo.Context) error {
	user, err := h.userService.DeleteUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
