package api

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type RouterConfig struct {
	Development bool
	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64
	RateBurst int
}

func NewRouter(cfg RouterConfig, orders *OrderHandler, users *UserHandler, products *ProductHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler(cfg.Development)

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil {
				event = logger.Warn().Err(v.Error)
			}
			event.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(rateLimiter(cfg)))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "planty-of-food",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	e.POST("/orders", orders.CreateOrder)
	e.GET("/orders", orders.ListOrders)
	e.GET("/orders/user/:userId", orders.ListUserOrders)
	e.GET("/orders/:id", orders.GetOrder)
	e.PUT("/orders/:id", orders.UpdateOrder)
	e.DELETE("/orders/:id", orders.DeleteOrder)

	e.POST("/users", users.CreateUser)
	e.GET("/users", users.ListUsers)
	e.GET("/users/:id", users.GetUser)
	e.PUT("/users/:id", users.UpdateUser)
	e.DELETE("/users/:id", users.DeleteUser)

	e.POST("/products", products.CreateProduct)
	e.GET("/products", products.ListProducts)
	e.GET("/products/:id", products.GetProduct)
	e.PUT("/products/:id", products.UpdateProduct)
	e.DELETE("/products/:id", products.DeleteProduct)

	return e
}

func rateLimiter(cfg RouterConfig) middleware.RateLimiterConfig {
	deny := func(c echo.Context, _ string, _ error) error {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
	}
	return middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimit),
				Burst:     cfg.RateBurst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return deny(c, "", err)
		},
		DenyHandler: deny,
	}
}
