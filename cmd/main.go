package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"planty-of-food/internal/api"
	"planty-of-food/internal/cache"
	"planty-of-food/internal/config"
	"planty-of-food/internal/events"
	"planty-of-food/internal/repository"
	"planty-of-food/internal/repository/memory"
	"planty-of-food/internal/repository/mysql"
	"planty-of-food/internal/service"
	"planty-of-food/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	zerolog.SetGlobalLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	orderOpts := []service.OrderOption{service.WithLocation(cfg.Location())}
	var productCache service.ProductCache

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		defer rdb.Close()

		productCache = cache.NewProductCache(rdb, cfg.ProductCacheTTL)
		orderOpts = append(orderOpts,
			service.WithIdempotency(cache.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)),
			service.WithOrderCache(productCache),
		)
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher := events.NewKafkaPublisher(config.NewKafkaWriter(brokers, cfg.KafkaTopic))
		defer publisher.Close()
		orderOpts = append(orderOpts, service.WithPublisher(publisher))
	}

	orderService := service.NewOrderService(store, service.NewStockService(), orderOpts...)
	userService := service.NewUserService(store.Users())
	productService := service.NewProductService(store.Products(), productCache)

	e := api.NewRouter(
		api.RouterConfig{
			Development: cfg.Development(),
			RateLimit:   cfg.RateLimit,
			RateBurst:   cfg.RateBurst,
		},
		api.NewOrderHandler(orderService),
		api.NewUserHandler(userService),
		api.NewProductHandler(productService),
	)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down server")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.DBDriver == "memory" {
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		return memory.New(), nil
	}

	db, err := mysql.Connect(ctx, cfg.MySQL(), cfg.DBConnectRetries)
	if err != nil {
		return nil, err
	}
	if err := migrations.AutoMigrate(ctx, db, 3); err != nil {
		db.Close()
		return nil, err
	}
	return mysql.NewStore(db), nil
}
