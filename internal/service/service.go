package service

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventOrderDeleted = "order.deleted"
)

// EventPublisher announces committed order changes.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, order *entity.Order) error
}

// IdempotencyStore remembers request keys. Reserve reports false when the
// key has already been seen.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// ProductCache is a read-through cache of products. Get returns nil, nil on
// a miss.
type ProductCache interface {
	Get(ctx context.Context, id string) (*entity.Product, error)
	Set(ctx context.Context, product *entity.Product) error
	Invalidate(ctx context.Context, ids ...string) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, *entity.Order) error { return nil }

type nopIdempotency struct{}

func (nopIdempotency) Reserve(context.Context, string) (bool, error) { return true, nil }
func (nopIdempotency) Release(context.Context, string) error         { return nil }

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*entity.Product, error) { return nil, nil }
func (nopCache) Set(context.Context, *entity.Product) error           { return nil }
func (nopCache) Invalidate(context.Context, ...string) error          { return nil }

// notFound translates repository.ErrNotFound into the domain error target.
func notFound(err error, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}
