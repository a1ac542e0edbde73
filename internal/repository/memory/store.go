// Package memory is a process-local implementation of the repository
// interfaces. Units of work are serialized and commit by swapping in a
// cloned snapshot, so an aborted unit leaves no trace.
package memory

import (
	"context"
	"sync"
	"time"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository"
)

type state struct {
	users    map[string]entity.User
	products map[string]entity.Product
	orders   map[string]entity.Order
}

func newState() *state {
	return &state{
		users:    make(map[string]entity.User),
		products: make(map[string]entity.Product),
		orders:   make(map[string]entity.Order),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:    make(map[string]entity.User, len(s.users)),
		products: make(map[string]entity.Product, len(s.products)),
		orders:   make(map[string]entity.Order, len(s.orders)),
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	for id, p := range s.products {
		c.products[id] = p
	}
	for id, o := range s.orders {
		c.orders[id] = copyOrder(o)
	}
	return c
}

func copyOrder(o entity.Order) entity.Order {
	o.Products = append([]entity.LineItem(nil), o.Products...)
	if o.Total != nil {
		total := *o.Total
		o.Total = &total
	}
	return o
}

// view abstracts where repositories read and write: the committed state
// (autocommit) or a unit of work's private snapshot.
type view interface {
	read(fn func(st *state) error) error
	write(fn func(st *state) error) error
	now() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = now }
}

type Store struct {
	// sem is held by an open unit of work and by autocommit writes.
	sem   chan struct{}
	mu    sync.RWMutex
	data  *state
	clock func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{
		sem:   make(chan struct{}, 1),
		data:  newState(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) write(fn func(st *state) error) error {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) now() time.Time { return s.clock() }

func (s *Store) Users() repository.UserRepository       { return &userRepository{v: s} }
func (s *Store) Products() repository.ProductRepository { return &productRepository{v: s} }
func (s *Store) Orders() repository.OrderRepository     { return &orderRepository{v: s} }

// Begin waits until no other unit of work is open, then snapshots the
// committed state.
func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.RLock()
	working := s.data.clone()
	s.mu.RUnlock()

	return &tx{store: s, working: working}, nil
}

func (s *Store) Close() error { return nil }

type tx struct {
	store   *Store
	mu      sync.Mutex
	working *state
	done    bool
}

func (t *tx) read(fn func(st *state) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	return fn(t.working)
}

func (t *tx) write(fn func(st *state) error) error { return t.read(fn) }

func (t *tx) now() time.Time { return t.store.clock() }

func (t *tx) Users() repository.UserRepository       { return &userRepository{v: t} }
func (t *tx) Products() repository.ProductRepository { return &productRepository{v: t} }
func (t *tx) Orders() repository.OrderRepository     { return &orderRepository{v: t} }

func (t *tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	t.done = true

	t.store.mu.Lock()
	t.store.data = t.working
	t.store.mu.Unlock()
	<-t.store.sem
	return nil
}

func (t *tx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.working = nil
	<-t.store.sem
	return nil
}
