// Package pubsub fans values out to in-process subscribers. Every subscriber
// owns an unbounded queue drained by its own goroutine, so a slow callback
// delays only itself and never loses a value.
package pubsub

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Broadcaster delivers published values to every open Subscription in publish order.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*Subscription[T]
	clone  func(T) T
	logger *slog.Logger
}

type Option[T any] func(*Broadcaster[T])

// WithClone gives each subscriber its own copy of a published value.
func WithClone[T any](clone func(T) T) Option[T] {
	return func(b *Broadcaster[T]) {
		b.clone = clone
	}
}

func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(b *Broadcaster[T]) {
		b.logger = logger
	}
}

func New[T any](opts ...Option[T]) *Broadcaster[T] {
	b := &Broadcaster[T]{subs: make(map[uuid.UUID]*Subscription[T])}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Subscribe registers fn. initial is queued before any value published afterwards.
func (b *Broadcaster[T]) Subscribe(fn func(T), initial T) *Subscription[T] {
	sub := &Subscription[T]{
		id:     uuid.New(),
		owner:  b,
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: b.logger,
	}
	b.mu.Lock()
	sub.enqueue(b.copyOf(initial))
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go sub.deliver()
	return sub
}

// Publish queues v for every subscriber and returns the number reached.
func (b *Broadcaster[T]) Publish(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub.enqueue(b.copyOf(v))
	}
	return len(b.subs)
}

// Len reports the number of open subscriptions.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops delivery to every subscriber.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	subs := make([]*Subscription[T], 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

func (b *Broadcaster[T]) remove(id uuid.UUID) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

func (b *Broadcaster[T]) copyOf(v T) T {
	if b.clone == nil {
		return v
	}
	return b.clone(v)
}

// Subscription is the handle returned by Subscribe.
type Subscription[T any] struct {
	id     uuid.UUID
	owner  *Broadcaster[T]
	fn     func(T)
	logger *slog.Logger

	mu        sync.Mutex
	queue     []T
	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// ID identifies the subscription in logs.
func (s *Subscription[T]) ID() uuid.UUID { return s.id }

// Close unregisters the subscription. Values still queued are dropped; a
// callback already running finishes. Safe to call more than once and from
// inside the callback.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		s.owner.remove(s.id)
		close(s.done)
	})
}

// Done is closed after Close.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

func (s *Subscription[T]) enqueue(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) next() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		var zero T
		return zero, false
	}
	v := s.queue[0]
	var zero T
	s.queue[0] = zero
	s.queue = s.queue[1:]
	return v, true
}

func (s *Subscription[T]) deliver() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}
		for {
			select {
			case <-s.done:
				return
			default:
			}
			v, ok := s.next()
			if !ok {
				break
			}
			s.invoke(v)
		}
	}
}

func (s *Subscription[T]) invoke(v T) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber callback panicked",
				"subscription_id", s.id.String(),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	s.fn(v)
}
