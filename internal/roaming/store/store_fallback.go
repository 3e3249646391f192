package store

import (
	"context"
	"log/slog"
	"time"

	"exposure/internal/roaming/models"
	"exposure/pkg/platform/circuit"
)

// Backend is the store surface both sides of a FallbackStore implement.
type Backend interface {
	Upsert(ctx context.Context, code models.CountryCode) error
	DeleteSeenBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListSeenSince(ctx context.Context, since time.Time) ([]models.CountryCode, error)
}

// FallbackStore writes every sighting to both backends and reads from the
// primary until the breaker opens. While open, reads come from the fallback
// and writes keep probing the primary so the breaker can close again.
type FallbackStore struct {
	primary  Backend
	fallback Backend
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type FallbackOption func(*FallbackStore)

func WithFallbackLogger(logger *slog.Logger) FallbackOption {
	return func(s *FallbackStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithBreaker(b *circuit.Breaker) FallbackOption {
	return func(s *FallbackStore) {
		if b != nil {
			s.breaker = b
		}
	}
}

func NewFallbackStore(primary, fallback Backend, opts ...FallbackOption) *FallbackStore {
	s := &FallbackStore{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("country_codes", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(2)),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FallbackStore) Upsert(ctx context.Context, code models.CountryCode) error {
	if err := s.fallback.Upsert(ctx, code); err != nil {
		return err
	}
	err := s.primary.Upsert(ctx, code)
	if err == nil {
		s.success()
		return nil
	}
	if s.failure(err) {
		return nil
	}
	return err
}

func (s *FallbackStore) DeleteSeenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	local, err := s.fallback.DeleteSeenBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := s.primary.DeleteSeenBefore(ctx, cutoff)
	if err == nil {
		s.success()
		return n, nil
	}
	if s.failure(err) {
		return local, nil
	}
	return 0, err
}

func (s *FallbackStore) ListSeenSince(ctx context.Context, since time.Time) ([]models.CountryCode, error) {
	if s.breaker.IsOpen() {
		return s.fallback.ListSeenSince(ctx, since)
	}
	codes, err := s.primary.ListSeenSince(ctx, since)
	if err == nil {
		s.success()
		return codes, nil
	}
	if s.failure(err) {
		return s.fallback.ListSeenSince(ctx, since)
	}
	return nil, err
}

// Degraded reports whether reads are currently served by the fallback.
func (s *FallbackStore) Degraded() bool {
	return s.breaker.IsOpen()
}

func (s *FallbackStore) success() {
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.Info("country code store recovered", "breaker", s.breaker.Name())
	}
}

func (s *FallbackStore) failure(err error) (useFallback bool) {
	useFallback, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.Warn("country code store degraded to fallback", "breaker", s.breaker.Name(), "error", err)
	}
	return useFallback
}
