package service

import (
	"context"
	"fmt"
	"sync"

	"exposure/internal/diagnosis/models"
	"exposure/internal/platform/pubsub"
)

// snapshot is the collection as of version. The initial snapshot of a
// subscription already covers every write up to its version.
type snapshot struct {
	version uint64
	initial bool
	records []models.Record
}

// Subscription is a live view of the diagnosis collection. Close it to stop
// receiving snapshots.
type Subscription struct {
	inner     *pubsub.Subscription[snapshot]
	closeOnce sync.Once
	onClose   func()
}

// Close stops delivery. Safe to call more than once, including from inside
// the callback.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.inner.Close()
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// Done is closed once the subscription is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.inner.Done()
}

// Observe delivers the current collection to fn and then a fresh snapshot
// after every committed change, in commit order. fn runs on a goroutine owned
// by the subscription; a slow fn delays only its own snapshots.
func (s *Service) Observe(ctx context.Context, fn func([]models.Record)) (*Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: observer callback is required", ErrInvalidArgument)
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.commitMu.Lock()
	joined := s.version.Load()
	records, err := s.store.ListAll(ctx)
	s.commitMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("observe diagnoses: %w", err)
	}

	deliver := func(sn snapshot) {
		// writes already in the initial snapshot do not notify again
		if !sn.initial && sn.version <= joined {
			return
		}
		fn(sn.records)
	}
	inner := s.feed.Subscribe(deliver, snapshot{version: joined, initial: true, records: records})
	s.metrics.SubscriberAdded()
	s.logger.DebugContext(ctx, "diagnosis observer subscribed",
		"subscription_id", inner.ID().String(),
	)
	return &Subscription{
		inner:   inner,
		onClose: s.metrics.SubscriberRemoved,
	}, nil
}

// publish pushes the post-write collection to observers on behalf of the
// write stamped version. It runs after the write committed, so it is detached
// from the caller's cancellation; a failure to read the snapshot is logged
// and the next write catches up.
func (s *Service) publish(ctx context.Context, version uint64) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if s.feed.Len() == 0 {
		return
	}
	records, err := s.store.ListAll(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load diagnosis snapshot for observers",
			"error", err,
		)
		return
	}
	n := s.feed.Publish(snapshot{version: version, records: records})
	s.metrics.AddNotifications(n)
}

// Close detaches every observer.
func (s *Service) Close() {
	s.feed.Close()
}
