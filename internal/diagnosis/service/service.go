package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"exposure/internal/diagnosis/metrics"
	"exposure/internal/diagnosis/models"
	"exposure/internal/platform/pubsub"
	"exposure/pkg/platform/clock"
	"exposure/pkg/platform/sentinel"
)

// Store is the persistence contract the repository needs. FindByID reports a
// missing row with sentinel.ErrNotFound; RunInTx makes every store call made
// with the context it passes to fn part of one atomic unit.
type Store interface {
	Save(ctx context.Context, record models.Record) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.Record, error)
	ListByVerificationCode(ctx context.Context, code string) ([]models.Record, error)
	ListAll(ctx context.Context) ([]models.Record, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Mutator derives a new record from the current one (or a zero Record when absent).
type Mutator func(current models.Record) (models.Record, error)

// Service is the diagnosis repository: create-or-update storage of diagnosis
// records, safe for concurrent use, with a live view of the whole collection.
//
// Writes touching the same record ID are serialized; a write and the
// snapshot pushed to observers for it are ordered so observers never see a
// later snapshot that lacks an earlier committed write.
type Service struct {
	store     Store
	clock     clock.Clock
	locks     recordLocks
	feed      *pubsub.Broadcaster[snapshot]
	publishMu sync.Mutex

	// commitMu is held shared by every store write and exclusively by Observe,
	// so a new observer's initial snapshot and version agree.
	commitMu sync.RWMutex
	version  atomic.Uint64

	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	txTimeout time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithTxTimeout bounds writes issued with a context that has no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.txTimeout = d
	}
}

// New constructs the repository over store, stamping new records with clk.
func New(store Store, clk clock.Clock, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("diagnosis store is required")
	}
	if clk == nil {
		return nil, errors.New("clock is required")
	}
	s := &Service{store: store, clock: clk}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("exposure/internal/diagnosis/service")
	}
	s.feed = pubsub.New(
		pubsub.WithClone(cloneSnapshot),
		pubsub.WithLogger[snapshot](s.logger),
	)
	return s, nil
}

// Upsert inserts record when its ID is zero, assigning a fresh ID, or replaces
// the stored record with that ID wholesale (inserting it if missing). A nil
// CreatedAt is filled from the clock. Returns the record's ID.
func (s *Service) Upsert(ctx context.Context, record models.Record) (id int64, err error) {
	ctx, done := s.begin(ctx, "upsert", attribute.Int64("diagnosis.id", record.ID))
	defer func() { done(err) }()

	if record.ID < 0 {
		return 0, fmt.Errorf("%w: negative id %d", ErrInvalidArgument, record.ID)
	}
	if err := record.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	var version uint64
	err = s.locks.withRecordLock(ctx, record.ID, s.txTimeout, func(ctx context.Context) error {
		var saveErr error
		version, saveErr = s.commit(func() error {
			id, saveErr = s.store.Save(ctx, s.stamp(record))
			return saveErr
		})
		return saveErr
	})
	if err != nil {
		return 0, fmt.Errorf("upsert diagnosis: %w", err)
	}
	s.publish(ctx, version)
	return id, nil
}

// GetByID returns the record with id, or nil when there is none.
func (s *Service) GetByID(ctx context.Context, id int64) (rec *models.Record, err error) {
	ctx, done := s.begin(ctx, "get_by_id", attribute.Int64("diagnosis.id", id))
	defer func() { done(err) }()

	rec, err = s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get diagnosis %d: %w", id, err)
	}
	return rec, nil
}

// GetByVerificationCode returns every record carrying code, in ID order.
// The result is empty, never nil, when nothing matches.
func (s *Service) GetByVerificationCode(ctx context.Context, code string) (recs []models.Record, err error) {
	ctx, done := s.begin(ctx, "get_by_verification_code")
	defer func() { done(err) }()

	recs, err = s.store.ListByVerificationCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get diagnoses by verification code: %w", err)
	}
	if recs == nil {
		recs = []models.Record{}
	}
	return recs, nil
}

// GetAll returns a snapshot of every record in ID order.
func (s *Service) GetAll(ctx context.Context) (recs []models.Record, err error) {
	ctx, done := s.begin(ctx, "get_all")
	defer func() { done(err) }()

	recs, err = s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	return recs, nil
}

// DeleteByID removes the record with id. Deleting a missing record is not an error.
func (s *Service) DeleteByID(ctx context.Context, id int64) (err error) {
	ctx, done := s.begin(ctx, "delete_by_id", attribute.Int64("diagnosis.id", id))
	defer func() { done(err) }()

	var version uint64
	err = s.locks.withRecordLock(ctx, id, s.txTimeout, func(ctx context.Context) error {
		var deleteErr error
		version, deleteErr = s.commit(func() error {
			return s.store.DeleteByID(ctx, id)
		})
		return deleteErr
	})
	if err != nil {
		return fmt.Errorf("delete diagnosis %d: %w", id, err)
	}
	s.publish(ctx, version)
	return nil
}

// MostRecentRevisionToken returns the revision token of the newest record
// that has one. Records are ordered by CreatedAt (missing timestamps first),
// then by ID, so equal timestamps resolve to the highest ID. ok is false when
// no record carries a token.
func (s *Service) MostRecentRevisionToken(ctx context.Context) (token string, ok bool, err error) {
	ctx, done := s.begin(ctx, "most_recent_revision_token")
	defer func() { done(err) }()

	recs, err := s.store.ListAll(ctx)
	if err != nil {
		return "", false, fmt.Errorf("most recent revision token: %w", err)
	}
	var best *models.Record
	for i := range recs {
		rec := &recs[i]
		if !rec.HasRevisionToken() {
			continue
		}
		if best == nil || newer(rec, best) {
			best = rec
		}
	}
	if best == nil {
		return "", false, nil
	}
	return best.RevisionToken, true, nil
}

// CreateOrMutateByID reads the record with id (a zero Record when absent or
// when id is zero), applies mutate and stores the result, all as one atomic
// step with respect to other writers of id. An existing record keeps its ID whatever mutate
// returns; an absent one is inserted under a freshly assigned ID.
func (s *Service) CreateOrMutateByID(ctx context.Context, id int64, mutate Mutator) (newID int64, err error) {
	ctx, done := s.begin(ctx, "create_or_mutate_by_id", attribute.Int64("diagnosis.id", id))
	defer func() { done(err) }()

	if mutate == nil {
		return 0, fmt.Errorf("%w: mutator is required", ErrInvalidArgument)
	}
	if id < 0 {
		return 0, fmt.Errorf("%w: negative id %d", ErrInvalidArgument, id)
	}
	var version uint64
	err = s.locks.withRecordLock(ctx, id, s.txTimeout, func(ctx context.Context) error {
		var txErr error
		version, txErr = s.commit(func() error {
			return s.store.RunInTx(ctx, func(ctx context.Context) error {
				current, err := s.current(ctx, id)
				if err != nil {
					return err
				}
				next, err := applyMutator(mutate, current)
				if err != nil {
					return err
				}
				next.ID = current.ID
				if err := next.Validate(); err != nil {
					return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
				}
				newID, err = s.store.Save(ctx, s.stamp(next))
				return err
			})
		})
		return txErr
	})
	if err != nil {
		return 0, fmt.Errorf("create or mutate diagnosis %d: %w", id, err)
	}
	s.publish(ctx, version)
	return newID, nil
}

// DeleteObsolete removes records created more than olderThan ago and returns
// how many were removed. Records without a creation time are kept.
func (s *Service) DeleteObsolete(ctx context.Context, olderThan time.Duration) (deleted int64, err error) {
	ctx, done := s.begin(ctx, "delete_obsolete")
	defer func() { done(err) }()

	if olderThan < 0 {
		return 0, fmt.Errorf("%w: negative retention %s", ErrInvalidArgument, olderThan)
	}
	cutoff := s.clock.Now().Add(-olderThan)
	version, err := s.commit(func() error {
		var deleteErr error
		deleted, deleteErr = s.store.DeleteCreatedBefore(ctx, cutoff)
		return deleteErr
	})
	if err != nil {
		return 0, fmt.Errorf("delete obsolete diagnoses: %w", err)
	}
	if deleted > 0 {
		s.metrics.AddObsoleteDeleted(deleted)
		s.logger.InfoContext(ctx, "deleted obsolete diagnoses",
			"count", deleted,
			"cutoff", cutoff,
		)
		s.publish(ctx, version)
	}
	return deleted, nil
}

func (s *Service) current(ctx context.Context, id int64) (models.Record, error) {
	if id == 0 {
		return models.Record{}, nil
	}
	rec, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Record{}, nil
	}
	if err != nil {
		return models.Record{}, err
	}
	return *rec, nil
}

// commit runs one store write and, when it succeeds, stamps it with the next
// version.
func (s *Service) commit(write func() error) (uint64, error) {
	s.commitMu.RLock()
	defer s.commitMu.RUnlock()
	if err := write(); err != nil {
		return 0, err
	}
	return s.version.Add(1), nil
}

func (s *Service) stamp(record models.Record) models.Record {
	if record.CreatedAt != nil {
		return record
	}
	return record.WithCreatedAt(s.clock.Now())
}

func applyMutator(mutate Mutator, current models.Record) (next models.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrMutatorFailed, r)
		}
	}()
	next, err = mutate(current.Clone())
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: %w", ErrMutatorFailed, err)
	}
	return next, nil
}

// newer orders records by creation time, then ID.
func newer(a, b *models.Record) bool {
	switch {
	case a.CreatedAt == nil && b.CreatedAt == nil:
		return a.ID > b.ID
	case a.CreatedAt == nil:
		return false
	case b.CreatedAt == nil:
		return true
	case a.CreatedAt.Equal(*b.CreatedAt):
		return a.ID > b.ID
	default:
		return a.CreatedAt.After(*b.CreatedAt)
	}
}

func (s *Service) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "diagnosis."+operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.ErrorContext(ctx, "diagnosis operation failed",
				"operation", operation,
				"error", err,
			)
		}
		span.End()
		s.metrics.ObserveOperation(operation, err, time.Since(start))
	}
}

func cloneSnapshot(in snapshot) snapshot {
	in.records = cloneRecords(in.records)
	return in
}

func cloneRecords(in []models.Record) []models.Record {
	out := make([]models.Record, len(in))
	for i, rec := range in {
		out[i] = rec.Clone()
	}
	return out
}
