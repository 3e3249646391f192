package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"exposure/internal/diagnosis/models"
	"exposure/pkg/platform/sentinel"
)

// InMemoryStore keeps diagnoses in process memory. Writers are serialized on
// writeMu; RunInTx stages writes and applies them only when fn succeeds, so
// readers outside the transaction never observe a partial result.
type InMemoryStore struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	records map[int64]models.Record
	lastID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[int64]models.Record)}
}

type memTxKey struct{}

// memTx holds staged writes; a nil entry marks a delete.
type memTx struct {
	writes map[int64]*models.Record
	lastID int64
}

func memTxFrom(ctx context.Context) (*memTx, bool) {
	tx, ok := ctx.Value(memTxKey{}).(*memTx)
	return tx, ok
}

// RunInTx runs fn with exclusive write access. Nested calls join the outer transaction.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := memTxFrom(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	tx := &memTx{writes: make(map[int64]*models.Record), lastID: s.lastID}
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range tx.writes {
		if rec == nil {
			delete(s.records, id)
			continue
		}
		s.records[id] = *rec
	}
	s.lastID = tx.lastID
	return nil
}

func (s *InMemoryStore) Save(ctx context.Context, record models.Record) (int64, error) {
	var id int64
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		tx, _ := memTxFrom(ctx)
		rec := normalize(record)
		if rec.ID == 0 {
			tx.lastID++
			rec.ID = tx.lastID
		} else if rec.ID > tx.lastID {
			tx.lastID = rec.ID
		}
		tx.writes[rec.ID] = &rec
		id = rec.ID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("save diagnosis: %w", err)
	}
	return id, nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, id int64) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tx, ok := memTxFrom(ctx); ok {
		if rec, staged := tx.writes[id]; staged {
			if rec == nil {
				return nil, sentinel.ErrNotFound
			}
			out := rec.Clone()
			return &out, nil
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := rec.Clone()
	return &out, nil
}

func (s *InMemoryStore) ListByVerificationCode(ctx context.Context, code string) ([]models.Record, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]models.Record, 0)
	for _, rec := range all {
		if rec.VerificationCode == code {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

func (s *InMemoryStore) ListAll(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	merged := s.view(ctx)
	out := make([]models.Record, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) DeleteByID(ctx context.Context, id int64) error {
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		tx, _ := memTxFrom(ctx)
		tx.writes[id] = nil
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete diagnosis %d: %w", id, err)
	}
	return nil
}

func (s *InMemoryStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		tx, _ := memTxFrom(ctx)
		for id, rec := range s.view(ctx) {
			if rec.CreatedAt != nil && rec.CreatedAt.Before(cutoff) {
				tx.writes[id] = nil
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete obsolete diagnoses: %w", err)
	}
	return deleted, nil
}

// Ping always succeeds; memory is never unavailable.
func (s *InMemoryStore) Ping(context.Context) error { return nil }

// view merges committed records with writes staged in ctx's transaction.
func (s *InMemoryStore) view(ctx context.Context) map[int64]models.Record {
	s.mu.RLock()
	merged := make(map[int64]models.Record, len(s.records))
	for id, rec := range s.records {
		merged[id] = rec
	}
	s.mu.RUnlock()
	if tx, ok := memTxFrom(ctx); ok {
		for id, rec := range tx.writes {
			if rec == nil {
				delete(merged, id)
				continue
			}
			merged[id] = *rec
		}
	}
	return merged
}

// normalize mirrors what a SQL round trip does to optional fields.
func normalize(record models.Record) models.Record {
	rec := record.Clone()
	if rec.CreatedAt != nil {
		rec.CreatedAt = models.Timestamp(*rec.CreatedAt)
	}
	return rec
}
