package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"exposure/internal/diagnosis/metrics"
	"exposure/internal/diagnosis/models"
	"exposure/internal/diagnosis/service"
	"exposure/internal/diagnosis/store"
	"exposure/internal/platform/database"
	"exposure/pkg/platform/clock"
	"exposure/pkg/platform/sentinel"
)

var (
	_ service.Store = (*store.InMemoryStore)(nil)
	_ service.Store = (*store.SQLStore)(nil)
)

var epoch = time.Date(2020, time.July, 1, 9, 30, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	newStore func(t *testing.T) service.Store
	clock    *clock.Fake
	metrics  *metrics.Metrics
	service  *service.Service
}

func TestServiceInMemorySuite(t *testing.T) {
	suite.Run(t, &ServiceSuite{newStore: func(*testing.T) service.Store {
		return store.NewInMemoryStore()
	}})
}

func TestServiceSQLiteSuite(t *testing.T) {
	suite.Run(t, &ServiceSuite{newStore: func(t *testing.T) service.Store {
		ctx := context.Background()
		db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "diagnoses.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		st, err := store.NewSQL(db, store.DialectSQLite)
		require.NoError(t, err)
		require.NoError(t, st.Migrate(ctx))
		return st
	}})
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewFake(epoch)
	s.metrics = metrics.New(prometheus.NewRegistry())
	svc, err := service.New(s.newStore(s.T()), s.clock,
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.service = svc
	s.T().Cleanup(svc.Close)
}

func (s *ServiceSuite) TestUpsert() {
	s.Run("new record gets a fresh id and the clock's time", func() {
		id, err := s.service.Upsert(s.ctx, models.Record{VerificationCode: "123456", TestResult: models.TestResultConfirmed})
		s.Require().NoError(err)
		s.Positive(id)

		got, err := s.service.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal(id, got.ID)
		s.Equal("123456", got.VerificationCode)
		s.Equal(models.TestResultConfirmed, got.TestResult)
		s.Require().NotNil(got.CreatedAt)
		s.True(got.CreatedAt.Equal(epoch))
	})

	s.Run("keeps a caller supplied creation time", func() {
		id, err := s.service.Upsert(s.ctx, models.Record{CreatedAt: models.TimestampMillis(42)})
		s.Require().NoError(err)

		got, err := s.service.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(int64(42), got.CreatedAt.UnixMilli())
	})

	s.Run("replaces every field of an existing record", func() {
		onset := models.NewDate(2020, time.June, 20)
		id, err := s.service.Upsert(s.ctx, models.Record{
			VerificationCode: "code",
			RevisionToken:    "rev",
			OnsetDate:        &onset,
			HasSymptoms:      models.HasSymptomsYes,
		})
		s.Require().NoError(err)

		replacement := models.Record{ID: id, CreatedAt: models.TimestampMillis(7), SharedStatus: models.SharedShared}
		same, err := s.service.Upsert(s.ctx, replacement)
		s.Require().NoError(err)
		s.Equal(id, same)

		got, err := s.service.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(replacement, *got)
	})

	s.Run("replaying the same full record is idempotent", func() {
		rec := models.Record{ID: 500, VerificationCode: "replay", CreatedAt: models.TimestampMillis(99)}
		_, err := s.service.Upsert(s.ctx, rec)
		s.Require().NoError(err)
		once, err := s.service.GetAll(s.ctx)
		s.Require().NoError(err)

		_, err = s.service.Upsert(s.ctx, rec)
		s.Require().NoError(err)
		twice, err := s.service.GetAll(s.ctx)
		s.Require().NoError(err)
		s.Equal(once, twice)
	})

	s.Run("auto ids stay above explicit ones", func() {
		_, err := s.service.Upsert(s.ctx, models.Record{ID: 1_000})
		s.Require().NoError(err)
		id, err := s.service.Upsert(s.ctx, models.Record{})
		s.Require().NoError(err)
		s.Greater(id, int64(1_000))
	})

	s.Run("rejects invalid enum values", func() {
		_, err := s.service.Upsert(s.ctx, models.Record{TestResult: "POSITIVE"})
		s.ErrorIs(err, service.ErrInvalidArgument)
	})

	s.Run("rejects negative ids", func() {
		_, err := s.service.Upsert(s.ctx, models.Record{ID: -5, VerificationCode: "neg"})
		s.ErrorIs(err, service.ErrInvalidArgument)

		got, err := s.service.GetByID(s.ctx, -5)
		s.Require().NoError(err)
		s.Nil(got)
	})
}

func (s *ServiceSuite) TestGetByID() {
	s.Run("absent is not an error", func() {
		got, err := s.service.GetByID(s.ctx, 12_345)
		s.Require().NoError(err)
		s.Nil(got)
	})

	s.Run("deleted records read as absent", func() {
		id, err := s.service.Upsert(s.ctx, models.Record{})
		s.Require().NoError(err)
		s.Require().NoError(s.service.DeleteByID(s.ctx, id))

		got, err := s.service.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Nil(got)
	})

	s.Run("deleting a missing id is a no-op", func() {
		s.NoError(s.service.DeleteByID(s.ctx, 98_765))
	})
}

func (s *ServiceSuite) TestGetByVerificationCode() {
	for _, id := range []int64{1, 2, 3} {
		_, err := s.service.Upsert(s.ctx, models.Record{ID: id, VerificationCode: "shared"})
		s.Require().NoError(err)
	}
	_, err := s.service.Upsert(s.ctx, models.Record{VerificationCode: "other"})
	s.Require().NoError(err)
	later, err := s.service.Upsert(s.ctx, models.Record{VerificationCode: "shared"})
	s.Require().NoError(err)

	s.Run("returns matching records in id order", func() {
		recs, err := s.service.GetByVerificationCode(s.ctx, "shared")
		s.Require().NoError(err)
		s.Equal([]int64{1, 2, 3, later}, idsOf(recs))
	})

	s.Run("returns empty, not nil, without matches", func() {
		recs, err := s.service.GetByVerificationCode(s.ctx, "missing")
		s.Require().NoError(err)
		s.NotNil(recs)
		s.Empty(recs)
	})
}

func (s *ServiceSuite) TestMostRecentRevisionToken() {
	s.Run("absent when the store is empty", func() {
		_, ok, err := s.service.MostRecentRevisionToken(s.ctx)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("absent when every token is empty", func() {
		_, err := s.service.Upsert(s.ctx, models.Record{CreatedAt: models.TimestampMillis(5)})
		s.Require().NoError(err)

		_, ok, err := s.service.MostRecentRevisionToken(s.ctx)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("picks the newest record that has a token", func() {
		for i, ts := range []int64{10, 42, 43, 44} {
			token := []string{"t1", "t2", "t3", ""}[i]
			_, err := s.service.Upsert(s.ctx, models.Record{CreatedAt: models.TimestampMillis(ts), RevisionToken: token})
			s.Require().NoError(err)
		}

		token, ok, err := s.service.MostRecentRevisionToken(s.ctx)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal("t3", token)
	})

	s.Run("equal timestamps resolve to the highest id", func() {
		_, err := s.service.Upsert(s.ctx, models.Record{ID: 900, CreatedAt: models.TimestampMillis(50), RevisionToken: "low"})
		s.Require().NoError(err)
		_, err = s.service.Upsert(s.ctx, models.Record{ID: 901, CreatedAt: models.TimestampMillis(50), RevisionToken: "high"})
		s.Require().NoError(err)

		token, ok, err := s.service.MostRecentRevisionToken(s.ctx)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal("high", token)
	})
}

func (s *ServiceSuite) TestCreateOrMutateByID() {
	s.Run("creates a record from the default when absent", func() {
		id, err := s.service.CreateOrMutateByID(s.ctx, 0, func(cur models.Record) (models.Record, error) {
			s.Equal(models.Record{}, cur)
			cur.VerificationCode = "fresh"
			return cur, nil
		})
		s.Require().NoError(err)
		s.Positive(id)

		got, err := s.service.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal("fresh", got.VerificationCode)
		s.True(got.CreatedAt.Equal(epoch))
	})

	s.Run("mutates in place and keeps untouched fields", func() {
		id, err := s.service.Upsert(s.ctx, models.Record{
			VerificationCode: "keep",
			CreatedAt:        models.TimestampMillis(1_234),
			TestResult:       models.TestResultLikely,
		})
		s.Require().NoError(err)

		got, err := s.service.CreateOrMutateByID(s.ctx, id, func(cur models.Record) (models.Record, error) {
			cur.SharedStatus = models.SharedShared
			cur.ID = 77_777
			return cur, nil
		})
		s.Require().NoError(err)
		s.Equal(id, got)

		rec, err := s.service.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(models.SharedShared, rec.SharedStatus)
		s.Equal("keep", rec.VerificationCode)
		s.Equal(models.TestResultLikely, rec.TestResult)
		s.Equal(int64(1_234), rec.CreatedAt.UnixMilli())
	})

	s.Run("a failing mutator writes nothing", func() {
		id, err := s.service.Upsert(s.ctx, models.Record{VerificationCode: "before"})
		s.Require().NoError(err)

		errBoom := errors.New("boom")
		_, err = s.service.CreateOrMutateByID(s.ctx, id, func(cur models.Record) (models.Record, error) {
			cur.VerificationCode = "after"
			return cur, errBoom
		})
		s.ErrorIs(err, service.ErrMutatorFailed)
		s.ErrorIs(err, errBoom)

		rec, err := s.service.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal("before", rec.VerificationCode)
	})

	s.Run("a panicking mutator is reported as a failure", func() {
		before, err := s.service.GetAll(s.ctx)
		s.Require().NoError(err)

		_, err = s.service.CreateOrMutateByID(s.ctx, 0, func(models.Record) (models.Record, error) {
			panic("mutator exploded")
		})
		s.ErrorIs(err, service.ErrMutatorFailed)

		after, err := s.service.GetAll(s.ctx)
		s.Require().NoError(err)
		s.Equal(before, after)
	})

	s.Run("nil mutator is rejected", func() {
		_, err := s.service.CreateOrMutateByID(s.ctx, 1, nil)
		s.ErrorIs(err, service.ErrInvalidArgument)
	})

	s.Run("negative ids are rejected before the mutator runs", func() {
		called := false
		_, err := s.service.CreateOrMutateByID(s.ctx, -5, func(cur models.Record) (models.Record, error) {
			called = true
			return cur, nil
		})
		s.ErrorIs(err, service.ErrInvalidArgument)
		s.False(called)
	})

	s.Run("a record built from the default reads back as unset", func() {
		id, err := s.service.CreateOrMutateByID(s.ctx, 0, func(cur models.Record) (models.Record, error) {
			return cur, nil
		})
		s.Require().NoError(err)

		rec, err := s.service.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(models.SharedNotAttempted, rec.SharedStatus)
		s.Equal(models.HasSymptomsUnset, rec.HasSymptoms)
		s.Equal(models.TestResultUnset, rec.TestResult)
		s.Equal(models.TravelStatusNotAttempted, rec.TravelStatus)
	})
}

func (s *ServiceSuite) TestConcurrency() {
	s.Run("read-modify-write on one id never loses an update", func() {
		id, err := s.service.Upsert(s.ctx, models.Record{})
		s.Require().NoError(err)

		const writers = 32
		g, ctx := errgroup.WithContext(s.ctx)
		for range writers {
			g.Go(func() error {
				_, err := s.service.CreateOrMutateByID(ctx, id, func(cur models.Record) (models.Record, error) {
					cur.VerificationCode += "x"
					return cur, nil
				})
				return err
			})
		}
		s.Require().NoError(g.Wait())

		rec, err := s.service.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(strings.Repeat("x", writers), rec.VerificationCode)
	})

	s.Run("upserts to distinct ids are all kept", func() {
		g, ctx := errgroup.WithContext(s.ctx)
		for i := range 20 {
			g.Go(func() error {
				_, err := s.service.Upsert(ctx, models.Record{ID: int64(2_000 + i), VerificationCode: "distinct"})
				return err
			})
		}
		s.Require().NoError(g.Wait())

		recs, err := s.service.GetByVerificationCode(s.ctx, "distinct")
		s.Require().NoError(err)
		s.Len(recs, 20)
	})

	s.Run("racing full writes to one id never merge fields", func() {
		a := models.Record{ID: 3_000, VerificationCode: "a", RevisionToken: "ra", CreatedAt: models.TimestampMillis(1)}
		b := models.Record{ID: 3_000, LongTermToken: "lb", TestResult: models.TestResultNegative, CreatedAt: models.TimestampMillis(2)}

		g, ctx := errgroup.WithContext(s.ctx)
		for _, rec := range []models.Record{a, b} {
			g.Go(func() error {
				_, err := s.service.Upsert(ctx, rec)
				return err
			})
		}
		s.Require().NoError(g.Wait())

		got, err := s.service.GetByID(s.ctx, 3_000)
		s.Require().NoError(err)
		s.Contains([]models.Record{a, b}, *got)
	})
}

func (s *ServiceSuite) TestObserve() {
	_, err := s.service.Upsert(s.ctx, models.Record{ID: 1, VerificationCode: "existing"})
	s.Require().NoError(err)

	snapshots := make(chan []models.Record, 16)
	sub, err := s.service.Observe(s.ctx, func(recs []models.Record) { snapshots <- recs })
	s.Require().NoError(err)
	defer sub.Close()

	s.Run("delivers the current collection on registration", func() {
		s.Equal([]int64{1}, idsOf(receive(s.T(), snapshots)))
	})

	s.Run("delivers exactly one snapshot per write", func() {
		id, err := s.service.Upsert(s.ctx, models.Record{VerificationCode: "new"})
		s.Require().NoError(err)
		s.Equal([]int64{1, id}, idsOf(receive(s.T(), snapshots)))
		assertQuiet(s.T(), snapshots)

		s.Require().NoError(s.service.DeleteByID(s.ctx, 1))
		s.Equal([]int64{id}, idsOf(receive(s.T(), snapshots)))
		assertQuiet(s.T(), snapshots)
	})

	s.Run("failed writes do not notify", func() {
		_, err := s.service.CreateOrMutateByID(s.ctx, 0, func(models.Record) (models.Record, error) {
			return models.Record{}, errors.New("nope")
		})
		s.Require().Error(err)
		assertQuiet(s.T(), snapshots)
	})

	s.Run("stops after close", func() {
		sub.Close()
		sub.Close()
		<-sub.Done()
		_, err := s.service.Upsert(s.ctx, models.Record{})
		s.Require().NoError(err)
		assertQuiet(s.T(), snapshots)
		s.Equal(0.0, testutil.ToFloat64(s.metrics.Subscribers))
	})
}

func (s *ServiceSuite) TestObserversAreIndependent() {
	release := make(chan struct{})
	slowSeen := make(chan []models.Record, 16)
	slow, err := s.service.Observe(s.ctx, func(recs []models.Record) {
		<-release
		slowSeen <- recs
	})
	s.Require().NoError(err)
	defer slow.Close()

	fast := make(chan []models.Record, 16)
	sub, err := s.service.Observe(s.ctx, func(recs []models.Record) { fast <- recs })
	s.Require().NoError(err)
	defer sub.Close()
	receive(s.T(), fast)

	for i := range 3 {
		_, err := s.service.Upsert(s.ctx, models.Record{VerificationCode: fmt.Sprintf("c%d", i)})
		s.Require().NoError(err)
	}
	for want := 1; want <= 3; want++ {
		s.Len(receive(s.T(), fast), want)
	}

	close(release)
	for want := 0; want <= 3; want++ {
		s.Len(receive(s.T(), slowSeen), want)
	}
}

func (s *ServiceSuite) TestObserverSnapshotsAreMonotonic() {
	snapshots := make(chan []models.Record, 128)
	sub, err := s.service.Observe(s.ctx, func(recs []models.Record) { snapshots <- recs })
	s.Require().NoError(err)
	defer sub.Close()
	receive(s.T(), snapshots)

	const writers = 20
	g, ctx := errgroup.WithContext(s.ctx)
	for range writers {
		g.Go(func() error {
			_, err := s.service.Upsert(ctx, models.Record{})
			return err
		})
	}
	s.Require().NoError(g.Wait())

	prev := 0
	for range writers {
		n := len(receive(s.T(), snapshots))
		s.GreaterOrEqual(n, prev)
		prev = n
	}
	s.Equal(writers, prev)
}

func (s *ServiceSuite) TestDeleteObsolete() {
	s.clock.Set(epoch.Add(30 * 24 * time.Hour))
	old, err := s.service.Upsert(s.ctx, models.Record{CreatedAt: models.Timestamp(epoch)})
	s.Require().NoError(err)
	fresh, err := s.service.Upsert(s.ctx, models.Record{})
	s.Require().NoError(err)

	n, err := s.service.DeleteObsolete(s.ctx, 14*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	recs, err := s.service.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Equal([]int64{fresh}, idsOf(recs))
	s.NotEqual(old, fresh)

	_, err = s.service.DeleteObsolete(s.ctx, -time.Hour)
	s.ErrorIs(err, service.ErrInvalidArgument)
}

func (s *ServiceSuite) TestAsync() {
	s.Run("futures resolve to the blocking results", func() {
		id, err := s.service.UpsertAsync(s.ctx, models.Record{RevisionToken: "async"}).Await(s.ctx)
		s.Require().NoError(err)

		rec, err := s.service.GetByIDAsync(s.ctx, id).Await(s.ctx)
		s.Require().NoError(err)
		s.Equal("async", rec.RevisionToken)

		tok, err := s.service.MostRecentRevisionTokenAsync(s.ctx).Await(s.ctx)
		s.Require().NoError(err)
		s.Equal(service.RevisionToken{Token: "async", Found: true}, tok)

		mutated, err := s.service.CreateOrMutateByIDAsync(s.ctx, id, func(cur models.Record) (models.Record, error) {
			cur.VerificationCode = "via-future"
			return cur, nil
		}).Await(s.ctx)
		s.Require().NoError(err)
		s.Equal(id, mutated)

		recs, err := s.service.GetByVerificationCodeAsync(s.ctx, "via-future").Await(s.ctx)
		s.Require().NoError(err)
		s.Len(recs, 1)

		_, err = s.service.DeleteByIDAsync(s.ctx, id).Await(s.ctx)
		s.Require().NoError(err)
	})

	s.Run("abandoning the wait keeps a committed write", func() {
		waitCtx, cancel := context.WithCancel(s.ctx)
		future := s.service.UpsertAsync(s.ctx, models.Record{ID: 4_000, VerificationCode: "committed"})
		cancel()
		_, err := future.Await(waitCtx)
		s.ErrorIs(err, context.Canceled)

		_, err = future.Get()
		s.Require().NoError(err)
		rec, err := s.service.GetByID(s.ctx, 4_000)
		s.Require().NoError(err)
		s.Require().NotNil(rec)
	})

	s.Run("a cancelled context fails the write before it starts", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		_, err := s.service.Upsert(ctx, models.Record{ID: 4_001})
		s.ErrorIs(err, context.Canceled)

		rec, err := s.service.GetByID(s.ctx, 4_001)
		s.Require().NoError(err)
		s.Nil(rec)
	})
}

// failingStore reports every write as a storage outage.
type failingStore struct {
	*store.InMemoryStore
}

func (failingStore) Save(context.Context, models.Record) (int64, error) {
	return 0, sentinel.Unavailable(errors.New("disk I/O error"))
}

func TestStorageUnavailableIsReported(t *testing.T) {
	svc, err := service.New(failingStore{store.NewInMemoryStore()}, clock.NewFake(epoch),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	_, err = svc.Upsert(context.Background(), models.Record{})
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)

	_, err = svc.UpsertAsync(context.Background(), models.Record{}).Get()
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := service.New(nil, clock.Real{})
	assert.Error(t, err)
	_, err = service.New(store.NewInMemoryStore(), nil)
	assert.Error(t, err)
}

func receive(t *testing.T, ch <-chan []models.Record) []models.Record {
	t.Helper()
	select {
	case recs := <-ch:
		return recs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func assertQuiet(t *testing.T, ch <-chan []models.Record) {
	t.Helper()
	select {
	case recs := <-ch:
		t.Fatalf("unexpected snapshot with %d records", len(recs))
	case <-time.After(50 * time.Millisecond):
	}
}

func idsOf(recs []models.Record) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}
