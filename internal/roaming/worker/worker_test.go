package worker_test

//go:generate mockgen -source=worker.go -destination=../mocks/mocks.go -package=mocks EnablementChecker,CountryCodeUpdater,Scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"exposure/internal/platform/scheduler"
	"exposure/internal/roaming/mocks"
	"exposure/internal/roaming/worker"
)

// =============================================================================
// Country Checking Worker Test Suite
// =============================================================================
// Justification for unit tests: the worker is the boundary between the
// scheduler and the country code bookkeeping. Tests pin the enablement gate,
// the order of the two bookkeeping steps and the error-to-result mapping.

type WorkerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	enablement *mocks.MockEnablementChecker
	codes      *mocks.MockCountryCodeUpdater
	scheduler  *mocks.MockScheduler
	logger     *slog.Logger
	worker     *worker.CountryCheckingWorker
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.enablement = mocks.NewMockEnablementChecker(s.ctrl)
	s.codes = mocks.NewMockCountryCodeUpdater(s.ctrl)
	s.scheduler = mocks.NewMockScheduler(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.worker = worker.New(s.enablement, s.codes, worker.WithLogger(s.logger))
}

func (s *WorkerSuite) TearDownTest() {
	s.ctrl.Finish()
}

// =============================================================================
// Run
// =============================================================================

func (s *WorkerSuite) TestRun() {
	ctx := context.Background()

	s.Run("enabled updates then prunes and succeeds", func() {
		s.enablement.EXPECT().IsEnabled(gomock.Any()).Return(true, nil)
		gomock.InOrder(
			s.codes.EXPECT().UpdateWithCurrentCountryCode(gomock.Any()).Return(nil),
			s.codes.EXPECT().DeleteObsoleteCountryCodes(gomock.Any()).Return(nil),
			s.codes.EXPECT().RecentCountryCodes(gomock.Any()).Return([]string{"CH", "DE"}, nil),
		)

		s.Equal(worker.ResultSuccess, s.worker.Run(ctx))
	})

	s.Run("listing recent codes cannot fail a completed check", func() {
		s.enablement.EXPECT().IsEnabled(gomock.Any()).Return(true, nil)
		s.codes.EXPECT().UpdateWithCurrentCountryCode(gomock.Any()).Return(nil)
		s.codes.EXPECT().DeleteObsoleteCountryCodes(gomock.Any()).Return(nil)
		s.codes.EXPECT().RecentCountryCodes(gomock.Any()).Return(nil, errors.New("redis down"))

		s.Equal(worker.ResultSuccess, s.worker.Run(ctx))
	})

	s.Run("disabled touches nothing and still succeeds", func() {
		s.enablement.EXPECT().IsEnabled(gomock.Any()).Return(false, nil)

		s.Equal(worker.ResultSuccess, s.worker.Run(ctx))
	})

	s.Run("enablement error is a failure", func() {
		s.enablement.EXPECT().IsEnabled(gomock.Any()).Return(false, errors.New("api unavailable"))

		s.Equal(worker.ResultFailure, s.worker.Run(ctx))
	})

	s.Run("update error is a failure and skips pruning", func() {
		s.enablement.EXPECT().IsEnabled(gomock.Any()).Return(true, nil)
		s.codes.EXPECT().UpdateWithCurrentCountryCode(gomock.Any()).Return(errors.New("redis down"))

		s.Equal(worker.ResultFailure, s.worker.Run(ctx))
	})

	s.Run("prune error is a failure", func() {
		s.enablement.EXPECT().IsEnabled(gomock.Any()).Return(true, nil)
		s.codes.EXPECT().UpdateWithCurrentCountryCode(gomock.Any()).Return(nil)
		s.codes.EXPECT().DeleteObsoleteCountryCodes(gomock.Any()).Return(errors.New("redis down"))

		s.Equal(worker.ResultFailure, s.worker.Run(ctx))
	})
}

func (s *WorkerSuite) TestJobMapsResultToError() {
	s.enablement.EXPECT().IsEnabled(gomock.Any()).Return(false, errors.New("boom"))
	s.ErrorIs(s.worker.Job()(context.Background()), worker.ErrRunFailed)

	s.enablement.EXPECT().IsEnabled(gomock.Any()).Return(false, nil)
	s.NoError(s.worker.Job()(context.Background()))
}

// =============================================================================
// Scheduling
// =============================================================================

func (s *WorkerSuite) TestSchedule() {
	s.Run("registers unique periodic work with keep policy", func() {
		s.scheduler.EXPECT().
			EnqueueUniquePeriodic(worker.Name, worker.DefaultInterval, scheduler.Keep, gomock.Any()).
			Return(true, nil)

		s.NoError(worker.Schedule(s.scheduler, s.worker, 0, s.logger))
	})

	s.Run("propagates registration errors", func() {
		s.scheduler.EXPECT().
			EnqueueUniquePeriodic(worker.Name, gomock.Any(), scheduler.Keep, gomock.Any()).
			Return(false, scheduler.ErrShutdown)

		s.ErrorIs(worker.Schedule(s.scheduler, s.worker, worker.DefaultInterval, s.logger), scheduler.ErrShutdown)
	})

	s.Run("cancel removes the unique registration", func() {
		s.scheduler.EXPECT().CancelUnique(worker.Name).Return(true)

		worker.Cancel(s.scheduler, s.logger)
	})
}

func TestResultString(t *testing.T) {
	if worker.ResultSuccess.String() != "success" || worker.ResultFailure.String() != "failure" {
		t.Fatal("unexpected result names")
	}
}
