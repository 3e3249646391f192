package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"exposure/internal/platform/scheduler"
)

const (
	// Name identifies the unique periodic registration.
	Name = "CountryCheckingWorker"
	// DefaultInterval is how often the current country is sampled.
	DefaultInterval = 6 * time.Hour
)

// Result is the outcome of one run.
type Result int

const (
	ResultSuccess Result = iota
	ResultFailure
)

func (r Result) String() string {
	if r == ResultSuccess {
		return "success"
	}
	return "failure"
}

// ErrRunFailed is what a scheduled run reports when Run returned ResultFailure.
var ErrRunFailed = errors.New("country check failed")

// EnablementChecker reports whether exposure notifications are turned on.
type EnablementChecker interface {
	IsEnabled(ctx context.Context) (bool, error)
}

// CountryCodeUpdater is the slice of roaming/service.CountryCodes the worker drives.
type CountryCodeUpdater interface {
	UpdateWithCurrentCountryCode(ctx context.Context) error
	DeleteObsoleteCountryCodes(ctx context.Context) error
	RecentCountryCodes(ctx context.Context) ([]string, error)
}

// Scheduler registers unique periodic work.
type Scheduler interface {
	EnqueueUniquePeriodic(name string, interval time.Duration, policy scheduler.ExistingPolicy, job scheduler.Job) (bool, error)
	CancelUnique(name string) bool
}

// CountryCheckingWorker samples the current country while exposure
// notifications are enabled and prunes sightings outside the exposure window.
type CountryCheckingWorker struct {
	enablement EnablementChecker
	codes      CountryCodeUpdater
	logger     *slog.Logger
}

type Option func(*CountryCheckingWorker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *CountryCheckingWorker) {
		w.logger = logger
	}
}

func New(enablement EnablementChecker, codes CountryCodeUpdater, opts ...Option) *CountryCheckingWorker {
	w := &CountryCheckingWorker{enablement: enablement, codes: codes}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Run performs one check. It never returns an error: failures are logged and
// reported as ResultFailure. When notifications are disabled nothing is
// touched and the run still succeeds.
func (w *CountryCheckingWorker) Run(ctx context.Context) Result {
	if err := w.check(ctx); err != nil {
		w.logger.ErrorContext(ctx, "failure to check country code", "error", err)
		return ResultFailure
	}
	return ResultSuccess
}

func (w *CountryCheckingWorker) check(ctx context.Context) error {
	enabled, err := w.enablement.IsEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		w.logger.DebugContext(ctx, "exposure notifications disabled, skipping country check")
		return nil
	}
	if err := w.codes.UpdateWithCurrentCountryCode(ctx); err != nil {
		return err
	}
	if err := w.codes.DeleteObsoleteCountryCodes(ctx); err != nil {
		return err
	}
	// the history is informational; failing to read it does not fail the run
	recent, err := w.codes.RecentCountryCodes(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "failed to list recent country codes", "error", err)
		return nil
	}
	w.logger.InfoContext(ctx, "country codes checked", "recent", recent)
	return nil
}

// Job adapts Run to the scheduler.
func (w *CountryCheckingWorker) Job() scheduler.Job {
	return func(ctx context.Context) error {
		if w.Run(ctx) == ResultFailure {
			return ErrRunFailed
		}
		return nil
	}
}

// Schedule registers the worker every interval, keeping an existing
// registration. Changing the interval for an already-registered worker
// needs scheduler.Replace instead.
func Schedule(s Scheduler, w *CountryCheckingWorker, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger.Debug("scheduling country code checker", "interval", interval.String())
	_, err := s.EnqueueUniquePeriodic(Name, interval, scheduler.Keep, w.Job())
	return err
}

func Cancel(s Scheduler, logger *slog.Logger) {
	logger.Debug("cancelling country code checker")
	s.CancelUnique(Name)
}

// ConfiguredEnablement is an EnablementChecker backed by a fixed setting.
type ConfiguredEnablement bool

func (e ConfiguredEnablement) IsEnabled(context.Context) (bool, error) {
	return bool(e), nil
}
