// Package scheduler runs named periodic jobs in-process. A name identifies at
// most one registration; each registration runs at most one instance of its
// job at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ExistingPolicy decides what happens when a name is already registered.
type ExistingPolicy int

const (
	// Keep leaves the existing registration running and ignores the new one.
	Keep ExistingPolicy = iota
	// Replace stops the existing registration and starts the new one.
	Replace
)

func (p ExistingPolicy) String() string {
	switch p {
	case Keep:
		return "KEEP"
	case Replace:
		return "REPLACE"
	default:
		return fmt.Sprintf("ExistingPolicy(%d)", int(p))
	}
}

// Job is one run of periodic work. The context ends when the registration is
// cancelled or the manager shuts down.
type Job func(ctx context.Context) error

var (
	ErrShutdown        = errors.New("scheduler is shut down")
	ErrInvalidInterval = errors.New("interval must be positive")
)

type registration struct {
	name     string
	interval time.Duration
	job      Job
	cancel   context.CancelFunc
	stopped  chan struct{}
	running  atomic.Bool
}

// Manager owns the periodic registrations.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*registration
	shutdown bool
	wg       sync.WaitGroup

	logger       *slog.Logger
	metrics      *Metrics
	runOnEnqueue bool
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithRunOnEnqueue starts the first run as soon as a job is registered
// instead of after the first interval.
func WithRunOnEnqueue(enabled bool) Option {
	return func(m *Manager) {
		m.runOnEnqueue = enabled
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{jobs: make(map[string]*registration)}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// EnqueueUniquePeriodic registers job under name to run every interval.
// It reports whether the given job was started; with Keep and an existing
// registration it was not.
func (m *Manager) EnqueueUniquePeriodic(name string, interval time.Duration, policy ExistingPolicy, job Job) (bool, error) {
	if interval <= 0 {
		return false, ErrInvalidInterval
	}
	if job == nil {
		return false, errors.New("job is required")
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return false, ErrShutdown
	}
	existing, ok := m.jobs[name]
	if ok && policy == Keep {
		m.mu.Unlock()
		m.logger.Debug("periodic job already registered, keeping it", "job", name)
		return false, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	reg := &registration{
		name:     name,
		interval: interval,
		job:      job,
		cancel:   cancel,
		stopped:  make(chan struct{}),
	}
	m.jobs[name] = reg
	m.wg.Add(1)
	m.mu.Unlock()

	if ok {
		existing.cancel()
		<-existing.stopped
		m.logger.Info("periodic job replaced", "job", name)
	}

	go m.loop(ctx, reg)
	m.logger.Info("periodic job scheduled",
		"job", name,
		"interval", interval.String(),
		"policy", policy.String(),
	)
	return true, nil
}

// CancelUnique stops the registration for name and waits for a run in
// progress to observe cancellation. It reports whether one existed.
func (m *Manager) CancelUnique(name string) bool {
	m.mu.Lock()
	reg, ok := m.jobs[name]
	if ok {
		delete(m.jobs, name)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	reg.cancel()
	<-reg.stopped
	m.logger.Info("periodic job cancelled", "job", name)
	return true
}

// Registered reports whether name currently has a registration.
func (m *Manager) Registered(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[name]
	return ok
}

// Shutdown cancels every registration and waits for running jobs to return.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.shutdown = true
	regs := make([]*registration, 0, len(m.jobs))
	for name, reg := range m.jobs {
		regs = append(regs, reg)
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	for _, reg := range regs {
		reg.cancel()
	}
	m.wg.Wait()
}

func (m *Manager) loop(ctx context.Context, reg *registration) {
	var runs sync.WaitGroup
	defer func() {
		runs.Wait()
		close(reg.stopped)
		m.wg.Done()
	}()

	ticker := time.NewTicker(reg.interval)
	defer ticker.Stop()

	if m.runOnEnqueue {
		m.trigger(ctx, reg, &runs)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.trigger(ctx, reg, &runs)
		}
	}
}

func (m *Manager) trigger(ctx context.Context, reg *registration, runs *sync.WaitGroup) {
	if !reg.running.CompareAndSwap(false, true) {
		m.metrics.skipped(reg.name)
		m.logger.Debug("previous run still in progress, skipping tick", "job", reg.name)
		return
	}
	runs.Add(1)
	go func() {
		defer runs.Done()
		defer reg.running.Store(false)
		m.run(ctx, reg)
	}()
}

func (m *Manager) run(ctx context.Context, reg *registration) {
	runID := uuid.NewString()
	start := time.Now()
	err := safeRun(ctx, reg.job)
	elapsed := time.Since(start)
	m.metrics.observe(reg.name, err, elapsed)
	if err != nil {
		m.logger.Error("periodic job failed",
			"job", reg.name,
			"run_id", runID,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return
	}
	m.logger.Debug("periodic job finished",
		"job", reg.name,
		"run_id", runID,
		"duration_ms", elapsed.Milliseconds(),
	)
}

func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job(ctx)
}
