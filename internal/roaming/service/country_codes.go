package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"exposure/internal/roaming/models"
	"exposure/pkg/platform/clock"
)

// DefaultRetention matches the exposure window: sightings older than this no
// longer matter for key matching across countries.
const DefaultRetention = 14 * 24 * time.Hour

// CountryDetector reports the country the device is in now. An empty code
// means the country could not be determined.
type CountryDetector interface {
	CurrentCountryCode(ctx context.Context) (string, error)
}

// Store persists country code sightings.
type Store interface {
	Upsert(ctx context.Context, code models.CountryCode) error
	DeleteSeenBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListSeenSince(ctx context.Context, since time.Time) ([]models.CountryCode, error)
}

// CountryCodes tracks which countries the device visited recently.
type CountryCodes struct {
	store     Store
	detector  CountryDetector
	clock     clock.Clock
	retention time.Duration
	logger    *slog.Logger
}

type Option func(*CountryCodes)

func WithLogger(logger *slog.Logger) Option {
	return func(c *CountryCodes) {
		c.logger = logger
	}
}

// WithRetention changes how long sightings are kept. Non-positive values are ignored.
func WithRetention(d time.Duration) Option {
	return func(c *CountryCodes) {
		if d > 0 {
			c.retention = d
		}
	}
}

func New(store Store, detector CountryDetector, clk clock.Clock, opts ...Option) (*CountryCodes, error) {
	if store == nil {
		return nil, errors.New("country code store is required")
	}
	if detector == nil {
		return nil, errors.New("country detector is required")
	}
	if clk == nil {
		return nil, errors.New("clock is required")
	}
	c := &CountryCodes{
		store:     store,
		detector:  detector,
		clock:     clk,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// UpdateWithCurrentCountryCode records the detected country as seen now.
// An undetermined country is skipped.
func (c *CountryCodes) UpdateWithCurrentCountryCode(ctx context.Context) error {
	raw, err := c.detector.CurrentCountryCode(ctx)
	if err != nil {
		return fmt.Errorf("detect country code: %w", err)
	}
	code := models.NormalizeCode(raw)
	if code == "" {
		c.logger.DebugContext(ctx, "country code unknown, skipping update", "raw", raw)
		return nil
	}
	return c.store.Upsert(ctx, models.CountryCode{Code: code, LastSeen: c.clock.Now()})
}

// DeleteObsoleteCountryCodes drops sightings older than the retention window.
func (c *CountryCodes) DeleteObsoleteCountryCodes(ctx context.Context) error {
	n, err := c.store.DeleteSeenBefore(ctx, c.cutoff())
	if err != nil {
		return err
	}
	if n > 0 {
		c.logger.InfoContext(ctx, "deleted obsolete country codes", "count", n)
	}
	return nil
}

// RecentCountryCodes lists codes seen inside the retention window, most recent first.
func (c *CountryCodes) RecentCountryCodes(ctx context.Context) ([]string, error) {
	seen, err := c.store.ListSeenSince(ctx, c.cutoff())
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(seen))
	for _, s := range seen {
		codes = append(codes, s.Code)
	}
	return codes, nil
}

func (c *CountryCodes) cutoff() time.Time {
	return c.clock.Now().Add(-c.retention)
}

// StaticDetector reports a fixed country, e.g. one taken from configuration.
type StaticDetector string

func (d StaticDetector) CurrentCountryCode(context.Context) (string, error) {
	return string(d), nil
}
