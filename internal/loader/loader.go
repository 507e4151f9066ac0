package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/road-defect-dashboard/internal/adapter/feed"
	"github.com/couchcryptid/road-defect-dashboard/internal/domain"
	"github.com/couchcryptid/road-defect-dashboard/internal/observability"
)

// Fetcher retrieves one named feed resource.
type Fetcher interface {
	Fetch(ctx context.Context, resource string) ([]byte, error)
}

// Error describes the feed resource that aborted a load. StatusCode is the
// HTTP status when the failure was a non-success response, otherwise 0.
type Error struct {
	Resource   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to load %s: HTTP %d", e.Resource, e.StatusCode)
	}
	return fmt.Sprintf("failed to load %s: %v", e.Resource, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Loader builds snapshots from the four feed resources.
type Loader struct {
	fetcher Fetcher
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Loader reading through f.
func New(f Fetcher, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		fetcher: f,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a load has succeeded.
func (l *Loader) CheckReadiness(_ context.Context) error {
	if !l.ready.Load() {
		return errors.New("feed has not been loaded yet")
	}
	return nil
}

// Load fetches defects.csv, worst_roads.json, stats.json and heatmap.json in
// that order and parses each. The first failure aborts the remaining fetches
// and is returned as *Error; no partial snapshot is produced.
func (l *Loader) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}

	steps := []struct {
		resource string
		parse    func([]byte) error
	}{
		{feed.DefectsCSV, func(b []byte) error {
			table, err := domain.ParseCSV(bytes.NewReader(b))
			if err != nil {
				return err
			}
			snap.Defects = domain.ParseDefects(table)
			return nil
		}},
		{feed.WorstRoadsJSON, func(b []byte) (err error) {
			snap.Roads, err = domain.DecodeRoads(b)
			return err
		}},
		{feed.StatsJSON, func(b []byte) (err error) {
			snap.Stats, err = domain.DecodeStats(b)
			return err
		}},
		{feed.HeatmapJSON, func(b []byte) (err error) {
			snap.Heat, err = domain.DecodeHeatmap(b)
			return err
		}},
	}

	for _, step := range steps {
		body, err := l.fetcher.Fetch(ctx, step.resource)
		if err != nil {
			return nil, l.fail(step.resource, err)
		}
		if err := step.parse(body); err != nil {
			return nil, l.fail(step.resource, fmt.Errorf("parse: %w", err))
		}
	}

	snap.LoadedAt = domain.Clock().Now()
	unmappable := snap.Unmappable()

	l.metrics.DefectsLoaded.Set(float64(len(snap.Defects)))
	l.metrics.DefectsUnmappable.Set(float64(unmappable))
	l.ready.Store(true)

	l.logger.Info("feed loaded",
		"defects", len(snap.Defects),
		"unmappable", unmappable,
		"roads", len(snap.Roads),
		"heat_points", len(snap.Heat),
	)
	return snap, nil
}

func (l *Loader) fail(resource string, err error) error {
	lerr := &Error{Resource: resource, Err: err}
	var statusErr *feed.StatusError
	if errors.As(err, &statusErr) {
		lerr.StatusCode = statusErr.StatusCode
	}
	l.metrics.LoadFailures.Inc()
	l.logger.Error("feed load failed", "resource", resource, "status", lerr.StatusCode, "error", err)
	return lerr
}
