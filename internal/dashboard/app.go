package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/road-defect-dashboard/internal/domain"
	"github.com/couchcryptid/road-defect-dashboard/internal/observability"
)

// SnapshotLoader builds a complete snapshot from the feed.
type SnapshotLoader interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
}

// Presenter shows the non-map panels of the dashboard.
type Presenter interface {
	ShowSummary(s domain.Summary)
	ShowChart(counts []domain.CategoryCount)
	ShowRanking(roads []domain.RankedRoad)
	ShowLegend(entries []domain.LegendEntry)
	ShowError(err error)
	ShowNotice(msg string)
}

// App owns the current snapshot and drives the presenter and map view.
type App struct {
	loader      SnapshotLoader
	view        *View
	presenter   Presenter
	rng         domain.Rand
	uploadDelay time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics

	snap atomic.Pointer[domain.Snapshot]

	// mu serializes snapshot replacement, uploads and placement.
	mu      sync.Mutex
	pending *Analysis
}

// NewApp wires an App. uploadDelay is the simulated analysis time.
func NewApp(loader SnapshotLoader, view *View, presenter Presenter, rng domain.Rand, uploadDelay time.Duration, logger *slog.Logger, metrics *observability.Metrics) *App {
	return &App{
		loader:      loader,
		view:        view,
		presenter:   presenter,
		rng:         rng,
		uploadDelay: uploadDelay,
		logger:      logger,
		metrics:     metrics,
	}
}

// Snapshot returns the current state, or nil before the first successful load.
func (a *App) Snapshot() *domain.Snapshot {
	return a.snap.Load()
}

// Init performs the first load.
func (a *App) Init(ctx context.Context) error {
	return a.load(ctx)
}

// Reload replaces the snapshot wholesale. On failure the previous snapshot
// stays current and nothing is redrawn.
func (a *App) Reload(ctx context.Context) error {
	return a.load(ctx)
}

func (a *App) load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap, err := a.loader.Load(ctx)
	if err != nil {
		a.presenter.ShowError(err)
		return err
	}

	a.snap.Store(snap)
	a.pending = nil
	return a.render(snap)
}

// render draws every panel in order: summary, chart, ranking, map layers,
// legend. The text panels are already shown when a map write fails; the error
// follows them and the legend is withheld. Must be called with a.mu held.
func (a *App) render(snap *domain.Snapshot) error {
	a.presenter.ShowSummary(domain.Summarize(snap.Stats))
	a.presenter.ShowChart(domain.CountByCategory(snap.Defects))
	a.presenter.ShowRanking(domain.TopRoads(snap.Roads, domain.TopRoadsLimit))
	if err := a.view.Render(snap); err != nil {
		err = fmt.Errorf("render map: %w", err)
		a.presenter.ShowError(err)
		return err
	}
	a.presenter.ShowLegend(domain.Legend())
	return nil
}
