package dashboard_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/road-defect-dashboard/internal/dashboard"
	"github.com/couchcryptid/road-defect-dashboard/internal/domain"
	"github.com/couchcryptid/road-defect-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
)

const testPulseInterval = 500 * time.Millisecond

// recorder is a shared, ordered log of presenter and surface calls.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// --- mock map surface ---

type mockSurface struct {
	rec *recorder

	mu     sync.Mutex
	layers map[dashboard.Mode]dashboard.Layer
	tiles  dashboard.Tiles
	pulses int
	addErr error
}

func newMockSurface(rec *recorder) *mockSurface {
	return &mockSurface{rec: rec, layers: make(map[dashboard.Mode]dashboard.Layer)}
}

func (m *mockSurface) SetBaseTiles(t dashboard.Tiles) error {
	m.mu.Lock()
	m.tiles = t
	m.mu.Unlock()
	m.rec.add("tiles:" + string(t))
	return nil
}

func (m *mockSurface) AddLayer(layer dashboard.Layer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.layers[layer.Mode] = layer
	m.rec.add("add:" + string(layer.Mode))
	return nil
}

func (m *mockSurface) RemoveLayer(mode dashboard.Mode) error {
	m.mu.Lock()
	delete(m.layers, mode)
	m.mu.Unlock()
	m.rec.add("remove:" + string(mode))
	return nil
}

func (m *mockSurface) Pulse(_ dashboard.Mode, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulses++
}

func (m *mockSurface) pulseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pulses
}

func (m *mockSurface) attached() []dashboard.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dashboard.Mode
	for _, mode := range dashboard.Modes {
		if _, ok := m.layers[mode]; ok {
			out = append(out, mode)
		}
	}
	return out
}

func (m *mockSurface) layer(mode dashboard.Mode) dashboard.Layer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layers[mode]
}

// --- mock presenter ---

type mockPresenter struct {
	rec *recorder

	mu      sync.Mutex
	summary domain.Summary
	chart   []domain.CategoryCount
	ranking []domain.RankedRoad
	errs    []error
	notices []string
}

func (m *mockPresenter) ShowSummary(s domain.Summary) {
	m.mu.Lock()
	m.summary = s
	m.mu.Unlock()
	m.rec.add("summary")
}

func (m *mockPresenter) ShowChart(counts []domain.CategoryCount) {
	m.mu.Lock()
	m.chart = counts
	m.mu.Unlock()
	m.rec.add("chart")
}

func (m *mockPresenter) ShowRanking(roads []domain.RankedRoad) {
	m.mu.Lock()
	m.ranking = roads
	m.mu.Unlock()
	m.rec.add("ranking")
}

func (m *mockPresenter) ShowLegend(_ []domain.LegendEntry) {
	m.rec.add("legend")
}

func (m *mockPresenter) ShowError(err error) {
	m.mu.Lock()
	m.errs = append(m.errs, err)
	m.mu.Unlock()
	m.rec.add("error")
}

func (m *mockPresenter) ShowNotice(msg string) {
	m.mu.Lock()
	m.notices = append(m.notices, msg)
	m.mu.Unlock()
}

// --- stub loader ---

type stubLoader struct {
	snaps []*domain.Snapshot
	errs  []error
	calls int
}

func (s *stubLoader) Load(_ context.Context) (*domain.Snapshot, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.snaps) {
		return s.snaps[i], nil
	}
	return nil, fmt.Errorf("unexpected load #%d", i+1)
}

// --- randomness ---

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type seqRand struct {
	mu   sync.Mutex
	next float64
}

// Float64 returns 0.0, 0.1, 0.2, ... wrapping below 1.
func (s *seqRand) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.next
	s.next += 0.1
	if s.next >= 1 {
		s.next = 0
	}
	return v
}

// --- fixtures ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func useFakeClock(t *testing.T) *clockwork.FakeClock {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fc)
	t.Cleanup(func() { domain.SetClock(nil) })
	return fc
}

func testSnapshot() *domain.Snapshot {
	rank1, rank2 := 1, 2
	return &domain.Snapshot{
		Defects: []domain.DefectRecord{
			{Geo: &domain.Geo{Lat: 42.874, Lon: 74.569}, Category: domain.Pothole, Severity: 8.4, Confidence: 0.91, Street: "Chui Avenue"},
			{Geo: &domain.Geo{Lat: 42.851, Lon: 74.601}, Category: domain.TransverseCrack, Severity: 4.2, Confidence: 0.77, Street: "Manas Avenue"},
			{Geo: &domain.Geo{Lat: 42.860, Lon: 74.590}, Category: domain.Pothole, Severity: 7.0, Confidence: 0.66, Street: "Ibraimova"},
			{Category: domain.AlligatorCrack, Severity: 9.1, Street: "Unknown"},
		},
		Roads: []domain.RoadSummary{
			{Rank: &rank1, Street: "Chui Avenue", DefectCount: 12, AvgSeverity: 7.9, PriorityScore: 9.1},
			{Rank: &rank2, Street: "Manas Avenue", DefectCount: 7, AvgSeverity: 6.2, PriorityScore: 6.5},
		},
		Stats: domain.AggregateStats{TotalDefects: 138, CriticalDefects: 20, TotalRepairCost: 4500000},
		Heat:  []domain.HeatPoint{{42.874, 74.569, 0.84}, {42.851, 74.601, 0.42}},
	}
}

func newTestView(surface dashboard.MapSurface, rng domain.Rand, metrics *observability.Metrics) *dashboard.View {
	return dashboard.NewView(surface, rng, testPulseInterval, discardLogger(), metrics)
}
