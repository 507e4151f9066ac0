package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/road-defect-dashboard/internal/domain"
	"github.com/couchcryptid/road-defect-dashboard/internal/observability"
)

// Mode is the active map overlay.
type Mode string

const (
	ModeMarkers  Mode = "markers"
	ModeHeatmap  Mode = "heatmap"
	ModeCritical Mode = "critical"
)

// Modes lists every overlay in display order.
var Modes = []Mode{ModeMarkers, ModeHeatmap, ModeCritical}

// Tiles is the active base tile style.
type Tiles string

const (
	TilesStreets   Tiles = "streets"
	TilesSatellite Tiles = "satellite"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// ParseTiles validates a tile style name.
func ParseTiles(s string) (Tiles, error) {
	switch Tiles(s) {
	case TilesStreets, TilesSatellite:
		return Tiles(s), nil
	default:
		return "", fmt.Errorf("unknown tile style %q", s)
	}
}

// Layer is one overlay as handed to the map surface. Marker layers carry
// Markers, the heat layer carries Heat.
type Layer struct {
	Mode    Mode
	Markers []domain.Marker
	Heat    []domain.HeatPoint
}

// MapSurface is the map widget the view controller drives.
type MapSurface interface {
	SetBaseTiles(t Tiles) error
	AddLayer(layer Layer) error
	RemoveLayer(mode Mode) error
	// Pulse advances the decorative animation of an attached layer.
	Pulse(mode Mode, phase int)
}

// View is the display-mode state machine. Exactly one mode and one tile
// style are active at any time. Safe for concurrent use.
type View struct {
	surface  MapSurface
	rng      domain.Rand
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	mode     Mode
	tiles    Tiles
	snap     *domain.Snapshot
	attached map[Mode]bool
	pulse    *pulseTask
}

// NewView creates a controller in the initial markers + streets state.
// Nothing is drawn until Render.
func NewView(surface MapSurface, rng domain.Rand, pulseInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *View {
	return &View{
		surface:  surface,
		rng:      rng,
		interval: pulseInterval,
		logger:   logger,
		metrics:  metrics,
		mode:     ModeMarkers,
		tiles:    TilesStreets,
		attached: make(map[Mode]bool),
	}
}

// Mode returns the active overlay.
func (v *View) Mode() Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// Tiles returns the active base tile style.
func (v *View) Tiles() Tiles {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tiles
}

// Render draws snap in the current mode, replacing whatever was attached.
func (v *View) Render(snap *domain.Snapshot) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	first := v.snap == nil
	v.snap = snap
	if first {
		if err := v.surface.SetBaseTiles(v.tiles); err != nil {
			return fmt.Errorf("set base tiles: %w", err)
		}
	}
	return v.activate(v.mode)
}

// SetMode detaches the other overlays and attaches m. The critical layer is
// recomputed on every activation.
func (v *View) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.mode = m
	v.metrics.ViewModeSwitches.WithLabelValues(string(m)).Inc()
	v.logger.Info("view mode changed", "mode", m)
	if v.snap == nil {
		return nil
	}
	return v.activate(m)
}

// SetTiles switches the base tile style.
func (v *View) SetTiles(t Tiles) error {
	if _, err := ParseTiles(string(t)); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.tiles = t
	v.logger.Info("base tiles changed", "tiles", t)
	if v.snap == nil {
		return nil
	}
	if err := v.surface.SetBaseTiles(t); err != nil {
		return fmt.Errorf("set base tiles: %w", err)
	}
	return nil
}

// Close stops the pulse task if one is running.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopPulse()
}

// activate must be called with v.mu held.
func (v *View) activate(m Mode) error {
	for _, other := range Modes {
		if err := v.detach(other); err != nil {
			return err
		}
	}

	layer := v.buildLayer(m)
	if err := v.surface.AddLayer(layer); err != nil {
		return fmt.Errorf("attach %s layer: %w", m, err)
	}
	v.attached[m] = true

	if m == ModeCritical {
		v.startPulse()
	}
	return nil
}

func (v *View) detach(m Mode) error {
	if !v.attached[m] {
		return nil
	}
	if m == ModeCritical {
		v.stopPulse()
	}
	if err := v.surface.RemoveLayer(m); err != nil {
		return fmt.Errorf("detach %s layer: %w", m, err)
	}
	delete(v.attached, m)
	return nil
}

func (v *View) buildLayer(m Mode) Layer {
	switch m {
	case ModeHeatmap:
		return Layer{Mode: m, Heat: v.snap.Heat}
	case ModeCritical:
		return Layer{Mode: m, Markers: domain.BuildMarkers(domain.CriticalSubset(v.snap.Defects), v.rng)}
	default:
		return Layer{Mode: ModeMarkers, Markers: domain.BuildMarkers(v.snap.Defects, v.rng)}
	}
}

// pulseTask drives the critical layer animation until cancelled.
type pulseTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (v *View) startPulse() {
	v.stopPulse()

	ctx, cancel := context.WithCancel(context.Background())
	task := &pulseTask{cancel: cancel, done: make(chan struct{})}
	ticker := domain.Clock().NewTicker(v.interval)

	go func() {
		defer close(task.done)
		defer ticker.Stop()
		phase := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				phase++
				v.surface.Pulse(ModeCritical, phase)
			}
		}
	}()

	v.pulse = task
	v.metrics.PulseTasksActive.Set(1)
	v.logger.Debug("pulse started", "interval", v.interval)
}

func (v *View) stopPulse() {
	if v.pulse == nil {
		return
	}
	v.pulse.cancel()
	<-v.pulse.done
	v.pulse = nil
	v.metrics.PulseTasksActive.Set(0)
	v.logger.Debug("pulse stopped")
}
