package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/road-defect-dashboard/internal/dashboard"
	"github.com/couchcryptid/road-defect-dashboard/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_InitialState(t *testing.T) {
	rec := &recorder{}
	surface := newMockSurface(rec)
	v := newTestView(surface, fixedRand(0), observability.NewMetricsForTesting())

	assert.Equal(t, dashboard.ModeMarkers, v.Mode())
	assert.Equal(t, dashboard.TilesStreets, v.Tiles())
	assert.Empty(t, rec.list(), "nothing drawn before Render")

	require.NoError(t, v.Render(testSnapshot()))

	assert.Equal(t, []string{"tiles:streets", "add:markers"}, rec.list())
	assert.Equal(t, []dashboard.Mode{dashboard.ModeMarkers}, surface.attached())
	// The defect without coordinates is not plotted.
	assert.Len(t, surface.layer(dashboard.ModeMarkers).Markers, 3)
}

func TestView_SetMode_ExactlyOneLayerAttached(t *testing.T) {
	useFakeClock(t)
	rec := &recorder{}
	surface := newMockSurface(rec)
	v := newTestView(surface, fixedRand(0), observability.NewMetricsForTesting())
	defer v.Close()
	require.NoError(t, v.Render(testSnapshot()))

	for _, mode := range []dashboard.Mode{dashboard.ModeHeatmap, dashboard.ModeCritical, dashboard.ModeMarkers, dashboard.ModeCritical, dashboard.ModeHeatmap} {
		require.NoError(t, v.SetMode(mode))
		assert.Equal(t, mode, v.Mode())
		assert.Equal(t, []dashboard.Mode{mode}, surface.attached(), "after switching to %s", mode)
	}
}

func TestView_SetMode_HeatmapCarriesHeatPoints(t *testing.T) {
	surface := newMockSurface(&recorder{})
	v := newTestView(surface, fixedRand(0), observability.NewMetricsForTesting())
	require.NoError(t, v.Render(testSnapshot()))

	require.NoError(t, v.SetMode(dashboard.ModeHeatmap))

	layer := surface.layer(dashboard.ModeHeatmap)
	assert.Len(t, layer.Heat, 2)
	assert.Empty(t, layer.Markers)
}

func TestView_SetMode_CriticalRecomputedOnEveryActivation(t *testing.T) {
	useFakeClock(t)
	surface := newMockSurface(&recorder{})
	v := newTestView(surface, &seqRand{}, observability.NewMetricsForTesting())
	defer v.Close()
	require.NoError(t, v.Render(testSnapshot()))

	require.NoError(t, v.SetMode(dashboard.ModeCritical))
	first := surface.layer(dashboard.ModeCritical)

	require.NoError(t, v.SetMode(dashboard.ModeMarkers))
	require.NoError(t, v.SetMode(dashboard.ModeCritical))
	second := surface.layer(dashboard.ModeCritical)

	// Severity 8.4 and 7.0 are mappable and critical; 4.2 is not, 9.1 has no coordinates.
	require.Len(t, first.Markers, 2)
	require.Len(t, second.Markers, 2)
	for _, m := range first.Markers {
		assert.True(t, m.Critical)
	}
	assert.NotEqual(t, first.Markers[0].Popup.EstimatedCost, second.Markers[0].Popup.EstimatedCost)
}

func TestView_SetMode_BeforeRender(t *testing.T) {
	rec := &recorder{}
	v := newTestView(newMockSurface(rec), fixedRand(0), observability.NewMetricsForTesting())

	require.NoError(t, v.SetMode(dashboard.ModeHeatmap))

	assert.Equal(t, dashboard.ModeHeatmap, v.Mode())
	assert.Empty(t, rec.list())

	require.NoError(t, v.Render(testSnapshot()))
	assert.Equal(t, []string{"tiles:streets", "add:heatmap"}, rec.list())
}

func TestView_SetMode_Unknown(t *testing.T) {
	v := newTestView(newMockSurface(&recorder{}), fixedRand(0), observability.NewMetricsForTesting())

	err := v.SetMode("satellite")
	require.Error(t, err)
	assert.Equal(t, dashboard.ModeMarkers, v.Mode())
}

func TestView_SetMode_CountsSwitches(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	v := newTestView(newMockSurface(&recorder{}), fixedRand(0), metrics)
	require.NoError(t, v.Render(testSnapshot()))

	require.NoError(t, v.SetMode(dashboard.ModeHeatmap))
	require.NoError(t, v.SetMode(dashboard.ModeHeatmap))

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ViewModeSwitches.WithLabelValues("heatmap")), 0)
}

func TestView_SetTiles(t *testing.T) {
	rec := &recorder{}
	v := newTestView(newMockSurface(rec), fixedRand(0), observability.NewMetricsForTesting())
	require.NoError(t, v.Render(testSnapshot()))
	rec.reset()

	require.NoError(t, v.SetTiles(dashboard.TilesSatellite))
	assert.Equal(t, dashboard.TilesSatellite, v.Tiles())
	assert.Equal(t, dashboard.ModeMarkers, v.Mode(), "tiles do not change the mode")
	assert.Equal(t, []string{"tiles:satellite"}, rec.list())

	require.Error(t, v.SetTiles("terrain"))
	assert.Equal(t, dashboard.TilesSatellite, v.Tiles())
}

func TestView_Pulse_RunsWhileCriticalAttached(t *testing.T) {
	fc := useFakeClock(t)
	metrics := observability.NewMetricsForTesting()
	surface := newMockSurface(&recorder{})
	v := newTestView(surface, fixedRand(0), metrics)
	defer v.Close()
	require.NoError(t, v.Render(testSnapshot()))

	require.NoError(t, v.SetMode(dashboard.ModeCritical))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PulseTasksActive), 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))

	fc.Advance(testPulseInterval)
	assert.Eventually(t, func() bool { return surface.pulseCount() >= 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, v.SetMode(dashboard.ModeMarkers))
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PulseTasksActive), 0)

	stopped := surface.pulseCount()
	fc.Advance(10 * testPulseInterval)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, surface.pulseCount(), "no pulses after the critical layer is detached")
}

func TestView_Pulse_RepeatedActivationKeepsOneTask(t *testing.T) {
	fc := useFakeClock(t)
	metrics := observability.NewMetricsForTesting()
	surface := newMockSurface(&recorder{})
	v := newTestView(surface, fixedRand(0), metrics)
	require.NoError(t, v.Render(testSnapshot()))

	for range 5 {
		require.NoError(t, v.SetMode(dashboard.ModeCritical))
		require.NoError(t, v.SetMode(dashboard.ModeHeatmap))
	}
	require.NoError(t, v.SetMode(dashboard.ModeCritical))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1), "exactly one ticker registered")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PulseTasksActive), 0)

	v.Close()
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PulseTasksActive), 0)
	require.NoError(t, fc.BlockUntilContext(ctx, 0), "ticker stopped on close")
}

func TestView_Render_ReplacesLayersOnRefresh(t *testing.T) {
	rec := &recorder{}
	surface := newMockSurface(rec)
	v := newTestView(surface, fixedRand(0), observability.NewMetricsForTesting())
	require.NoError(t, v.Render(testSnapshot()))
	rec.reset()

	snap := testSnapshot()
	snap.Defects = snap.Defects[:1]
	require.NoError(t, v.Render(snap))

	assert.Equal(t, []string{"remove:markers", "add:markers"}, rec.list())
	assert.Len(t, surface.layer(dashboard.ModeMarkers).Markers, 1)
}

func TestParseMode(t *testing.T) {
	for _, m := range dashboard.Modes {
		got, err := dashboard.ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := dashboard.ParseMode("streets")
	assert.Error(t, err)
}
