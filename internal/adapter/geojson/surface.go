package geojson

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/road-defect-dashboard/internal/dashboard"
	geojson "github.com/paulmach/go.geojson"
)

// Surface is a dashboard.MapSurface that mirrors the attached layers into a
// GeoJSON FeatureCollection file. The file is rewritten after every change.
type Surface struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	tiles  dashboard.Tiles
	layers map[dashboard.Mode]dashboard.Layer
	phase  int
}

// NewSurface creates a surface writing to path.
func NewSurface(path string, logger *slog.Logger) *Surface {
	return &Surface{
		path:   path,
		logger: logger,
		layers: make(map[dashboard.Mode]dashboard.Layer),
	}
}

// SetBaseTiles records the tile style as the "tiles" member of the document.
func (s *Surface) SetBaseTiles(t dashboard.Tiles) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles = t
	return s.write()
}

// AddLayer attaches a layer, replacing any layer of the same mode.
func (s *Surface) AddLayer(layer dashboard.Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[layer.Mode] = layer
	return s.write()
}

// RemoveLayer detaches a layer. Removing an absent layer is a no-op.
func (s *Surface) RemoveLayer(mode dashboard.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.layers[mode]; !ok {
		return nil
	}
	delete(s.layers, mode)
	return s.write()
}

// Pulse records the animation phase. The file is not rewritten.
func (s *Surface) Pulse(mode dashboard.Mode, phase int) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
	s.logger.Debug("pulse", "layer", mode, "phase", phase)
}

// Phase returns the last pulse phase seen.
func (s *Surface) Phase() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Collection builds the FeatureCollection of the attached layers.
func (s *Surface) Collection() *geojson.FeatureCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection()
}

func (s *Surface) collection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, mode := range dashboard.Modes {
		layer, ok := s.layers[mode]
		if !ok {
			continue
		}
		for _, m := range layer.Markers {
			f := geojson.NewPointFeature([]float64{m.Geo.Lon, m.Geo.Lat})
			f.SetProperty("layer", string(mode))
			f.SetProperty("category", string(m.Category))
			f.SetProperty("color", m.Color)
			f.SetProperty("radius", m.Radius)
			f.SetProperty("critical", m.Critical)
			f.SetProperty("title", m.Popup.Title)
			f.SetProperty("severity", m.Popup.Severity)
			f.SetProperty("confidence", m.Popup.Confidence)
			f.SetProperty("street", m.Popup.Street)
			f.SetProperty("district", m.Popup.District)
			f.SetProperty("estimated_cost", m.Popup.EstimatedCost)
			if m.Popup.ImagePath != "" {
				f.SetProperty("image_path", m.Popup.ImagePath)
			}
			fc.AddFeature(f)
		}
		for _, p := range layer.Heat {
			f := geojson.NewPointFeature([]float64{p.Lon(), p.Lat()})
			f.SetProperty("layer", string(mode))
			f.SetProperty("intensity", p.Intensity())
			fc.AddFeature(f)
		}
	}
	return fc
}

// write must be called with s.mu held.
func (s *Surface) write() error {
	fc := s.collection()
	raw, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshal feature collection: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("marshal feature collection: %w", err)
	}
	tiles, err := json.Marshal(string(s.tiles))
	if err != nil {
		return fmt.Errorf("marshal tiles: %w", err)
	}
	doc["tiles"] = tiles

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal map document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".map-*.geojson")
	if err != nil {
		return fmt.Errorf("create temp map file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write map file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close map file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace map file: %w", err)
	}

	s.logger.Debug("map written", "path", s.path, "features", len(fc.Features))
	return nil
}
