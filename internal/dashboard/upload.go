package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/road-defect-dashboard/internal/domain"
	"github.com/google/uuid"
)

// UploadStreet is the street label of records placed by the upload simulation.
const UploadStreet = "Uploaded photo"

var (
	// ErrNotLoaded is returned when an operation needs a loaded snapshot.
	ErrNotLoaded = errors.New("dashboard data not loaded")
	// ErrNoAnalysis is returned by Place when no analysis is waiting for a location.
	ErrNoAnalysis = errors.New("no analyzed photo to place; run upload first")
)

// DemoImage is one of the pre-annotated photos the upload simulation returns.
type DemoImage struct {
	Name       string
	ImagePath  string
	Detections int
	Category   domain.DefectCategory
	Severity   float64
	Confidence float64
}

// demoImages are the two canned analysis results.
var demoImages = []DemoImage{
	{
		Name:       "demo_diverse_defects.jpg",
		ImagePath:  "ml/data/demo_annotated/demo_diverse_defects.jpg",
		Detections: 5,
		Category:   domain.AlligatorCrack,
		Severity:   6.8,
		Confidence: 0.87,
	},
	{
		Name:       "demo_many_potholes.jpg",
		ImagePath:  "ml/data/demo_annotated/demo_many_potholes.jpg",
		Detections: 17,
		Category:   domain.Pothole,
		Severity:   8.9,
		Confidence: 0.92,
	},
}

// DemoImages returns the canned analysis results.
func DemoImages() []DemoImage {
	out := make([]DemoImage, len(demoImages))
	copy(out, demoImages)
	return out
}

// Analysis is a completed simulated photo analysis awaiting a map location.
type Analysis struct {
	Image DemoImage
}

// Analyze simulates a photo analysis: it waits the configured delay on the
// package clock and picks one of the demo images at random. Nothing is
// uploaded. The result is held until Place.
func (a *App) Analyze(ctx context.Context) (Analysis, error) {
	if a.Snapshot() == nil {
		return Analysis{}, ErrNotLoaded
	}

	a.presenter.ShowNotice("analyzing photo...")
	if a.uploadDelay > 0 {
		select {
		case <-ctx.Done():
			return Analysis{}, ctx.Err()
		case <-domain.Clock().After(a.uploadDelay):
		}
	}

	idx := int(a.rng.Float64() * float64(len(demoImages)))
	if idx >= len(demoImages) {
		idx = len(demoImages) - 1
	}
	result := Analysis{Image: demoImages[idx]}

	a.mu.Lock()
	a.pending = &result
	a.mu.Unlock()

	a.logger.Info("photo analyzed", "image", result.Image.Name, "detections", result.Image.Detections)
	a.presenter.ShowNotice(fmt.Sprintf("detected %d defects in %s; choose a map location with: place <lat> <lon>",
		result.Image.Detections, result.Image.Name))
	return result, nil
}

// Place appends the pending analysis as a synthetic record at lat, lon and
// refreshes the markers and the category chart. The record lives in memory
// only and is dropped by the next reload.
func (a *App) Place(lat, lon float64) (domain.DefectRecord, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.DefectRecord{}, fmt.Errorf("invalid location %v,%v", lat, lon)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	snap := a.snap.Load()
	if snap == nil {
		return domain.DefectRecord{}, ErrNotLoaded
	}
	if a.pending == nil {
		return domain.DefectRecord{}, ErrNoAnalysis
	}

	img := a.pending.Image
	rec := domain.DefectRecord{
		ID:         uuid.NewString(),
		Geo:        &domain.Geo{Lat: lat, Lon: lon},
		Category:   img.Category,
		Severity:   img.Severity,
		Confidence: img.Confidence,
		Street:     UploadStreet,
		ImagePath:  img.ImagePath,
		Uploaded:   true,
	}

	next := snap.WithDefect(rec)
	a.snap.Store(next)
	a.pending = nil
	a.metrics.UploadsSimulated.Inc()

	a.presenter.ShowChart(domain.CountByCategory(next.Defects))
	if err := a.view.Render(next); err != nil {
		return rec, fmt.Errorf("render map: %w", err)
	}

	a.logger.Info("uploaded defect placed", "id", rec.ID, "lat", lat, "lon", lon, "category", rec.Category)
	return rec, nil
}
