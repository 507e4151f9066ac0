package domain

import (
	"context"
	"log/slog"
)

// Placeholder names written when no street or district can be resolved.
const (
	UnknownStreet   = "Unknown Street"
	UnknownDistrict = "Unknown District"
)

// FillAddress resolves a missing street name or district through the
// geocoder. Fields already set are kept. If geocoder is nil the record is
// returned untouched; if the lookup fails or comes back empty the missing
// fields are set to the Unknown placeholders (graceful degradation).
func FillAddress(ctx context.Context, rec DefectRecord, geocoder Geocoder, logger *slog.Logger) DefectRecord {
	if geocoder == nil {
		return rec
	}
	if rec.Street != "" && rec.District != "" {
		return rec
	}
	if !rec.Mappable() {
		return withPlaceholders(rec)
	}

	result, err := geocoder.ReverseGeocode(ctx, rec.Geo.Lat, rec.Geo.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", rec.Geo.Lat,
			"lon", rec.Geo.Lon,
			"error", err,
		)
		return withPlaceholders(rec)
	}

	if rec.Street == "" {
		rec.Street = result.Street
	}
	if rec.District == "" {
		rec.District = result.District
	}
	return withPlaceholders(rec)
}

func withPlaceholders(rec DefectRecord) DefectRecord {
	if rec.Street == "" {
		rec.Street = UnknownStreet
	}
	if rec.District == "" {
		rec.District = UnknownDistrict
	}
	return rec
}
