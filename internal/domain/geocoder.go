package domain

import "context"

// GeocodingResult contains address details returned by a geocoding provider.
type GeocodingResult struct {
	Street           string
	District         string
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves coordinates to street-level address details.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
