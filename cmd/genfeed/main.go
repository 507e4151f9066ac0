// Command genfeed reads a defects.csv export and regenerates the JSON feed
// files the dashboard loads. It uses the dashboard's own domain package so the
// fixtures match what the loader parses.
//
// Usage:
//
//	go run ./cmd/genfeed \
//	  -csv data/feed/defects.csv \
//	  -out data/feed \
//	  -geocode
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/couchcryptid/road-defect-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/road-defect-dashboard/internal/config"
	"github.com/couchcryptid/road-defect-dashboard/internal/domain"
	"github.com/couchcryptid/road-defect-dashboard/internal/observability"
	"github.com/golang/geo/s2"
	"github.com/joho/godotenv"
)

const worstRoadsLimit = 10

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "path to defects.csv")
	outDir := flag.String("out", "", "output directory for the feed JSON files")
	geocode := flag.Bool("geocode", false, "fill missing street/district names via Mapbox (needs MAPBOX_TOKEN)")
	seed := flag.Uint64("seed", 0, "seed for the repair cost overhead (0 = random)")
	flag.Parse()

	if *csvPath == "" || *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -out")
	}

	records, err := readDefects(*csvPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *csvPath, err)
	}
	log.Printf("defects: %d records", len(records))

	records = dropInvalidCoordinates(records)

	if *geocode {
		records, err = fillAddresses(records)
		if err != nil {
			return err
		}
	}

	s := *seed
	if s == 0 {
		s = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(s, s)) //nolint:gosec // fixture data

	outputs := []struct {
		file string
		v    any
	}{
		{"stats.json", map[string]any{"total_stats": domain.ComputeStats(records, rng)}},
		{"worst_roads.json", map[string]any{"worst_roads": domain.SummarizeRoads(records, worstRoadsLimit)}},
		{"heatmap.json", map[string]any{"heatmap_data": domain.HeatFromDefects(records)}},
		{"districts.json", map[string]any{"districts": domain.SummarizeDistricts(records)}},
	}
	for _, o := range outputs {
		path := filepath.Join(*outDir, o.file)
		if err := writeJSON(path, o.v); err != nil {
			return fmt.Errorf("writing %s: %w", o.file, err)
		}
		log.Printf("wrote %s", path)
	}

	printStats(records)
	return nil
}

func readDefects(path string) ([]domain.DefectRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	table, err := domain.ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return domain.ParseDefects(table), nil
}

// dropInvalidCoordinates clears coordinates that are finite but off the globe,
// so the record is kept for totals and excluded from spatial outputs.
func dropInvalidCoordinates(records []domain.DefectRecord) []domain.DefectRecord {
	for i := range records {
		g := records[i].Geo
		if g == nil {
			continue
		}
		if !s2.LatLngFromDegrees(g.Lat, g.Lon).IsValid() {
			log.Printf("row %d: coordinates %g,%g out of range, treating as unmappable", i+1, g.Lat, g.Lon)
			records[i].Geo = nil
		}
	}
	return records
}

func fillAddresses(records []domain.DefectRecord) ([]domain.DefectRecord, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.MapboxEnabled {
		return nil, fmt.Errorf("-geocode needs MAPBOX_TOKEN (and MAPBOX_ENABLED not false)")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()
	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
	geocoder := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)

	ctx := context.Background()
	for i := range records {
		records[i] = domain.FillAddress(ctx, records[i], geocoder, logger)
	}
	log.Printf("geocoded %d records", len(records))
	return records, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(records []domain.DefectRecord) {
	w := os.Stdout
	bands := map[domain.SeverityBand]int{}
	unmappable := 0
	for i := range records {
		bands[domain.BandOf(records[i].Severity)]++
		if !records[i].Mappable() {
			unmappable++
		}
	}

	fmt.Fprintln(w, "\n=== Feed stats ===")
	fmt.Fprintf(w, "Total: %d (unmappable: %d)\n", len(records), unmappable)
	fmt.Fprintf(w, "By severity band: low=%d, medium=%d, high=%d\n",
		bands[domain.SeverityLow], bands[domain.SeverityMedium], bands[domain.SeverityHigh])
	for _, c := range domain.CountByCategory(records) {
		fmt.Fprintf(w, "  %-20s %d\n", c.Label, c.Count)
	}
}
