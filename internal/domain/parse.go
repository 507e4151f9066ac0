package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Envelope keys used by the wrapped feed shapes.
const (
	roadsEnvelope = "worst_roads"
	statsEnvelope = "total_stats"
	heatEnvelope  = "heatmap_data"
)

// ParseDefectRecord converts one defects.csv row into a typed record. It never
// fails: missing or malformed numbers fall back to zero, and a record whose
// coordinates are not both finite numbers gets a nil Geo.
func ParseDefectRecord(row Row) DefectRecord {
	rec := DefectRecord{
		Category:  DefectCategory(row["defect_type"]),
		Street:    row["street_name"],
		District:  row["district"],
		ImagePath: row["image_path"],
	}

	lat, latOK := parseFinite(row["lat"])
	lon, lonOK := parseFinite(row["lon"])
	if latOK && lonOK {
		rec.Geo = &Geo{Lat: lat, Lon: lon}
	}

	rec.Severity, _ = parseFinite(row["severity"])
	rec.Confidence, _ = parseFinite(row["confidence"])
	return rec
}

// ParseDefects converts every row of a defects table.
func ParseDefects(table Table) []DefectRecord {
	out := make([]DefectRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		out = append(out, ParseDefectRecord(row))
	}
	return out
}

// parseFinite parses s as a float64, rejecting empty input, NaN and infinities.
// The zero value is returned alongside false.
func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// unwrapEnvelope returns the value under key when data is an object holding
// that key, and data itself otherwise.
func unwrapEnvelope(data []byte, key string) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if trimmed[0] != '{' {
		return trimmed, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	if inner, ok := obj[key]; ok {
		return inner, nil
	}
	return trimmed, nil
}

// DecodeRoads decodes worst_roads.json, with or without its envelope.
func DecodeRoads(data []byte) ([]RoadSummary, error) {
	body, err := unwrapEnvelope(data, roadsEnvelope)
	if err != nil {
		return nil, fmt.Errorf("decode worst roads: %w", err)
	}
	var roads []RoadSummary
	if err := json.Unmarshal(body, &roads); err != nil {
		return nil, fmt.Errorf("decode worst roads: %w", err)
	}
	return roads, nil
}

// DecodeStats decodes stats.json, with or without its envelope. Missing
// counters read as zero.
func DecodeStats(data []byte) (AggregateStats, error) {
	body, err := unwrapEnvelope(data, statsEnvelope)
	if err != nil {
		return AggregateStats{}, fmt.Errorf("decode stats: %w", err)
	}

	var raw struct {
		TotalDefects    float64 `json:"total_defects"`
		CriticalDefects float64 `json:"critical_defects"`
		TotalRepairCost float64 `json:"total_repair_cost"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return AggregateStats{}, fmt.Errorf("decode stats: %w", err)
	}

	return AggregateStats{
		TotalDefects:    int(math.Round(raw.TotalDefects)),
		CriticalDefects: int(math.Round(raw.CriticalDefects)),
		TotalRepairCost: int64(math.Round(raw.TotalRepairCost)),
	}, nil
}

// DecodeHeatmap decodes heatmap.json, with or without its envelope, and
// normalizes tuple and object elements to HeatPoint tuples. Elements that are
// incomplete or not numeric are skipped.
func DecodeHeatmap(data []byte) ([]HeatPoint, error) {
	body, err := unwrapEnvelope(data, heatEnvelope)
	if err != nil {
		return nil, fmt.Errorf("decode heatmap: %w", err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return nil, fmt.Errorf("decode heatmap: %w", err)
	}

	points := make([]HeatPoint, 0, len(elems))
	for _, e := range elems {
		if p, ok := decodeHeatPoint(e); ok {
			points = append(points, p)
		}
	}
	return points, nil
}

func decodeHeatPoint(e json.RawMessage) (HeatPoint, bool) {
	e = bytes.TrimSpace(e)
	if len(e) == 0 {
		return HeatPoint{}, false
	}

	var vals [3]*float64
	switch e[0] {
	case '[':
		var tuple []*float64
		if err := json.Unmarshal(e, &tuple); err != nil || len(tuple) < 3 {
			return HeatPoint{}, false
		}
		copy(vals[:], tuple[:3])
	case '{':
		var obj struct {
			Lat       *float64 `json:"lat"`
			Lon       *float64 `json:"lon"`
			Intensity *float64 `json:"intensity"`
		}
		if err := json.Unmarshal(e, &obj); err != nil {
			return HeatPoint{}, false
		}
		vals = [3]*float64{obj.Lat, obj.Lon, obj.Intensity}
	default:
		return HeatPoint{}, false
	}

	var p HeatPoint
	for i, v := range vals {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return HeatPoint{}, false
		}
		p[i] = *v
	}
	return p, true
}

// roadJSON is the wire form of a worst_roads entry. Count fields are pointers
// so that an absent key can be told apart from an explicit zero, and floats
// because some generators write integral counts as 12.0.
type roadJSON struct {
	Rank          *float64 `json:"rank,omitempty"`
	Street        string   `json:"street_name"`
	District      string   `json:"district,omitempty"`
	DefectCount   *float64 `json:"defect_count,omitempty"`
	TotalDefects  *float64 `json:"total_defects,omitempty"`
	AvgSeverity   float64  `json:"avg_severity"`
	PriorityScore float64  `json:"priority_score"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
}

// UnmarshalJSON resolves the defect count from "defect_count" first and
// "total_defects" second.
func (r *RoadSummary) UnmarshalJSON(data []byte) error {
	var raw roadJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = RoadSummary{
		Street:        raw.Street,
		District:      raw.District,
		AvgSeverity:   raw.AvgSeverity,
		PriorityScore: raw.PriorityScore,
	}
	if raw.Rank != nil {
		rank := roundCount(*raw.Rank)
		r.Rank = &rank
	}
	switch {
	case raw.DefectCount != nil:
		r.DefectCount = roundCount(*raw.DefectCount)
	case raw.TotalDefects != nil:
		r.DefectCount = roundCount(*raw.TotalDefects)
	}
	if raw.Lat != nil && raw.Lon != nil {
		r.Geo = &Geo{Lat: *raw.Lat, Lon: *raw.Lon}
	}
	return nil
}

// roundCount rounds a JSON number to the nearest integer count.
func roundCount(v float64) int {
	return int(math.Round(v))
}

// MarshalJSON writes the current field names only ("defect_count").
func (r RoadSummary) MarshalJSON() ([]byte, error) {
	count := float64(r.DefectCount)
	raw := roadJSON{
		Street:        r.Street,
		District:      r.District,
		DefectCount:   &count,
		AvgSeverity:   r.AvgSeverity,
		PriorityScore: r.PriorityScore,
	}
	if r.Rank != nil {
		rank := float64(*r.Rank)
		raw.Rank = &rank
	}
	if r.Geo != nil {
		raw.Lat = &r.Geo.Lat
		raw.Lon = &r.Geo.Lon
	}
	return json.Marshal(raw)
}
