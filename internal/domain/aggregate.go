package domain

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Feed generation constants, matching the offline pipeline's output.
const (
	costPerSeverityPoint = 5000
	costOverheadMin      = 2000
	costOverheadMax      = 8000
)

// SeverityBand is the coarse severity category of a defect.
type SeverityBand string

const (
	SeverityLow    SeverityBand = "low"
	SeverityMedium SeverityBand = "medium"
	SeverityHigh   SeverityBand = "high"
)

// DistrictSummary aggregates the defects of one district.
type DistrictSummary struct {
	District    string  `json:"district"`
	DefectCount int     `json:"defect_count"`
	AvgSeverity float64 `json:"avg_severity"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// BandOf categorizes a severity: below 4 low, below 7 medium, otherwise high.
func BandOf(severity float64) SeverityBand {
	switch {
	case severity < 4:
		return SeverityLow
	case severity < CriticalSeverity:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// ComputeStats builds the aggregate counters for stats.json. The repair cost
// is severity*5000 plus a random overhead in [2000, 8000] per defect.
func ComputeStats(records []DefectRecord, rng Rand) AggregateStats {
	stats := AggregateStats{TotalDefects: len(records)}
	total := decimal.Zero
	for i := range records {
		sev := records[i].Severity
		if IsCritical(sev) {
			stats.CriticalDefects++
		}
		overhead := costOverheadMin + math.Floor(rng.Float64()*(costOverheadMax-costOverheadMin+1))
		total = total.Add(decimal.NewFromFloat(sev).Mul(decimal.NewFromInt(costPerSeverityPoint))).
			Add(decimal.NewFromFloat(overhead))
	}
	stats.TotalRepairCost = total.IntPart()
	return stats
}

// PriorityScore is the offline pipeline's street priority:
// min(10, avgSeverity*0.6 + (count/5)*0.4).
func PriorityScore(avgSeverity float64, count int) float64 {
	return math.Min(10, avgSeverity*0.6+(float64(count)/5)*0.4)
}

type group struct {
	street, district string
	count            int
	sevSum           float64
	latSum, lonSum   float64
	mapped           int
}

func (g *group) add(rec *DefectRecord) {
	g.count++
	g.sevSum += rec.Severity
	if rec.Geo != nil {
		g.latSum += rec.Geo.Lat
		g.lonSum += rec.Geo.Lon
		g.mapped++
	}
}

func (g *group) centroid() *Geo {
	if g.mapped == 0 {
		return nil
	}
	return &Geo{
		Lat: roundTo(g.latSum/float64(g.mapped), 6),
		Lon: roundTo(g.lonSum/float64(g.mapped), 6),
	}
}

// SummarizeRoads groups records by street and district, scores each group,
// sorts by priority (highest first, ties keep first appearance) and ranks the
// first limit entries.
func SummarizeRoads(records []DefectRecord, limit int) []RoadSummary {
	type key struct{ street, district string }
	index := make(map[key]int)
	var groups []*group
	for i := range records {
		k := key{records[i].Street, records[i].District}
		j, ok := index[k]
		if !ok {
			j = len(groups)
			index[k] = j
			groups = append(groups, &group{street: k.street, district: k.district})
		}
		groups[j].add(&records[i])
	}

	roads := make([]RoadSummary, 0, len(groups))
	for _, g := range groups {
		avg := g.sevSum / float64(g.count)
		roads = append(roads, RoadSummary{
			Street:        g.street,
			District:      g.district,
			DefectCount:   g.count,
			AvgSeverity:   roundTo(avg, 1),
			PriorityScore: roundTo(PriorityScore(avg, g.count), 1),
			Geo:           g.centroid(),
		})
	}

	sort.SliceStable(roads, func(i, j int) bool {
		return roads[i].PriorityScore > roads[j].PriorityScore
	})
	if limit >= 0 && len(roads) > limit {
		roads = roads[:limit]
	}
	for i := range roads {
		rank := i + 1
		roads[i].Rank = &rank
	}
	return roads
}

// SummarizeDistricts groups records by district in first-appearance order.
func SummarizeDistricts(records []DefectRecord) []DistrictSummary {
	index := make(map[string]int)
	var groups []*group
	for i := range records {
		d := records[i].District
		j, ok := index[d]
		if !ok {
			j = len(groups)
			index[d] = j
			groups = append(groups, &group{district: d})
		}
		groups[j].add(&records[i])
	}

	out := make([]DistrictSummary, 0, len(groups))
	for _, g := range groups {
		ds := DistrictSummary{
			District:    g.district,
			DefectCount: g.count,
			AvgSeverity: roundTo(g.sevSum/float64(g.count), 1),
		}
		if c := g.centroid(); c != nil {
			ds.Lat, ds.Lon = c.Lat, c.Lon
		}
		out = append(out, ds)
	}
	return out
}

// HeatFromDefects weights every mappable record by min(1, severity/10).
func HeatFromDefects(records []DefectRecord) []HeatPoint {
	out := make([]HeatPoint, 0, len(records))
	for i := range records {
		if g := records[i].Geo; g != nil {
			out = append(out, HeatPoint{g.Lat, g.Lon, math.Min(1, records[i].Severity/10)})
		}
	}
	return out
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
