package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// CriticalSeverity is the inclusive severity threshold for critical defects.
	CriticalSeverity = 7.0

	// TopRoadsLimit is the number of worst-roads entries shown in the ranking.
	TopRoadsLimit = 10

	baseMarkerRadius  = 6.0
	extraMarkerRadius = 4.0

	costPerSeverity = 3500.0
	costJitter      = 10000.0

	fallbackColor = "#6B7280"
)

// categoryColors is the fill color table. Order is the legend order.
var categoryColors = []struct {
	category DefectCategory
	color    string
}{
	{Pothole, "#EF4444"},
	{LongitudinalCrack, "#F59E0B"},
	{TransverseCrack, "#3B82F6"},
	{AlligatorCrack, "#8B5CF6"},
	{OtherDamage, "#EC4899"},
}

// Rand is the randomness the placeholder cost estimate draws from.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// PriorityClass is the visual severity class of a ranked road.
type PriorityClass string

const (
	PriorityCritical PriorityClass = "critical"
	PriorityHigh     PriorityClass = "high"
	PriorityMedium   PriorityClass = "medium"
)

// Popup is the detail card shown for one marker.
type Popup struct {
	Title         string `json:"title"`
	Severity      string `json:"severity"`
	Confidence    string `json:"confidence"`
	Street        string `json:"street"`
	District      string `json:"district"`
	ImagePath     string `json:"image_path,omitempty"`
	EstimatedCost string `json:"estimated_cost"`
}

// Marker is the rendering attributes of one mappable defect.
type Marker struct {
	Geo      Geo            `json:"geo"`
	Category DefectCategory `json:"category"`
	Radius   float64        `json:"radius"`
	Color    string         `json:"color"`
	Critical bool           `json:"critical"`
	Popup    Popup          `json:"popup"`
}

// CategoryCount is one bar of the category chart.
type CategoryCount struct {
	Category DefectCategory
	Label    string
	Color    string
	Count    int
}

// RankedRoad is one line of the worst-roads ranking.
type RankedRoad struct {
	Rank  int
	Road  RoadSummary
	Class PriorityClass
}

// LegendEntry is one line of the map legend.
type LegendEntry struct {
	Category DefectCategory
	Label    string
	Color    string
}

// Summary holds the display strings of the summary panel.
type Summary struct {
	TotalDefects    string
	CriticalDefects string
	Quality         string
	RepairCost      string
}

// CategoryColor returns the fill color for c, gray for unrecognized categories.
func CategoryColor(c DefectCategory) string {
	for _, cc := range categoryColors {
		if cc.category == c {
			return cc.color
		}
	}
	return fallbackColor
}

// CategoryLabel turns a category identifier into a display label,
// e.g. "alligator_crack" -> "Alligator Crack".
func CategoryLabel(c DefectCategory) string {
	words := strings.Fields(strings.ReplaceAll(string(c), "_", " "))
	if len(words) == 0 {
		return "Unknown"
	}
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// MarkerRadius grows linearly from 6 at severity 0 to 10 at severity 10.
// Severity is not clamped.
func MarkerRadius(severity float64) float64 {
	return baseMarkerRadius + extraMarkerRadius*severity/10
}

// EstimateRepairCost is a display-only placeholder: severity*3500 plus a random
// amount in [0, 10000). It is recomputed on every render and never stored.
func EstimateRepairCost(severity float64, rng Rand) int64 {
	return int64(math.Floor(severity*costPerSeverity + rng.Float64()*costJitter))
}

// IsCritical reports whether a severity meets the critical threshold.
func IsCritical(severity float64) bool {
	return severity >= CriticalSeverity
}

// CriticalSubset returns the records with critical severity, in input order.
func CriticalSubset(records []DefectRecord) []DefectRecord {
	var out []DefectRecord
	for i := range records {
		if IsCritical(records[i].Severity) {
			out = append(out, records[i])
		}
	}
	return out
}

// CountByCategory counts records per category in first-appearance order.
// Categories with no records are not reported.
func CountByCategory(records []DefectRecord) []CategoryCount {
	index := make(map[DefectCategory]int)
	var out []CategoryCount
	for i := range records {
		c := records[i].Category
		if j, ok := index[c]; ok {
			out[j].Count++
			continue
		}
		index[c] = len(out)
		out = append(out, CategoryCount{
			Category: c,
			Label:    CategoryLabel(c),
			Color:    CategoryColor(c),
			Count:    1,
		})
	}
	return out
}

// TopRoads takes the first n roads in the given order. The list is ranked
// upstream and is not re-sorted here.
func TopRoads(roads []RoadSummary, n int) []RankedRoad {
	n = max(0, min(n, len(roads)))
	out := make([]RankedRoad, 0, n)
	for i := 0; i < n; i++ {
		rank := i + 1
		if roads[i].Rank != nil {
			rank = *roads[i].Rank
		}
		out = append(out, RankedRoad{
			Rank:  rank,
			Road:  roads[i],
			Class: ClassifyPriority(roads[i].PriorityScore),
		})
	}
	return out
}

// ClassifyPriority buckets a priority score: >=8 critical, >=6 high, else medium.
func ClassifyPriority(score float64) PriorityClass {
	switch {
	case score >= 8:
		return PriorityCritical
	case score >= 6:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// QualityIndex is the dashboard-level road quality approximation:
// max(0, 100 - totalDefects/2), rounded half up.
func QualityIndex(totalDefects int) int {
	q := 100 - float64(totalDefects)/2
	if q < 0 {
		q = 0
	}
	return int(math.Floor(q + 0.5))
}

// FormatKGS renders a repair cost in millions of som with one decimal,
// e.g. 4500000 -> "4.5M KGS".
func FormatKGS(cost int64) string {
	return decimal.NewFromInt(cost).Shift(-6).StringFixed(1) + "M KGS"
}

// Summarize builds the summary panel strings from the aggregate counters.
func Summarize(stats AggregateStats) Summary {
	return Summary{
		TotalDefects:    strconv.Itoa(stats.TotalDefects),
		CriticalDefects: strconv.Itoa(stats.CriticalDefects),
		Quality:         strconv.Itoa(QualityIndex(stats.TotalDefects)),
		RepairCost:      FormatKGS(stats.TotalRepairCost),
	}
}

// BuildMarkers derives a marker for every mappable record. Records without
// coordinates are skipped. The popup cost estimate draws from rng, so two
// calls produce different estimates.
func BuildMarkers(records []DefectRecord, rng Rand) []Marker {
	out := make([]Marker, 0, len(records))
	for i := range records {
		rec := &records[i]
		if !rec.Mappable() {
			continue
		}
		out = append(out, Marker{
			Geo:      *rec.Geo,
			Category: rec.Category,
			Radius:   MarkerRadius(rec.Severity),
			Color:    CategoryColor(rec.Category),
			Critical: IsCritical(rec.Severity),
			Popup: Popup{
				Title:         CategoryLabel(rec.Category),
				Severity:      fmt.Sprintf("%.1f/10", rec.Severity),
				Confidence:    fmt.Sprintf("%.0f%%", rec.Confidence*100),
				Street:        rec.Street,
				District:      rec.District,
				ImagePath:     rec.ImagePath,
				EstimatedCost: groupThousands(EstimateRepairCost(rec.Severity, rng)) + " KGS",
			},
		})
	}
	return out
}

// Legend lists every known category with its color, in table order.
func Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(categoryColors))
	for _, cc := range categoryColors {
		out = append(out, LegendEntry{
			Category: cc.category,
			Label:    CategoryLabel(cc.category),
			Color:    cc.color,
		})
	}
	return out
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
