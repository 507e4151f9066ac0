package domain

import "time"

// DefectCategory is the detector class of a defect.
type DefectCategory string

const (
	Pothole           DefectCategory = "pothole"
	LongitudinalCrack DefectCategory = "longitudinal_crack"
	TransverseCrack   DefectCategory = "transverse_crack"
	AlligatorCrack    DefectCategory = "alligator_crack"
	OtherDamage       DefectCategory = "other_damage"
)

// Known reports whether c is one of the detector classes.
func (c DefectCategory) Known() bool {
	switch c {
	case Pothole, LongitudinalCrack, TransverseCrack, AlligatorCrack, OtherDamage:
		return true
	default:
		return false
	}
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DefectRecord is one detected defect, parsed from a defects.csv row.
type DefectRecord struct {
	ID         string         `json:"id,omitempty"`
	Geo        *Geo           `json:"geo,omitempty"` // nil when the row has no usable coordinates
	Category   DefectCategory `json:"defect_type"`
	Severity   float64        `json:"severity"`
	Confidence float64        `json:"confidence"`
	Street     string         `json:"street_name"`
	District   string         `json:"district"`
	ImagePath  string         `json:"image_path"`
	Uploaded   bool           `json:"uploaded,omitempty"`
}

// Mappable reports whether the record can be placed on the map.
func (d DefectRecord) Mappable() bool {
	return d.Geo != nil
}

// RoadSummary is one entry of the externally ranked worst-roads list.
type RoadSummary struct {
	Rank          *int    `json:"rank,omitempty"`
	Street        string  `json:"street_name"`
	District      string  `json:"district,omitempty"`
	DefectCount   int     `json:"defect_count"`
	AvgSeverity   float64 `json:"avg_severity"`
	PriorityScore float64 `json:"priority_score"`
	Geo           *Geo    `json:"-"`
}

// AggregateStats holds the scalar counters shown in the summary panel.
type AggregateStats struct {
	TotalDefects    int   `json:"total_defects"`
	CriticalDefects int   `json:"critical_defects"`
	TotalRepairCost int64 `json:"total_repair_cost"`
}

// HeatPoint is a weighted heat layer point: lat, lon, intensity.
type HeatPoint [3]float64

// Lat returns the latitude component.
func (p HeatPoint) Lat() float64 { return p[0] }

// Lon returns the longitude component.
func (p HeatPoint) Lon() float64 { return p[1] }

// Intensity returns the weight component.
func (p HeatPoint) Intensity() float64 { return p[2] }

// Snapshot is the complete in-memory state built by one successful feed load.
// A reload replaces the whole snapshot; only the upload simulation appends to
// Defects in place.
type Snapshot struct {
	Defects  []DefectRecord
	Roads    []RoadSummary
	Stats    AggregateStats
	Heat     []HeatPoint
	LoadedAt time.Time
}

// WithDefect returns a copy of the snapshot with rec appended to Defects.
// The receiver and its backing arrays are not modified.
func (s *Snapshot) WithDefect(rec DefectRecord) *Snapshot {
	next := *s
	next.Defects = make([]DefectRecord, len(s.Defects), len(s.Defects)+1)
	copy(next.Defects, s.Defects)
	next.Defects = append(next.Defects, rec)
	return &next
}

// Unmappable counts the records that are excluded from spatial views.
func (s *Snapshot) Unmappable() int {
	n := 0
	for i := range s.Defects {
		if !s.Defects[i].Mappable() {
			n++
		}
	}
	return n
}
