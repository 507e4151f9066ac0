// Package domain models road-surface defect detections and the view models
// the dashboard derives from them.
//
// # Feed Files
//
// The dashboard consumes four files produced by an offline detection pipeline:
//
//	defects.csv       header row + one row per detection
//	worst_roads.json  streets ranked by repair priority (already ranked upstream)
//	stats.json        scalar counters for the summary panel
//	heatmap.json      weighted points for the heat layer
//
// The JSON files have changed shape over feed versions. Each may be a bare
// value or wrapped in an envelope key ("worst_roads", "total_stats",
// "heatmap_data"); the envelope wins when present, otherwise the root is used.
//
// # defects.csv Conventions
//
// Columns: lat, lon, defect_type, severity, confidence, image_path,
// street_name, district. Columns are matched by header name, never position,
// and a missing column reads as an empty string.
//
//	lat, lon      decimal degrees; a row whose coordinates do not both parse as
//	              finite numbers is kept but excluded from every spatial view
//	severity      0-10, not clamped; missing or non-numeric reads as 0
//	confidence    0-1; missing or non-numeric reads as 0
//	defect_type   one of the [DefectCategory] constants, unknown values pass through
//
// Field values may be double-quoted; a quoted field may contain commas and
// doubled quotes ("") for a literal quote. See [ParseCSV].
//
// # Field Name Drift
//
// worst_roads.json entries carried the defect count as "defect_count" in newer
// feeds and "total_defects" in older ones. [RoadSummary] resolves the first
// key present in that order.
//
// # Placeholder Formulas
//
// [EstimateRepairCost] and [QualityIndex] are display-only approximations. They
// are not the per-street cost and quality models of the offline pipeline and
// must not be compared with them.
package domain
