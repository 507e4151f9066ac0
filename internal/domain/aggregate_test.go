package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onStreet(street, district string, sev float64, lat, lon float64) DefectRecord {
	return DefectRecord{Geo: &Geo{Lat: lat, Lon: lon}, Category: Pothole, Severity: sev, Street: street, District: district}
}

func TestBandOf(t *testing.T) {
	assert.Equal(t, SeverityLow, BandOf(0))
	assert.Equal(t, SeverityLow, BandOf(3.99))
	assert.Equal(t, SeverityMedium, BandOf(4))
	assert.Equal(t, SeverityMedium, BandOf(6.99))
	assert.Equal(t, SeverityHigh, BandOf(7))
}

func TestComputeStats(t *testing.T) {
	records := []DefectRecord{
		mapped(Pothole, 8),
		mapped(TransverseCrack, 3),
		mapped(AlligatorCrack, 7),
	}

	stats := ComputeStats(records, fixedRand(0))

	assert.Equal(t, 3, stats.TotalDefects)
	assert.Equal(t, 2, stats.CriticalDefects)
	// (8+3+7)*5000 + 3*2000
	assert.Equal(t, int64(96000), stats.TotalRepairCost)
}

func TestComputeStats_MaxOverhead(t *testing.T) {
	stats := ComputeStats([]DefectRecord{mapped(Pothole, 1)}, fixedRand(0.99999999))
	assert.Equal(t, int64(5000+8000), stats.TotalRepairCost)
}

func TestComputeStats_Empty(t *testing.T) {
	assert.Equal(t, AggregateStats{}, ComputeStats(nil, fixedRand(0.5)))
}

func TestPriorityScore(t *testing.T) {
	assert.InDelta(t, 5.6, PriorityScore(8, 5), 1e-9)
	assert.InDelta(t, 10, PriorityScore(9.5, 100), 1e-9)
	assert.InDelta(t, 0.08, PriorityScore(0, 1), 1e-9)
}

func TestSummarizeRoads(t *testing.T) {
	records := []DefectRecord{
		onStreet("Manas Avenue", "Sverdlovsky", 3, 42.80, 74.50),
		onStreet("Chui Avenue", "Pervomaisky", 9, 42.87, 74.60),
		onStreet("Chui Avenue", "Pervomaisky", 8, 42.89, 74.62),
		onStreet("Chui Avenue", "Oktyabrsky", 9, 42.85, 74.70),
		{Category: Pothole, Severity: 1, Street: "Ibraimova", District: "Pervomaisky"},
	}

	roads := SummarizeRoads(records, 10)

	require.Len(t, roads, 4)

	// Chui/Oktyabrsky: 9*0.6 + 0.2*0.4 = 5.48
	assert.Equal(t, "Oktyabrsky", roads[0].District)
	assert.Equal(t, 5.5, roads[0].PriorityScore)
	require.NotNil(t, roads[0].Rank)
	assert.Equal(t, 1, *roads[0].Rank)

	second := roads[1]
	assert.Equal(t, "Chui Avenue", second.Street)
	assert.Equal(t, "Pervomaisky", second.District)
	assert.Equal(t, 2, second.DefectCount)
	assert.Equal(t, 8.5, second.AvgSeverity)
	assert.Equal(t, 5.3, second.PriorityScore) // 8.5*0.6 + 0.4*0.4
	assert.Equal(t, 2, *second.Rank)
	require.NotNil(t, second.Geo)
	assert.Equal(t, Geo{Lat: 42.88, Lon: 74.61}, *second.Geo)

	assert.Equal(t, "Manas Avenue", roads[2].Street)

	last := roads[3]
	assert.Equal(t, "Ibraimova", last.Street)
	assert.Nil(t, last.Geo)
	assert.Equal(t, 4, *last.Rank)
}

func TestSummarizeRoads_Limit(t *testing.T) {
	records := []DefectRecord{
		onStreet("A", "X", 9, 1, 1),
		onStreet("B", "X", 5, 1, 1),
		onStreet("C", "X", 7, 1, 1),
	}

	roads := SummarizeRoads(records, 2)

	require.Len(t, roads, 2)
	assert.Equal(t, "A", roads[0].Street)
	assert.Equal(t, "C", roads[1].Street)
}

func TestSummarizeRoads_TiesKeepFirstAppearance(t *testing.T) {
	records := []DefectRecord{
		onStreet("B", "X", 5, 1, 1),
		onStreet("A", "X", 5, 1, 1),
	}

	roads := SummarizeRoads(records, 10)

	assert.Equal(t, "B", roads[0].Street)
	assert.Equal(t, "A", roads[1].Street)
}

func TestSummarizeDistricts(t *testing.T) {
	records := []DefectRecord{
		onStreet("A", "Pervomaisky", 4, 42.0, 74.0),
		onStreet("B", "Sverdlovsky", 6, 43.0, 75.0),
		onStreet("C", "Pervomaisky", 8, 44.0, 76.0),
	}

	got := SummarizeDistricts(records)

	assert.Equal(t, []DistrictSummary{
		{District: "Pervomaisky", DefectCount: 2, AvgSeverity: 6, Lat: 43, Lon: 75},
		{District: "Sverdlovsky", DefectCount: 1, AvgSeverity: 6, Lat: 43, Lon: 75},
	}, got)
}

func TestHeatFromDefects(t *testing.T) {
	records := []DefectRecord{
		mapped(Pothole, 5),
		{Category: Pothole, Severity: 9},
		mapped(Pothole, 12),
	}

	got := HeatFromDefects(records)

	require.Len(t, got, 2)
	assert.InDelta(t, 0.5, got[0].Intensity(), 1e-9)
	assert.InDelta(t, 1.0, got[1].Intensity(), 1e-9)
	assert.Equal(t, 42.87, got[0].Lat())
}
