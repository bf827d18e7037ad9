package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cycleview/internal/models"
)

func TestTrend(t *testing.T) {
	cycles := []models.CycleSummary{
		{CycleNumber: 3, AverageSOH: models.Float64(97), MaxSOH: models.Float64(99), WarningCount: models.CountOf(2)},
		{CycleNumber: 1, MaxSOH: models.Float64(98), MinSOH: models.Float64(96)},
		{CycleNumber: 2, MinSOH: models.Float64(95)},
		{CycleNumber: 4},
	}

	points := Trend(cycles)
	require.Len(t, points, 4)

	assert.Equal(t, []int{3, 1, 2, 4}, []int{points[0].Cycle, points[1].Cycle, points[2].Cycle, points[3].Cycle})
	assert.Equal(t, 97.0, *points[0].SOH)
	assert.Equal(t, 98.0, *points[1].SOH)
	assert.Equal(t, 95.0, *points[2].SOH)
	assert.Nil(t, points[3].SOH)
	assert.Nil(t, points[3].Temp)
	assert.Equal(t, 2, points[0].Warnings)
	assert.Equal(t, 0, points[1].Protections)
}

func TestRangeBounds(t *testing.T) {
	assert.Equal(t, Bounds{MinCycle: 1, MaxCycle: 100}, RangeBounds(nil))

	cycles := []models.CycleSummary{
		{CycleNumber: 40, CycleDurationHours: models.Float64(0)},
		{CycleNumber: 12, CycleDurationHours: models.Float64(6.5)},
		{CycleNumber: 250},
		{CycleNumber: 31, CycleDurationHours: models.Float64(1.25)},
	}
	assert.Equal(t, Bounds{MinCycle: 12, MaxCycle: 250, MinDuration: 1.25, MaxDuration: 6.5}, RangeBounds(cycles))
}

func TestPreviousCycle(t *testing.T) {
	cycles := []models.CycleSummary{{CycleNumber: 9}, {CycleNumber: 8}, {CycleNumber: 7}}

	prev := PreviousCycle(cycles, 8)
	require.NotNil(t, prev)
	assert.Equal(t, 9, prev.CycleNumber)

	assert.Nil(t, PreviousCycle(cycles, 9))
	assert.Nil(t, PreviousCycle(cycles, 42))
}

func TestCompare(t *testing.T) {
	prev := &models.CycleSummary{CycleNumber: 4, SOHDrop: models.Float64(0.5), AverageTemperature: models.Float64(25)}
	cur := &models.CycleSummary{CycleNumber: 5, SOHDrop: models.Float64(1.2), TotalDistance: models.Float64(30)}

	c := Compare(prev, cur)
	require.NotNil(t, c)
	assert.Equal(t, 4, c.PreviousCycle)
	assert.True(t, c.SOHDrop.Worse)
	assert.Equal(t, 0.5, *c.SOHDrop.Previous)
	assert.Equal(t, 1.2, *c.SOHDrop.Current)
	assert.Equal(t, 25.0, *c.Temperature.Previous)
	assert.Nil(t, c.Temperature.Current)
	assert.Nil(t, c.Distance.Previous)

	better := Compare(cur, &models.CycleSummary{CycleNumber: 6})
	require.NotNil(t, better)
	assert.False(t, better.SOHDrop.Worse)
	assert.Equal(t, 0.0, *better.SOHDrop.Current)

	assert.Nil(t, Compare(nil, cur))
}

func TestTemperatureBins(t *testing.T) {
	dist := map[string]float64{
		"25-30":  40,
		"-5-0":   3,
		"5-10":   12,
		"40+":    1,
		"0-5":    6,
		"10-15":  20,
		"other":  2,
		"-10--5": 0.5,
	}

	bins := TemperatureBins(dist)
	ranges := make([]string, 0, len(bins))
	for _, b := range bins {
		ranges = append(ranges, b.Range)
	}
	assert.Equal(t, []string{"-10--5", "-5-0", "0-5", "5-10", "10-15", "25-30", "40+", "other"}, ranges)
	assert.Equal(t, 40.0, bins[5].Minutes)

	assert.Empty(t, TemperatureBins(nil))
}
