package analyzer

import "cycleview/internal/models"

// Aggregate summarizes a filtered cycle set, or returns nil when it is
// empty. Absent averages and distances count as zero and the means divide
// by the total cycle count, so cycles without data pull the averages down.
func Aggregate(cycles []models.CycleSummary) *models.Stats {
	if len(cycles) == 0 {
		return nil
	}

	var (
		sohSum  float64
		tempSum float64
		stats   models.Stats
	)

	for _, c := range cycles {
		sohSum += models.FloatOr(c.AverageSOH, 0)
		tempSum += models.FloatOr(c.AverageTemperature, 0)
		stats.TotalDistance += models.FloatOr(c.TotalDistance, 0)
		stats.TotalWarnings += models.IntOr(c.WarningCount, 0)
		stats.TotalProtections += models.IntOr(c.ProtectionCount, 0)
	}

	stats.TotalCycles = len(cycles)
	stats.AvgSOH = sohSum / float64(stats.TotalCycles)
	stats.AvgTemp = tempSum / float64(stats.TotalCycles)

	return &stats
}
