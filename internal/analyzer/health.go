package analyzer

import (
	"math"

	"cycleview/internal/models"
)

// HealthScore rates a cycle from 0 to 100. It is a display heuristic, not
// a physical battery model:
//
//	100 - (100-soh)*0.5 - sohDrop*2 - warnings*3 - protections*10
//
// with soh defaulting to 100 and the rest to 0 when absent. The result is
// rounded half up and clamped to [0,100]. ok is false for a nil cycle.
func HealthScore(c *models.CycleSummary) (score int, ok bool) {
	if c == nil {
		return 0, false
	}

	soh := models.FloatOr(c.AverageSOH, 100)
	sohDrop := models.FloatOr(c.SOHDrop, 0)
	warnings := float64(models.IntOr(c.WarningCount, 0))
	protections := float64(models.IntOr(c.ProtectionCount, 0))

	s := 100.0
	s -= (100 - soh) * 0.5
	s -= sohDrop * 2
	s -= warnings * 3
	s -= protections * 10

	if math.IsNaN(s) {
		return 0, true
	}
	s = math.Floor(s + 0.5)
	return int(math.Max(0, math.Min(100, s))), true
}

// Health bands
const (
	BandCritical = "critical"
	BandWarning  = "warning"
	BandGood     = "good"
)

// HealthBand maps a score to the band the dashboard colours it with.
func HealthBand(score int) string {
	switch {
	case score < 60:
		return BandCritical
	case score < 80:
		return BandWarning
	default:
		return BandGood
	}
}

// DetectAnomalies evaluates the per-cycle rules in a fixed order. context
// is the filtered set the cycle is viewed in; its mean duration is the
// reference for the unusual-duration rule.
func DetectAnomalies(c *models.CycleSummary, context []models.CycleSummary) []models.Anomaly {
	anomalies := []models.Anomaly{}
	if c == nil {
		return anomalies
	}

	if c.SOHDrop != nil && *c.SOHDrop > 5 {
		anomalies = append(anomalies, models.Anomaly{Type: models.AnomalyWarning, Message: "High SOH drop detected"})
	}

	if c.AverageTemperature != nil && *c.AverageTemperature > 40 {
		anomalies = append(anomalies, models.Anomaly{Type: models.AnomalyWarning, Message: "High average temperature"})
	}

	if c.AverageSOH != nil && *c.AverageSOH < 80 {
		anomalies = append(anomalies, models.Anomaly{Type: models.AnomalyCritical, Message: "Low battery health (SOH < 80%)"})
	}

	if c.ProtectionCount != nil && *c.ProtectionCount > 0 {
		anomalies = append(anomalies, models.Anomaly{Type: models.AnomalyCritical, Message: "Protection events triggered"})
	}

	if len(context) > 0 && c.CycleDurationHours != nil {
		avg := MeanDuration(context)
		if math.Abs(*c.CycleDurationHours-avg) > avg*0.5 {
			anomalies = append(anomalies, models.Anomaly{Type: models.AnomalyInfo, Message: "Unusual cycle duration"})
		}
	}

	return anomalies
}

// MeanDuration averages cycle_duration_hours over all cycles, counting
// absent durations as zero.
func MeanDuration(cycles []models.CycleSummary) float64 {
	if len(cycles) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cycles {
		sum += models.FloatOr(c.CycleDurationHours, 0)
	}
	return sum / float64(len(cycles))
}
