package analyzer

import (
	"sort"
	"strconv"
	"strings"

	"cycleview/internal/models"
)

// TrendPoint is one x position of the per-cycle trend charts. Nil fields
// are gaps, not zeros.
type TrendPoint struct {
	Cycle       int      `json:"cycle"`
	SOH         *float64 `json:"soh_avg"`
	SOHDrop     *float64 `json:"soh_drop"`
	SOC         *float64 `json:"soc"`
	Temp        *float64 `json:"temp"`
	Distance    *float64 `json:"distance"`
	Speed       *float64 `json:"speed"`
	Warnings    int      `json:"warnings"`
	Protections int      `json:"protections"`
	Voltage     *float64 `json:"voltage"`
	Current     *float64 `json:"current"`
}

// Trend builds chart series from a filtered list, keeping its order. The
// SOH series falls back to max then min SOH when the average is absent.
func Trend(cycles []models.CycleSummary) []TrendPoint {
	points := make([]TrendPoint, 0, len(cycles))
	for _, c := range cycles {
		soh := c.AverageSOH
		if soh == nil {
			soh = c.MaxSOH
		}
		if soh == nil {
			soh = c.MinSOH
		}
		points = append(points, TrendPoint{
			Cycle:       c.CycleNumber,
			SOH:         soh,
			SOHDrop:     c.SOHDrop,
			SOC:         c.AverageSOC,
			Temp:        c.AverageTemperature,
			Distance:    c.TotalDistance,
			Speed:       c.AverageSpeed,
			Warnings:    models.IntOr(c.WarningCount, 0),
			Protections: models.IntOr(c.ProtectionCount, 0),
			Voltage:     c.VoltageAvg,
			Current:     c.CurrentAvg,
		})
	}
	return points
}

// Bounds are the ranges offered as placeholders for the range filters.
type Bounds struct {
	MinCycle    int     `json:"minCycle"`
	MaxCycle    int     `json:"maxCycle"`
	MinDuration float64 `json:"minDuration"`
	MaxDuration float64 `json:"maxDuration"`
}

// RangeBounds computes Bounds over the full list. Without cycles the cycle
// range is 1..100; only positive durations are considered.
func RangeBounds(cycles []models.CycleSummary) Bounds {
	b := Bounds{MinCycle: 1, MaxCycle: 100}

	for i, c := range cycles {
		if i == 0 || c.CycleNumber < b.MinCycle {
			b.MinCycle = c.CycleNumber
		}
		if i == 0 || c.CycleNumber > b.MaxCycle {
			b.MaxCycle = c.CycleNumber
		}
	}

	first := true
	for _, c := range cycles {
		d := models.FloatOr(c.CycleDurationHours, 0)
		if d <= 0 {
			continue
		}
		if first || d < b.MinDuration {
			b.MinDuration = d
		}
		if first || d > b.MaxDuration {
			b.MaxDuration = d
		}
		first = false
	}

	return b
}

// PreviousCycle returns the cycle listed just before cycleNumber in the
// full list, or nil when there is none.
func PreviousCycle(cycles []models.CycleSummary, cycleNumber int) *models.CycleSummary {
	for i := range cycles {
		if cycles[i].CycleNumber == cycleNumber {
			if i == 0 {
				return nil
			}
			prev := cycles[i-1]
			return &prev
		}
	}
	return nil
}

// Delta compares one metric between the previous and current cycle.
type Delta struct {
	Previous *float64 `json:"previous"`
	Current  *float64 `json:"current"`
	Worse    bool     `json:"worse"`
}

// Comparison is the side-by-side panel against the previous cycle.
type Comparison struct {
	PreviousCycle int   `json:"previousCycle"`
	SOHDrop       Delta `json:"sohDrop"`
	Temperature   Delta `json:"temperature"`
	Distance      Delta `json:"distance"`
}

// Compare builds the comparison panel. SOH drop defaults to zero on both
// sides and is worse when it grew; the other metrics are informational.
func Compare(prev, cur *models.CycleSummary) *Comparison {
	if prev == nil || cur == nil {
		return nil
	}
	prevDrop := models.FloatOr(prev.SOHDrop, 0)
	curDrop := models.FloatOr(cur.SOHDrop, 0)
	return &Comparison{
		PreviousCycle: prev.CycleNumber,
		SOHDrop: Delta{
			Previous: &prevDrop,
			Current:  &curDrop,
			Worse:    curDrop > prevDrop,
		},
		Temperature: Delta{Previous: prev.AverageTemperature, Current: cur.AverageTemperature},
		Distance:    Delta{Previous: prev.TotalDistance, Current: cur.TotalDistance},
	}
}

// TemperatureBin is one bar of a temperature distribution.
type TemperatureBin struct {
	Range   string  `json:"range"`
	Minutes float64 `json:"minutes"`
}

// Resolutions lists the distribution resolutions a detail may carry.
var Resolutions = []string{"5deg", "10deg", "15deg", "20deg"}

// TemperatureBins converts a distribution map into bars ordered by the
// lower bound of each "lo-hi" label. Labels that do not parse sort last,
// alphabetically.
func TemperatureBins(dist map[string]float64) []TemperatureBin {
	bins := make([]TemperatureBin, 0, len(dist))
	for r, m := range dist {
		bins = append(bins, TemperatureBin{Range: r, Minutes: m})
	}
	sort.Slice(bins, func(i, j int) bool {
		li, oki := lowerBound(bins[i].Range)
		lj, okj := lowerBound(bins[j].Range)
		switch {
		case oki && okj && li != lj:
			return li < lj
		case oki != okj:
			return oki
		}
		return bins[i].Range < bins[j].Range
	})
	return bins
}

func lowerBound(label string) (float64, bool) {
	s := strings.TrimSpace(label)
	// a leading minus belongs to the number, not the separator
	idx := strings.Index(s[min(1, len(s)):], "-")
	if idx >= 0 {
		s = s[:idx+min(1, len(s))]
	}
	v, err := strconv.ParseFloat(strings.TrimRight(strings.TrimSpace(s), "+"), 64)
	return v, err == nil
}
