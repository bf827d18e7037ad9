package view

import (
	"time"

	"cycleview/internal/analyzer"
	"cycleview/internal/models"
)

// View is everything the dashboard renders for one device at one instant.
type View struct {
	IMEI      string                `json:"imei"`
	Total     int                   `json:"total"` // rows loaded
	Count     int                   `json:"count"` // cycles the API reports for the device
	Criteria  models.FilterCriteria `json:"criteria"`
	Filtered  []models.CycleSummary `json:"cycles"`
	Stats     *models.Stats         `json:"stats"`
	Trend     []analyzer.TrendPoint `json:"trend"`
	Bounds    analyzer.Bounds       `json:"bounds"`
	Selected  *CycleView            `json:"selected,omitempty"`
	Generated time.Time             `json:"generated"`
}

// CycleView is the panel shown for the selected cycle.
type CycleView struct {
	Cycle      int                  `json:"cycle"`
	Detail     *models.CycleDetail  `json:"detail"`
	Health     *int                 `json:"health"`
	HealthBand string               `json:"healthBand,omitempty"`
	Anomalies  []models.Anomaly     `json:"anomalies"`
	Previous   *models.CycleSummary `json:"previous,omitempty"`
	Comparison *analyzer.Comparison `json:"comparison,omitempty"`
}

// Selection is the selected cycle number and its fetched detail.
type Selection struct {
	Cycle  int
	Detail *models.CycleDetail
}

// Build computes a View from the loaded cycle list, the criteria and an
// optional selection. A nil list renders as empty. It has no side effects.
func Build(imei string, list *models.CycleList, criteria models.FilterCriteria, f *analyzer.Filterer, sel *Selection, now time.Time) View {
	var all []models.CycleSummary
	count := 0
	if list != nil {
		all, count = list.Items, list.Count
	}
	filtered := f.Filter(all, criteria, now)

	v := View{
		IMEI:      imei,
		Total:     len(all),
		Count:     count,
		Criteria:  criteria,
		Filtered:  filtered,
		Stats:     analyzer.Aggregate(filtered),
		Trend:     analyzer.Trend(filtered),
		Bounds:    analyzer.RangeBounds(all),
		Generated: now,
	}

	if sel != nil && sel.Detail != nil {
		v.Selected = BuildCycle(all, filtered, sel.Cycle, sel.Detail)
	}
	return v
}

// BuildCycle derives the panel for cycle, the requested cycle number.
// Anomalies are judged against the filtered set; the previous cycle comes
// from the full list.
func BuildCycle(all, filtered []models.CycleSummary, cycle int, detail *models.CycleDetail) *CycleView {
	cv := &CycleView{
		Cycle:     cycle,
		Detail:    detail,
		Anomalies: analyzer.DetectAnomalies(&detail.CycleSummary, filtered),
	}
	if score, ok := analyzer.HealthScore(&detail.CycleSummary); ok {
		cv.Health = &score
		cv.HealthBand = analyzer.HealthBand(score)
	}
	cv.Previous = analyzer.PreviousCycle(all, cycle)
	cv.Comparison = analyzer.Compare(cv.Previous, &detail.CycleSummary)

	return cv
}
