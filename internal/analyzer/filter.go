package analyzer

import (
	"strconv"
	"strings"
	"time"

	"cycleview/internal/models"
)

// DefaultDateLayout renders start dates as month/day/year for search.
const DefaultDateLayout = "1/2/2006"

// Filterer applies FilterCriteria to a cycle list. The date layout and
// location decide how a start date is rendered for search matching.
type Filterer struct {
	DateLayout string
	Location   *time.Location
}

func NewFilterer(dateLayout string, loc *time.Location) *Filterer {
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	if loc == nil {
		loc = time.Local
	}
	return &Filterer{DateLayout: dateLayout, Location: loc}
}

// FilterCycles filters with the default date layout in local time.
func FilterCycles(cycles []models.CycleSummary, c models.FilterCriteria, now time.Time) []models.CycleSummary {
	return NewFilterer("", nil).Filter(cycles, c, now)
}

// Filter returns the cycles matching every active criterion, in input
// order. The input slice is not modified.
func (f *Filterer) Filter(cycles []models.CycleSummary, c models.FilterCriteria, now time.Time) []models.CycleSummary {
	result := make([]models.CycleSummary, 0, len(cycles))

	query := strings.ToLower(c.SearchQuery)
	cutoff, hasCutoff := Cutoff(c.TimeFilter, now)

	for _, cycle := range cycles {
		if query != "" && !f.matchesSearch(cycle, query) {
			continue
		}

		// an unparseable start time is never older than the cutoff
		if hasCutoff && !cycle.CycleStartTime.IsZero() && cycle.CycleStartTime.Before(cutoff) {
			continue
		}

		if c.MinCycleNumber != nil && cycle.CycleNumber < *c.MinCycleNumber {
			continue
		}
		if c.MaxCycleNumber != nil && cycle.CycleNumber > *c.MaxCycleNumber {
			continue
		}

		duration := models.FloatOr(cycle.CycleDurationHours, 0)
		if c.MinDuration != nil && duration < *c.MinDuration {
			continue
		}
		if c.MaxDuration != nil && duration > *c.MaxDuration {
			continue
		}

		result = append(result, cycle)
	}

	return result
}

func (f *Filterer) matchesSearch(cycle models.CycleSummary, query string) bool {
	if strings.Contains(strconv.Itoa(cycle.CycleNumber), query) {
		return true
	}
	if cycle.CycleStartTime.IsZero() {
		return false
	}
	date := cycle.CycleStartTime.In(f.Location).Format(f.DateLayout)
	return strings.Contains(strings.ToLower(date), query)
}

// Cutoff returns the earliest start time a time filter admits. The second
// result is false for "all" and for unknown filters.
func Cutoff(tf models.TimeFilter, now time.Time) (time.Time, bool) {
	switch tf {
	case models.TimeWeek:
		return now.AddDate(0, 0, -7), true
	case models.TimeMonth:
		return now.AddDate(0, -1, 0), true
	case models.Time3Months:
		return now.AddDate(0, -3, 0), true
	case models.Time6Months:
		return now.AddDate(0, -6, 0), true
	case models.TimeYear:
		return now.AddDate(-1, 0, 0), true
	}
	return time.Time{}, false
}
