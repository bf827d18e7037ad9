package models

import "fmt"

// TimeFilter is a relative cutoff on a cycle's start time.
type TimeFilter string

const (
	TimeAll     TimeFilter = "all"
	TimeWeek    TimeFilter = "week"
	TimeMonth   TimeFilter = "month"
	Time3Months TimeFilter = "3months"
	Time6Months TimeFilter = "6months"
	TimeYear    TimeFilter = "year"
)

var timeFilters = []TimeFilter{TimeAll, TimeWeek, TimeMonth, Time3Months, Time6Months, TimeYear}

// ParseTimeFilter accepts the wire names above; "" means all.
func ParseTimeFilter(s string) (TimeFilter, error) {
	if s == "" {
		return TimeAll, nil
	}
	for _, tf := range timeFilters {
		if string(tf) == s {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unknown time filter %q (want one of %v)", s, timeFilters)
}

// FilterCriteria selects a subset of a cycle list. Nil bounds are unset.
type FilterCriteria struct {
	SearchQuery    string     `json:"searchQuery,omitempty"`
	TimeFilter     TimeFilter `json:"timeFilter,omitempty"`
	MinCycleNumber *int       `json:"minCycleNumber,omitempty"`
	MaxCycleNumber *int       `json:"maxCycleNumber,omitempty"`
	MinDuration    *float64   `json:"minDuration,omitempty"`
	MaxDuration    *float64   `json:"maxDuration,omitempty"`
}

// IsEmpty reports whether the criteria select every cycle.
func (c FilterCriteria) IsEmpty() bool {
	return c.SearchQuery == "" &&
		(c.TimeFilter == "" || c.TimeFilter == TimeAll) &&
		c.MinCycleNumber == nil && c.MaxCycleNumber == nil &&
		c.MinDuration == nil && c.MaxDuration == nil
}
