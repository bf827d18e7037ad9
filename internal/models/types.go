package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// CycleSummary is one row of a device's cycle list as served by the
// snapshots API. Optional numeric fields are nil when the API omits them.
type CycleSummary struct {
	CycleNumber    int       `json:"cycle_number"`
	CycleStartTime Timestamp `json:"cycle_start_time"`
	CycleEndTime   Timestamp `json:"cycle_end_time"`

	CycleDurationHours *float64 `json:"cycle_duration_hours,omitempty"`

	AverageSOH *float64 `json:"average_soh,omitempty"`
	MinSOH     *float64 `json:"min_soh,omitempty"`
	MaxSOH     *float64 `json:"max_soh,omitempty"`
	SOHDrop    *float64 `json:"soh_drop,omitempty"`

	AverageSOC *float64 `json:"average_soc,omitempty"`
	MinSOC     *float64 `json:"min_soc,omitempty"`
	MaxSOC     *float64 `json:"max_soc,omitempty"`

	AverageTemperature *float64 `json:"average_temperature,omitempty"`

	VoltageAvg *float64 `json:"voltage_avg,omitempty"`
	VoltageMin *float64 `json:"voltage_min,omitempty"`
	VoltageMax *float64 `json:"voltage_max,omitempty"`
	CurrentAvg *float64 `json:"current_avg,omitempty"`

	TotalDistance *float64 `json:"total_distance,omitempty"`
	AverageSpeed  *float64 `json:"average_speed,omitempty"`
	MaxSpeed      *float64 `json:"max_speed,omitempty"`

	DataPointsCount        *Count `json:"data_points_count,omitempty"`
	ChargingInstancesCount *Count `json:"charging_instances_count,omitempty"`
	WarningCount           *Count `json:"warning_count,omitempty"`
	ProtectionCount        *Count `json:"protection_count,omitempty"`
}

// CycleDetail is the full record of a single cycle, fetched on selection.
type CycleDetail struct {
	CycleSummary

	TemperatureDist5Deg  map[string]float64 `json:"temperature_dist_5deg,omitempty"`
	TemperatureDist10Deg map[string]float64 `json:"temperature_dist_10deg,omitempty"`
	TemperatureDist15Deg map[string]float64 `json:"temperature_dist_15deg,omitempty"`
	TemperatureDist20Deg map[string]float64 `json:"temperature_dist_20deg,omitempty"`
}

// TemperatureDist returns the distribution for a resolution key such as
// "5deg". Unknown resolutions yield nil.
func (d *CycleDetail) TemperatureDist(resolution string) map[string]float64 {
	switch resolution {
	case "5deg":
		return d.TemperatureDist5Deg
	case "10deg":
		return d.TemperatureDist10Deg
	case "15deg":
		return d.TemperatureDist15Deg
	case "20deg":
		return d.TemperatureDist20Deg
	}
	return nil
}

// CycleList is the normalized result of a list request.
type CycleList struct {
	Items   []CycleSummary `json:"items"`
	Count   int            `json:"count"`
	Filters map[string]any `json:"filters"`
}

// Anomaly types
const (
	AnomalyWarning  = "warning"
	AnomalyCritical = "critical"
	AnomalyInfo     = "info"
)

type Anomaly struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Stats holds the summary figures for a filtered cycle set.
type Stats struct {
	TotalCycles      int     `json:"totalCycles"`
	AvgSOH           float64 `json:"avgSOH"`
	TotalDistance    float64 `json:"totalDistance"`
	TotalWarnings    int     `json:"totalWarnings"`
	TotalProtections int     `json:"totalProtections"`
	AvgTemp          float64 `json:"avgTemp"`
}

// Float64, Int and CountOf are helpers for building optional fields.
func Float64(v float64) *float64 { return &v }

func Int(v int) *int { return &v }

// FloatOr returns *p, or def when p is nil.
func FloatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func CountOf(v int) *Count {
	c := Count(v)
	return &c
}

// IntOr returns *p, or def when p is nil.
func IntOr[T ~int](p *T, def int) int {
	if p == nil {
		return def
	}
	return int(*p)
}

// Count is a tally field of a cycle record. The backend sometimes
// serializes these as floats, so any JSON number with an integral value
// is accepted.
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("count: %w", err)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("count: %s is not an integer", bytes.TrimSpace(b))
	}
	*c = Count(f)
	return nil
}

// Timestamp is a time.Time that tolerates the handful of layouts the
// snapshots API has been seen to emit. Values that fail to parse decode to
// the zero time instead of failing the whole document.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []struct {
	layout string
	local  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02 15:04:05.999999999", true},
	{"2006-01-02", false},
}

func ParseTimestamp(s string) (Timestamp, bool) {
	s = strings.TrimSpace(s)
	for _, l := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if l.local {
			t, err = time.ParseInLocation(l.layout, s, time.Local)
		} else {
			t, err = time.Parse(l.layout, s)
		}
		if err == nil {
			return Timestamp{t}, true
		}
	}
	return Timestamp{}, false
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// epoch milliseconds
		var ms int64
		if err := json.Unmarshal(b, &ms); err == nil {
			t.Time = time.UnixMilli(ms)
			return nil
		}
		t.Time = time.Time{}
		return nil
	}

	parsed, _ := ParseTimestamp(s)
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
