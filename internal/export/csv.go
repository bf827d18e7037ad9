package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"cycleview/internal/models"
)

// Header is the fixed column schema of every cycle export.
var Header = []string{
	"Cycle Number", "Start Time", "End Time", "Duration (hours)",
	"SOH Drop (%)", "Avg SOH (%)", "Min SOH (%)", "Max SOH (%)",
	"Avg SOC (%)", "Min SOC (%)", "Max SOC (%)",
	"Avg Temperature (°C)", "Avg Voltage (V)", "Min Voltage (V)", "Max Voltage (V)",
	"Avg Current (A)", "Total Distance (km)", "Avg Speed (km/h)", "Max Speed (km/h)",
	"Data Points", "Charging Instances", "Warnings", "Protections",
}

// TimeLayout is the UTC millisecond timestamp used for start/end columns.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Row renders one cycle as export cells, unquoted.
func Row(c models.CycleSummary) []string {
	return []string{
		strconv.Itoa(c.CycleNumber),
		timestamp(c.CycleStartTime),
		timestamp(c.CycleEndTime),
		fixed2(c.CycleDurationHours),
		number(models.Float64(models.FloatOr(c.SOHDrop, 0))),
		fixed2(c.AverageSOH),
		fixed2(c.MinSOH),
		fixed2(c.MaxSOH),
		fixed2(c.AverageSOC),
		number(c.MinSOC),
		number(c.MaxSOC),
		fixed2(c.AverageTemperature),
		fixed2(c.VoltageAvg),
		fixed2(c.VoltageMin),
		fixed2(c.VoltageMax),
		fixed2(c.CurrentAvg),
		fixed2(c.TotalDistance),
		fixed2(c.AverageSpeed),
		number(c.MaxSpeed),
		count(c.DataPointsCount, ""),
		count(c.ChargingInstancesCount, "0"),
		count(c.WarningCount, "0"),
		count(c.ProtectionCount, "0"),
	}
}

// ToCSV renders the header and one quoted row per cycle, in input order,
// joined with "\n".
func ToCSV(cycles []models.CycleSummary) string {
	var b strings.Builder
	_ = WriteCSV(&b, cycles)
	return b.String()
}

// WriteCSV streams the same document ToCSV returns.
func WriteCSV(w io.Writer, cycles []models.CycleSummary) error {
	if _, err := io.WriteString(w, strings.Join(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, c := range cycles {
		cells := Row(c)
		for i, cell := range cells {
			cells[i] = quote(cell)
		}
		if _, err := io.WriteString(w, "\n"+strings.Join(cells, ",")); err != nil {
			return fmt.Errorf("writing cycle %d: %w", c.CycleNumber, err)
		}
	}
	return nil
}

// CycleFilename names a single-cycle export.
func CycleFilename(cycleNumber int, imei string) string {
	return fmt.Sprintf("cycle-%d-%s.csv", cycleNumber, imei)
}

// BulkFilename names a list export; exports of a strict subset of the
// device's cycles carry the exported count.
func BulkFilename(imei string, exported, total int) string {
	if exported < total {
		return fmt.Sprintf("all-cycles-%s-filtered-%d.csv", imei, exported)
	}
	return fmt.Sprintf("all-cycles-%s.csv", imei)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func timestamp(t models.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func fixed2(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func number(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func count(v *models.Count, absent string) string {
	if v == nil {
		return absent
	}
	return strconv.Itoa(int(*v))
}
