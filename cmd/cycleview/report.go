package main

import (
	"fmt"
	"io"
	"strings"

	"cycleview/internal/analyzer"
	"cycleview/internal/models"
	"cycleview/internal/view"
)

// dash renders an optional value, or a dash when absent.
func dash(v *float64, format string) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf(format, *v)
}

func printOverview(w io.Writer, v view.View) {
	fmt.Fprintf(w, "\nBattery cycles for %s\n", v.IMEI)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 21+len(v.IMEI)))

	if !v.Criteria.IsEmpty() {
		fmt.Fprintf(w, "Showing %d of %d cycles (filtered)\n", len(v.Filtered), v.Count)
	} else {
		fmt.Fprintf(w, "Showing %d of %d cycles\n", len(v.Filtered), v.Count)
	}

	if v.Stats == nil {
		fmt.Fprintf(w, "\nNo cycles match the current filters.\n")
		return
	}

	fmt.Fprintf(w, "\nFleet Overview:\n")
	fmt.Fprintf(w, "---------------\n")
	fmt.Fprintf(w, "Total Cycles:      %d\n", v.Stats.TotalCycles)
	fmt.Fprintf(w, "Avg SOH:           %.1f%%\n", v.Stats.AvgSOH)
	fmt.Fprintf(w, "Total Distance:    %.0f km\n", v.Stats.TotalDistance)
	fmt.Fprintf(w, "Avg Temperature:   %.1f°C\n", v.Stats.AvgTemp)
	fmt.Fprintf(w, "Warnings:          %d\n", v.Stats.TotalWarnings)
	fmt.Fprintf(w, "Protections:       %d\n", v.Stats.TotalProtections)

	fmt.Fprintf(w, "\nCycles:\n")
	fmt.Fprintf(w, "-------\n")
	fmt.Fprintf(w, "%-8s %-17s %9s %9s %9s %10s\n", "Cycle", "Start", "Duration", "Avg SOH", "Avg Temp", "Distance")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 67))
	for _, c := range v.Filtered {
		start := "—"
		if !c.CycleStartTime.IsZero() {
			start = c.CycleStartTime.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "#%-7d %-17s %9s %9s %9s %10s\n",
			c.CycleNumber,
			start,
			dash(c.CycleDurationHours, "%.1fh"),
			dash(c.AverageSOH, "%.1f%%"),
			dash(c.AverageTemperature, "%.1f°C"),
			dash(c.TotalDistance, "%.1f km"))
	}
}

func printCycle(w io.Writer, cv *view.CycleView) {
	d := cv.Detail

	fmt.Fprintf(w, "\nCycle #%d\n", cv.Cycle)
	fmt.Fprintf(w, "---------\n")
	if cv.Health != nil {
		fmt.Fprintf(w, "Health:            %d (%s)\n", *cv.Health, cv.HealthBand)
	} else {
		fmt.Fprintf(w, "Health:            —\n")
	}
	fmt.Fprintf(w, "Duration:          %s\n", dash(d.CycleDurationHours, "%.2f hrs"))
	fmt.Fprintf(w, "SOH avg/min/max:   %s / %s / %s\n", dash(d.AverageSOH, "%.1f%%"), dash(d.MinSOH, "%.1f%%"), dash(d.MaxSOH, "%.1f%%"))
	fmt.Fprintf(w, "SOH Drop:          %s\n", dash(d.SOHDrop, "%.2f%%"))
	fmt.Fprintf(w, "SOC avg/min/max:   %s / %s / %s\n", dash(d.AverageSOC, "%.1f%%"), dash(d.MinSOC, "%.1f%%"), dash(d.MaxSOC, "%.1f%%"))
	fmt.Fprintf(w, "Avg Temperature:   %s\n", dash(d.AverageTemperature, "%.1f°C"))
	fmt.Fprintf(w, "Voltage avg/min/max: %s / %s / %s\n", dash(d.VoltageAvg, "%.1f V"), dash(d.VoltageMin, "%.1f V"), dash(d.VoltageMax, "%.1f V"))
	fmt.Fprintf(w, "Avg Current:       %s\n", dash(d.CurrentAvg, "%.1f A"))
	fmt.Fprintf(w, "Distance:          %s\n", dash(d.TotalDistance, "%.1f km"))
	fmt.Fprintf(w, "Speed avg/max:     %s / %s\n", dash(d.AverageSpeed, "%.1f km/h"), dash(d.MaxSpeed, "%.1f km/h"))
	fmt.Fprintf(w, "Warnings:          %d\n", models.IntOr(d.WarningCount, 0))
	fmt.Fprintf(w, "Protections:       %d\n", models.IntOr(d.ProtectionCount, 0))
	fmt.Fprintf(w, "Charging:          %d\n", models.IntOr(d.ChargingInstancesCount, 0))

	if len(cv.Anomalies) > 0 {
		fmt.Fprintf(w, "\nAnomalies:\n")
		for _, a := range cv.Anomalies {
			fmt.Fprintf(w, "  [%s] %s\n", a.Type, a.Message)
		}
	} else {
		fmt.Fprintf(w, "\nNo anomalies detected\n")
	}

	if c := cv.Comparison; c != nil {
		fmt.Fprintf(w, "\nCompared with cycle #%d:\n", c.PreviousCycle)
		worse := ""
		if c.SOHDrop.Worse {
			worse = "  (worse)"
		}
		fmt.Fprintf(w, "  SOH Drop:        %s -> %s%s\n", dash(c.SOHDrop.Previous, "%.2f%%"), dash(c.SOHDrop.Current, "%.2f%%"), worse)
		fmt.Fprintf(w, "  Avg Temperature: %s -> %s\n", dash(c.Temperature.Previous, "%.1f°C"), dash(c.Temperature.Current, "%.1f°C"))
		fmt.Fprintf(w, "  Distance:        %s -> %s\n", dash(c.Distance.Previous, "%.1f km"), dash(c.Distance.Current, "%.1f km"))
	}

	for _, res := range analyzer.Resolutions {
		bins := analyzer.TemperatureBins(d.TemperatureDist(res))
		if len(bins) == 0 {
			continue
		}
		fmt.Fprintf(w, "\nTemperature distribution (%s):\n", res)
		for _, b := range bins {
			fmt.Fprintf(w, "  %-10s %8.1f min\n", b.Range, b.Minutes)
		}
		break
	}
}
