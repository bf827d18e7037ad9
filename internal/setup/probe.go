// internal/setup/probe.go
package setup

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"cycleview/internal/models"
)

// Lister is the part of the API client the probe needs.
type Lister interface {
	ListCycles(ctx context.Context, imei string, limit int) (*models.CycleList, error)
}

// DeviceStatus is the probe result for one configured IMEI.
type DeviceStatus struct {
	IMEI        string
	Reachable   bool
	Count       int // total reported by the API
	LatestCycle int
	LatestStart models.Timestamp
	Err         error
}

type Prober struct {
	client Lister
}

func NewProber(client Lister) *Prober {
	return &Prober{client: client}
}

// Probe asks the API for one cycle of every configured device. It checks
// the configured list only; it never looks for other devices.
func (p *Prober) Probe(ctx context.Context, imeis []string) []DeviceStatus {
	statuses := make([]DeviceStatus, 0, len(imeis))

	for _, imei := range imeis {
		st := DeviceStatus{IMEI: imei}

		list, err := p.client.ListCycles(ctx, imei, 1)
		if err != nil {
			st.Err = err
			statuses = append(statuses, st)
			continue
		}

		st.Reachable = true
		st.Count = list.Count
		if len(list.Items) > 0 {
			st.LatestCycle = list.Items[0].CycleNumber
			st.LatestStart = list.Items[0].CycleStartTime
		}
		statuses = append(statuses, st)
	}

	return statuses
}

// PrintReport writes the probe results followed by a suggested devices
// section for config.yaml listing the devices that returned cycles.
func PrintReport(w io.Writer, statuses []DeviceStatus) error {
	fmt.Fprintf(w, "\nDevice Probe:\n")
	fmt.Fprintf(w, "-------------\n")

	var healthy []string
	for _, st := range statuses {
		switch {
		case st.Err != nil:
			fmt.Fprintf(w, "%-20s unreachable: %v\n", st.IMEI, st.Err)
		case st.Count == 0:
			fmt.Fprintf(w, "%-20s reachable, no cycles\n", st.IMEI)
		default:
			start := "unknown start"
			if !st.LatestStart.IsZero() {
				start = st.LatestStart.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%-20s %d cycles, latest #%d (%s)\n", st.IMEI, st.Count, st.LatestCycle, start)
			healthy = append(healthy, st.IMEI)
		}
	}

	if len(healthy) == 0 {
		fmt.Fprintf(w, "\nWarning: no configured device returned cycles\n")
		return nil
	}

	out, err := yaml.Marshal(map[string][]string{"devices": healthy})
	if err != nil {
		return fmt.Errorf("rendering yaml hint: %w", err)
	}
	fmt.Fprintf(w, "\nSuggested config.yaml devices section:\n%s", out)
	return nil
}
