package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"cycleview/internal/analyzer"
	"cycleview/internal/models"
)

// ErrStale is returned when a fetch completed after a newer request for a
// different key had started; its result was discarded.
var ErrStale = errors.New("response superseded by a newer request")

// Source is the read side of the snapshots API.
type Source interface {
	ListCycles(ctx context.Context, imei string, limit int) (*models.CycleList, error)
	GetCycleDetail(ctx context.Context, imei string, cycleNumber int) (*models.CycleDetail, error)
}

// Dashboard is the explicit view state of one dashboard session: the
// device, its cycle list, the filter criteria and the selected cycle.
type Dashboard struct {
	src    Source
	filter *analyzer.Filterer
	limit  int
	log    *slog.Logger

	listGuard   Guard
	detailGuard Guard

	// guards are only advanced while mu is held, so the current tickets
	// always match imei and selected
	mu       sync.Mutex
	imei     string
	cycles   []models.CycleSummary
	count    int
	criteria models.FilterCriteria
	selected *int
	detail   *models.CycleDetail
}

func NewDashboard(src Source, f *analyzer.Filterer, limit int, logger *slog.Logger) *Dashboard {
	if f == nil {
		f = analyzer.NewFilterer("", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{src: src, filter: f, limit: limit, log: logger}
}

// Load switches to imei and fetches its cycle list. Any selection is
// cleared, as opening a different device starts a fresh view.
func (d *Dashboard) Load(ctx context.Context, imei string) error {
	d.mu.Lock()
	ticket := d.listGuard.Begin(imei)
	d.detailGuard.Invalidate()
	if d.imei != imei {
		d.cycles = nil
		d.count = 0
		d.criteria = models.FilterCriteria{}
	}
	d.imei = imei
	d.selected = nil
	d.detail = nil
	d.mu.Unlock()

	list, err := d.src.ListCycles(ctx, imei, d.limit)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.listGuard.Current(ticket) || d.imei != imei {
		d.log.Debug("dropping stale cycle list", "imei", imei)
		return ErrStale
	}
	if err != nil {
		return fmt.Errorf("loading cycles for %s: %w", imei, err)
	}

	d.cycles = list.Items
	d.count = list.Count
	return nil
}

// SetCriteria replaces the filter criteria.
func (d *Dashboard) SetCriteria(c models.FilterCriteria) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.criteria = c
}

func (d *Dashboard) Criteria() models.FilterCriteria {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.criteria
}

// Select makes cycleNumber the selected cycle and fetches its detail.
func (d *Dashboard) Select(ctx context.Context, cycleNumber int) error {
	d.mu.Lock()
	imei := d.imei
	d.selected = &cycleNumber
	d.detail = nil
	ticket := d.detailGuard.Begin(imei + "/" + strconv.Itoa(cycleNumber))
	d.mu.Unlock()

	detail, err := d.src.GetCycleDetail(ctx, imei, cycleNumber)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.detailGuard.Current(ticket) || d.imei != imei || d.selected == nil || *d.selected != cycleNumber {
		d.log.Debug("dropping stale cycle detail", "imei", imei, "cycle", cycleNumber)
		return ErrStale
	}
	if err != nil {
		return fmt.Errorf("loading cycle %d: %w", cycleNumber, err)
	}

	d.detail = detail
	return nil
}

// Clear drops the selection; in-flight detail fetches become stale.
func (d *Dashboard) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detailGuard.Invalidate()
	d.selected = nil
	d.detail = nil
}

// Selected returns the selected cycle number.
func (d *Dashboard) Selected() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selected == nil {
		return 0, false
	}
	return *d.selected, true
}

// Move directions for Navigate.
type Move int

const (
	MovePrev Move = iota
	MoveNext
	MoveFirst
	MoveLast
)

// Navigate moves the selection through the full cycle list. With nothing
// selected, prev picks the last cycle and next picks the first. Moving
// past either end is a no-op. It reports whether the selection changed.
func (d *Dashboard) Navigate(ctx context.Context, m Move) (bool, error) {
	d.mu.Lock()
	target, ok := nextSelection(d.cycles, d.selected, m)
	d.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, d.Select(ctx, target)
}

func nextSelection(cycles []models.CycleSummary, selected *int, m Move) (int, bool) {
	if len(cycles) == 0 {
		return 0, false
	}

	idx := -1
	if selected != nil {
		for i := range cycles {
			if cycles[i].CycleNumber == *selected {
				idx = i
				break
			}
		}
	}

	switch m {
	case MovePrev:
		if idx > 0 {
			return cycles[idx-1].CycleNumber, true
		}
		if idx == -1 {
			return cycles[len(cycles)-1].CycleNumber, true
		}
	case MoveNext:
		if idx >= 0 && idx < len(cycles)-1 {
			return cycles[idx+1].CycleNumber, true
		}
		if idx == -1 {
			return cycles[0].CycleNumber, true
		}
	case MoveFirst:
		return cycles[0].CycleNumber, true
	case MoveLast:
		return cycles[len(cycles)-1].CycleNumber, true
	}
	return 0, false
}

// Cycles returns the full list as loaded.
func (d *Dashboard) Cycles() []models.CycleSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cycles
}

// Snapshot computes the current View.
func (d *Dashboard) Snapshot(now time.Time) View {
	d.mu.Lock()
	imei, criteria := d.imei, d.criteria
	list := &models.CycleList{Items: d.cycles, Count: d.count}
	var sel *Selection
	if d.selected != nil && d.detail != nil {
		sel = &Selection{Cycle: *d.selected, Detail: d.detail}
	}
	d.mu.Unlock()

	return Build(imei, list, criteria, d.filter, sel, now)
}
