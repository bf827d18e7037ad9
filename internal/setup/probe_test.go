package setup

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cycleview/internal/models"
)

type fakeLister struct {
	lists  map[string]*models.CycleList
	limits []int
}

func (f *fakeLister) ListCycles(_ context.Context, imei string, limit int) (*models.CycleList, error) {
	f.limits = append(f.limits, limit)
	if l, ok := f.lists[imei]; ok {
		return l, nil
	}
	return nil, errors.New("status 404")
}

func probeFixture() *fakeLister {
	start := models.Timestamp{Time: time.Date(2024, time.May, 1, 9, 15, 0, 0, time.UTC)}
	return &fakeLister{lists: map[string]*models.CycleList{
		"111": {Items: []models.CycleSummary{{CycleNumber: 88, CycleStartTime: start}}, Count: 88},
		"222": {Items: []models.CycleSummary{}, Count: 0},
	}}
}

func TestProbe(t *testing.T) {
	f := probeFixture()
	statuses := NewProber(f).Probe(context.Background(), []string{"111", "222", "333"})

	require.Len(t, statuses, 3)
	assert.Equal(t, []int{1, 1, 1}, f.limits)

	assert.True(t, statuses[0].Reachable)
	assert.Equal(t, 88, statuses[0].Count)
	assert.Equal(t, 88, statuses[0].LatestCycle)

	assert.True(t, statuses[1].Reachable)
	assert.Zero(t, statuses[1].Count)

	assert.False(t, statuses[2].Reachable)
	assert.Error(t, statuses[2].Err)
}

func TestPrintReport(t *testing.T) {
	statuses := NewProber(probeFixture()).Probe(context.Background(), []string{"111", "222", "333"})

	var buf bytes.Buffer
	require.NoError(t, PrintReport(&buf, statuses))
	out := buf.String()

	assert.Contains(t, out, "88 cycles, latest #88 (2024-05-01 09:15)")
	assert.Regexp(t, `222\s+reachable, no cycles`, out)
	assert.Contains(t, out, "unreachable: status 404")

	idx := bytes.Index(buf.Bytes(), []byte("Suggested config.yaml devices section:\n"))
	require.GreaterOrEqual(t, idx, 0)

	var hint struct {
		Devices []string `yaml:"devices"`
	}
	suggested := out[idx+len("Suggested config.yaml devices section:\n"):]
	require.NoError(t, yaml.Unmarshal([]byte(suggested), &hint))
	assert.Equal(t, []string{"111"}, hint.Devices)
}

func TestPrintReportNoHealthyDevices(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintReport(&buf, []DeviceStatus{{IMEI: "333", Err: errors.New("timeout")}}))
	assert.Contains(t, buf.String(), "Warning: no configured device returned cycles")
	assert.NotContains(t, buf.String(), "Suggested")
}
