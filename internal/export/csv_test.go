package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cycleview/internal/models"
)

func fullCycle() models.CycleSummary {
	return models.CycleSummary{
		CycleNumber:            12,
		CycleStartTime:         models.Timestamp{Time: time.Date(2024, time.May, 1, 8, 30, 0, 0, time.UTC)},
		CycleEndTime:           models.Timestamp{Time: time.Date(2024, time.May, 1, 11, 0, 0, 125_000_000, time.UTC)},
		CycleDurationHours:     models.Float64(2.5),
		SOHDrop:                models.Float64(0.35),
		AverageSOH:             models.Float64(96.456),
		MinSOH:                 models.Float64(96),
		MaxSOH:                 models.Float64(97),
		AverageSOC:             models.Float64(55.1),
		MinSOC:                 models.Float64(12.5),
		MaxSOC:                 models.Float64(98),
		AverageTemperature:     models.Float64(31.25),
		VoltageAvg:             models.Float64(52.1),
		VoltageMin:             models.Float64(48),
		VoltageMax:             models.Float64(54.6),
		CurrentAvg:             models.Float64(-3.2),
		TotalDistance:          models.Float64(41.7),
		AverageSpeed:           models.Float64(18.333),
		MaxSpeed:               models.Float64(45.5),
		DataPointsCount:        models.CountOf(900),
		ChargingInstancesCount: models.CountOf(1),
		WarningCount:           models.CountOf(2),
		ProtectionCount:        models.CountOf(0),
	}
}

func parse(t *testing.T, doc string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(doc)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestToCSVRoundTrip(t *testing.T) {
	cycles := []models.CycleSummary{fullCycle(), {CycleNumber: 11}, {CycleNumber: 10}}

	records := parse(t, ToCSV(cycles))
	require.Len(t, records, 4)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, "12", records[1][0])
	assert.Equal(t, "11", records[2][0])
	assert.Equal(t, "10", records[3][0])
	for _, r := range records {
		assert.Len(t, r, len(Header))
	}
}

func TestToCSVEmpty(t *testing.T) {
	doc := ToCSV(nil)
	assert.Equal(t, strings.Join(Header, ","), doc)
	assert.NotContains(t, doc, "\n")
}

func TestRowFormatting(t *testing.T) {
	row := Row(fullCycle())
	assert.Equal(t, []string{
		"12",
		"2024-05-01T08:30:00.000Z",
		"2024-05-01T11:00:00.125Z",
		"2.50",
		"0.35",
		"96.46",
		"96.00",
		"97.00",
		"55.10",
		"12.5",
		"98",
		"31.25",
		"52.10",
		"48.00",
		"54.60",
		"-3.20",
		"41.70",
		"18.33",
		"45.5",
		"900",
		"1",
		"2",
		"0",
	}, row)
}

func TestRowAbsentFields(t *testing.T) {
	row := Row(models.CycleSummary{CycleNumber: 3})
	require.Len(t, row, len(Header))

	assert.Equal(t, "3", row[0])
	assert.Equal(t, "", row[1])
	assert.Equal(t, "", row[2])
	assert.Equal(t, "", row[3])
	assert.Equal(t, "0", row[4], "absent SOH drop exports as zero")
	assert.Equal(t, "", row[9])
	assert.Equal(t, "", row[19], "absent data points stay blank")
	assert.Equal(t, []string{"0", "0", "0"}, row[20:])
}

func TestRowConvertsToUTC(t *testing.T) {
	zone := time.FixedZone("CEST", 2*60*60)
	c := models.CycleSummary{CycleStartTime: models.Timestamp{Time: time.Date(2024, time.May, 1, 10, 0, 0, 0, zone)}}
	assert.Equal(t, "2024-05-01T08:00:00.000Z", Row(c)[1])
}

func TestEveryCellIsQuoted(t *testing.T) {
	doc := ToCSV([]models.CycleSummary{{CycleNumber: 1}})
	lines := strings.Split(doc, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], `"1","","",""`))
	assert.Equal(t, len(Header), strings.Count(lines[1], `","`)+1)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"say ""hi"""`, quote(`say "hi"`))
	assert.Equal(t, `""`, quote(""))
}

func TestWriteCSVMatchesToCSV(t *testing.T) {
	cycles := []models.CycleSummary{fullCycle()}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, cycles))
	assert.Equal(t, ToCSV(cycles), buf.String())
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "cycle-12-865044073967657.csv", CycleFilename(12, "865044073967657"))
	assert.Equal(t, "all-cycles-865044073967657.csv", BulkFilename("865044073967657", 40, 40))
	assert.Equal(t, "all-cycles-865044073967657-filtered-7.csv", BulkFilename("865044073967657", 7, 40))
}
