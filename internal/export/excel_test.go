package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/siddheshvrane/solar-dashboard/internal/dashboard"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

func TestGenerateTable(t *testing.T) {
	spec := dashboard.DefaultLayout().Tables[0]
	records := []models.Record{
		{ID: "a", Timestamp: models.Timestamp{Raw: "2025-01-15 10:00:00"}, Current: 2.5, Voltage: 12, Angle: 30, LDR: models.Float(812)},
		{ID: "b", Timestamp: models.Timestamp{Raw: "2025-01-15 10:05:00"}, Current: 2.75, Voltage: 12.1, Angle: 31},
	}

	data, err := GenerateTable(spec, records)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Solar Records"}, f.GetSheetList())

	rows, err := f.GetRows("Solar Records")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date & Time", "Current (A)", "Voltage (V)", "Angle (°)", "LDR"}, rows[0])
	assert.Equal(t, []string{"2025-01-15 10:00:00", "2.5", "12", "30", "812"}, rows[1])
	assert.Equal(t, "-", rows[2][4])
}

func TestGenerateTable_Empty(t *testing.T) {
	spec := dashboard.DefaultLayout().Tables[1]
	data, err := GenerateTable(spec, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Wind Records")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "wind-records.xlsx", Filename(models.SourceWind))
}
