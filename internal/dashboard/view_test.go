package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

func record(src models.Source, raw string, ms int64, current float64, ldr *float64) models.Record {
	return models.Record{
		ID:        raw,
		Source:    src,
		Timestamp: models.Timestamp{Raw: raw, UnixMs: ms},
		Angle:     30,
		Current:   current,
		Voltage:   12.4,
		LDR:       ldr,
	}
}

func readySnapshot(solar, wind []models.Record) models.Snapshot {
	return models.Snapshot{
		Solar: models.SourceState{Source: models.SourceSolar, Records: solar, HasData: true, FetchedAt: time.Unix(100, 0)},
		Wind:  models.SourceState{Source: models.SourceWind, Records: wind, HasData: true},
	}
}

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, "Renewable Energy Dashboard", l.Title)
	require.Len(t, l.Sections, 2)
	assert.Len(t, l.Sections[0].Cards, 4)
	assert.Len(t, l.Sections[1].Cards, 3)
	assert.Equal(t, "Turbine Angle", l.Sections[1].Cards[2].Title)
	require.Len(t, l.Charts, 2)
	assert.Equal(t, "Angle Positioning Over Time", l.Charts[1].Title)
	require.Len(t, l.Tables, 2)
	assert.Equal(t, "LDR", l.Tables[0].Columns[4].Header)
}

func TestParseLayout_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown source":   "sections:\n  - source: tidal\n",
		"ldr on wind card": "sections:\n  - source: wind\n    cards:\n      - {title: x, field: ldr}\n",
		"date card":        "sections:\n  - source: solar\n    cards:\n      - {title: x, field: date}\n",
		"unknown series":   "charts:\n  - title: c\n    series:\n      - {key: tidalCurrent}\n",
		"unknown column":   "tables:\n  - source: solar\n    columns:\n      - {field: rpm}\n",
		"not yaml":         "sections: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLayoutFromReader(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestBuild_Loading(t *testing.T) {
	snap := readySnapshot([]models.Record{record(models.SourceSolar, "10:00", 1, 2.5, nil)}, nil)
	snap.Wind = models.SourceState{Source: models.SourceWind, Loading: true, Validating: true}

	v := Build(snap, DefaultLayout(), 30*time.Second)
	assert.True(t, v.Loading)
	for _, sec := range v.Sections {
		for _, c := range sec.Cards {
			assert.Equal(t, CardLoading, c.State)
			assert.Nil(t, c.Value)
		}
	}
	for _, c := range v.Charts {
		assert.NotNil(t, c.Points)
		assert.Empty(t, c.Points)
	}
	for _, tbl := range v.Tables {
		assert.Empty(t, tbl.Rows)
	}
}

func TestBuild_Ready(t *testing.T) {
	solar := []models.Record{
		record(models.SourceSolar, "10:00", 600, 2.5, models.Float(800)),
		record(models.SourceSolar, "10:05", 605, 2.7, nil),
	}
	wind := []models.Record{record(models.SourceWind, "10:00", 600, 1.1, nil)}

	v := Build(readySnapshot(solar, wind), DefaultLayout(), 30*time.Second)
	assert.False(t, v.Loading)
	assert.Equal(t, "Live monitoring • Auto-refresh every 30s", v.Status)

	solarCards := v.Sections[0].Cards
	assert.Equal(t, CardReady, solarCards[0].State)
	assert.Equal(t, "2.70", solarCards[0].Display)
	assert.Equal(t, "12.40", solarCards[1].Display)
	// latest solar record has no LDR reading
	assert.Equal(t, CardAbsent, solarCards[3].State)
	assert.Equal(t, Placeholder, solarCards[3].Display)
	require.NotNil(t, v.Sections[0].UpdatedAt)
	assert.Nil(t, v.Sections[1].UpdatedAt)

	require.Len(t, v.Charts, 2)
	assert.True(t, v.Charts[0].ConnectNulls)
	require.Len(t, v.Charts[0].Points, 2)
	assert.Equal(t, 1.1, *v.Charts[0].Points[0].WindCurrent)
	assert.Nil(t, v.Charts[0].Points[1].WindCurrent)

	solarTable := v.Tables[0]
	require.Len(t, solarTable.Rows, 2)
	assert.Equal(t, []string{"10:00", "2.5", "12.4", "30", "800"}, solarTable.Rows[0])
	assert.Equal(t, Placeholder, solarTable.Rows[1][4])
	assert.Equal(t, "left", solarTable.Columns[0].Align)
	assert.Len(t, v.Tables[1].Columns, 4)
}

func TestBuild_EmptyIsNotAnError(t *testing.T) {
	v := Build(readySnapshot([]models.Record{}, nil), DefaultLayout(), time.Minute)
	assert.Equal(t, "Live monitoring • Auto-refresh every 1m", v.Status)
	for _, sec := range v.Sections {
		for _, c := range sec.Cards {
			assert.Equal(t, CardAbsent, c.State)
		}
	}
	assert.Empty(t, v.Charts[0].Points)
	assert.Empty(t, v.Tables[0].Rows)
}

func TestBuild_SourceError(t *testing.T) {
	snap := readySnapshot(nil, nil)
	snap.Wind.Error = "fetching wind: boom"
	v := Build(snap, DefaultLayout(), 0)
	assert.Equal(t, "fetching wind: boom", v.Sections[1].Error)
	assert.Empty(t, v.Sections[0].Error)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "2.50", FormatCard(2.5))
	assert.Equal(t, "0.00", FormatCard(0))
	assert.Equal(t, "2.5", FormatNumber(2.5))
	assert.Equal(t, "812", FormatNumber(812))
	assert.Equal(t, "0.1", FormatNumber(0.1))
	assert.Equal(t, "-3", FormatNumber(-3))

	assert.Equal(t, "45s", formatInterval(45*time.Second))
	assert.Equal(t, "2h", formatInterval(2*time.Hour))
	assert.Equal(t, "1.5s", formatInterval(1500*time.Millisecond))
}
