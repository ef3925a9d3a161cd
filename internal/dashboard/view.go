package dashboard

import (
	"fmt"
	"strconv"
	"time"

	"github.com/siddheshvrane/solar-dashboard/internal/models"
	"github.com/siddheshvrane/solar-dashboard/internal/series"
)

// Placeholder is shown for a value that does not exist.
const Placeholder = "-"

// CardState tells the client how to draw a card.
type CardState string

const (
	CardLoading CardState = "loading"
	CardReady   CardState = "ready"
	CardAbsent  CardState = "absent"
)

type Card struct {
	Title   string    `json:"title" msgpack:"title"`
	Unit    string    `json:"unit" msgpack:"unit"`
	Icon    string    `json:"icon" msgpack:"icon"`
	Color   string    `json:"color" msgpack:"color"`
	State   CardState `json:"state" msgpack:"state"`
	Value   *float64  `json:"value" msgpack:"value"`
	Display string    `json:"display" msgpack:"display"`
}

type Section struct {
	Source    models.Source `json:"source" msgpack:"source"`
	Title     string        `json:"title" msgpack:"title"`
	Icon      string        `json:"icon" msgpack:"icon"`
	Color     string        `json:"color" msgpack:"color"`
	Cards     []Card        `json:"cards" msgpack:"cards"`
	UpdatedAt *time.Time    `json:"updatedAt" msgpack:"updatedAt"`
	Error     string        `json:"error,omitempty" msgpack:"error,omitempty"`
}

type Chart struct {
	ID           string               `json:"id" msgpack:"id"`
	Title        string               `json:"title" msgpack:"title"`
	Icon         string               `json:"icon" msgpack:"icon"`
	ConnectNulls bool                 `json:"connectNulls" msgpack:"connectNulls"`
	Series       []SeriesSpec         `json:"series" msgpack:"series"`
	Points       []models.MergedPoint `json:"points" msgpack:"points"`
}

type Column struct {
	Field  string `json:"field" msgpack:"field"`
	Header string `json:"header" msgpack:"header"`
	Align  string `json:"align" msgpack:"align"`
}

type Table struct {
	Source  models.Source `json:"source" msgpack:"source"`
	Title   string        `json:"title" msgpack:"title"`
	Icon    string        `json:"icon" msgpack:"icon"`
	Color   string        `json:"color" msgpack:"color"`
	Columns []Column      `json:"columns" msgpack:"columns"`
	Rows    [][]string    `json:"rows" msgpack:"rows"`
}

// View is everything the client needs to draw the page.
type View struct {
	Title       string    `json:"title" msgpack:"title"`
	Icon        string    `json:"icon" msgpack:"icon"`
	Status      string    `json:"status" msgpack:"status"`
	Loading     bool      `json:"loading" msgpack:"loading"`
	Sections    []Section `json:"sections" msgpack:"sections"`
	Charts      []Chart   `json:"charts" msgpack:"charts"`
	Tables      []Table   `json:"tables" msgpack:"tables"`
	GeneratedAt time.Time `json:"generatedAt" msgpack:"generatedAt"`
}

// Build turns a snapshot into a view. While either source is loading,
// cards are placeholders and charts and tables carry no data.
func Build(snap models.Snapshot, layout *Layout, interval time.Duration) View {
	loading := snap.Loading()
	v := View{
		Title:       layout.Title,
		Icon:        layout.Icon,
		Status:      StatusLine(interval),
		Loading:     loading,
		Sections:    make([]Section, 0, len(layout.Sections)),
		Charts:      make([]Chart, 0, len(layout.Charts)),
		Tables:      make([]Table, 0, len(layout.Tables)),
		GeneratedAt: snap.TakenAt,
	}

	for _, spec := range layout.Sections {
		v.Sections = append(v.Sections, buildSection(spec, snap.State(spec.Source), loading))
	}

	var points []models.MergedPoint
	if !loading {
		points = series.Merge(snap.Solar.Records, snap.Wind.Records)
	} else {
		points = []models.MergedPoint{}
	}
	for _, spec := range layout.Charts {
		v.Charts = append(v.Charts, Chart{
			ID:           spec.ID,
			Title:        spec.Title,
			Icon:         spec.Icon,
			ConnectNulls: true,
			Series:       spec.Series,
			Points:       points,
		})
	}

	for _, spec := range layout.Tables {
		var records []models.Record
		if !loading {
			records = snap.State(spec.Source).Records
		}
		v.Tables = append(v.Tables, BuildTable(spec, records))
	}
	return v
}

func buildSection(spec SectionSpec, st models.SourceState, loading bool) Section {
	sec := Section{
		Source: spec.Source,
		Title:  spec.Title,
		Icon:   spec.Icon,
		Color:  spec.Color,
		Cards:  make([]Card, 0, len(spec.Cards)),
		Error:  st.Error,
	}
	if !st.FetchedAt.IsZero() {
		t := st.FetchedAt
		sec.UpdatedAt = &t
	}

	latest, ok := series.Latest(st.Records)
	for _, c := range spec.Cards {
		card := Card{
			Title: c.Title,
			Unit:  c.Unit,
			Icon:  c.Icon,
			Color: spec.Color,
		}
		switch {
		case loading:
			card.State = CardLoading
		case !ok:
			card.State = CardAbsent
			card.Display = Placeholder
		default:
			if val := FieldValue(latest, c.Field); val != nil {
				card.State = CardReady
				card.Value = val
				card.Display = FormatCard(*val)
			} else {
				card.State = CardAbsent
				card.Display = Placeholder
			}
		}
		sec.Cards = append(sec.Cards, card)
	}
	return sec
}

// BuildTable renders records in the order given.
func BuildTable(spec TableSpec, records []models.Record) Table {
	t := Table{
		Source:  spec.Source,
		Title:   spec.Title,
		Icon:    spec.Icon,
		Color:   spec.Color,
		Columns: make([]Column, 0, len(spec.Columns)),
		Rows:    make([][]string, 0, len(records)),
	}
	for _, col := range spec.Columns {
		align := "right"
		if col.Field == FieldDate {
			align = "left"
		}
		t.Columns = append(t.Columns, Column{Field: col.Field, Header: col.Header, Align: align})
	}
	for _, r := range records {
		row := make([]string, 0, len(spec.Columns))
		for _, col := range spec.Columns {
			row = append(row, Cell(r, col.Field))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// FieldValue returns the reading named by field, or nil when the record
// does not carry it.
func FieldValue(r models.Record, field string) *float64 {
	switch field {
	case FieldCurrent:
		return models.Float(r.Current)
	case FieldVoltage:
		return models.Float(r.Voltage)
	case FieldAngle:
		return models.Float(r.Angle)
	case FieldLDR:
		if r.LDR == nil {
			return nil
		}
		return models.Float(*r.LDR)
	}
	return nil
}

// Cell formats one table cell.
func Cell(r models.Record, field string) string {
	if field == FieldDate {
		return r.Timestamp.Raw
	}
	if v := FieldValue(r, field); v != nil {
		return FormatNumber(*v)
	}
	return Placeholder
}

// FormatCard formats a card value with two decimals.
func FormatCard(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatNumber formats a table value in its shortest form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// StatusLine describes the refresh cadence for the page header.
func StatusLine(interval time.Duration) string {
	return "Live monitoring • Auto-refresh every " + formatInterval(interval)
}

func formatInterval(d time.Duration) string {
	switch {
	case d <= 0:
		return "30s"
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	}
	return d.String()
}
