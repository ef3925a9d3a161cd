// Package dashboard builds the view model rendered by the browser client:
// latest-value cards, the two time-series charts and the record tables.
package dashboard

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

//go:embed default_layout.yaml
var defaultLayout []byte

// Record fields a card or column can show.
const (
	FieldDate    = "date"
	FieldCurrent = "current"
	FieldVoltage = "voltage"
	FieldAngle   = "angle"
	FieldLDR     = "ldr"
)

// Merged point keys a chart series can plot.
var seriesKeys = map[string]bool{
	"solarCurrent": true,
	"solarAngle":   true,
	"windCurrent":  true,
	"windAngle":    true,
}

// Layout describes what the dashboard shows and how it is labelled.
type Layout struct {
	Title    string        `yaml:"title" json:"title"`
	Icon     string        `yaml:"icon" json:"icon"`
	Sections []SectionSpec `yaml:"sections" json:"sections"`
	Charts   []ChartSpec   `yaml:"charts" json:"charts"`
	Tables   []TableSpec   `yaml:"tables" json:"tables"`
}

type SectionSpec struct {
	Source models.Source `yaml:"source" json:"source"`
	Title  string        `yaml:"title" json:"title"`
	Icon   string        `yaml:"icon" json:"icon"`
	Color  string        `yaml:"color" json:"color"`
	Cards  []CardSpec    `yaml:"cards" json:"cards"`
}

type CardSpec struct {
	Title string `yaml:"title" json:"title"`
	Field string `yaml:"field" json:"field"`
	Unit  string `yaml:"unit" json:"unit"`
	Icon  string `yaml:"icon" json:"icon"`
}

type ChartSpec struct {
	ID     string       `yaml:"id" json:"id"`
	Title  string       `yaml:"title" json:"title"`
	Icon   string       `yaml:"icon" json:"icon"`
	Series []SeriesSpec `yaml:"series" json:"series"`
}

type SeriesSpec struct {
	Key   string `yaml:"key" json:"key"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

type TableSpec struct {
	Source  models.Source `yaml:"source" json:"source"`
	Title   string        `yaml:"title" json:"title"`
	Icon    string        `yaml:"icon" json:"icon"`
	Color   string        `yaml:"color" json:"color"`
	Columns []ColumnSpec  `yaml:"columns" json:"columns"`
}

type ColumnSpec struct {
	Field  string `yaml:"field" json:"field"`
	Header string `yaml:"header" json:"header"`
}

// DefaultLayout returns the built-in layout.
func DefaultLayout() *Layout {
	l, err := ParseLayout(defaultLayout)
	if err != nil {
		panic(fmt.Sprintf("built-in layout: %v", err))
	}
	return l
}

// LoadLayout reads a layout file. An empty path yields the built-in layout.
func LoadLayout(path string) (*Layout, error) {
	if path == "" {
		return DefaultLayout(), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseLayoutFromReader(file)
}

// ParseLayoutFromReader parses a layout from an io.Reader.
func ParseLayoutFromReader(r io.Reader) (*Layout, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseLayout(data)
}

// ParseLayout parses and validates a YAML layout.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks that every card, series and column names something
// that exists.
func (l *Layout) Validate() error {
	for _, s := range l.Sections {
		if _, err := models.ParseSource(string(s.Source)); err != nil {
			return fmt.Errorf("section %q: %w", s.Title, err)
		}
		for _, c := range s.Cards {
			if !validRecordField(c.Field, s.Source) || c.Field == FieldDate {
				return fmt.Errorf("section %q card %q: unknown field %q", s.Title, c.Title, c.Field)
			}
		}
	}
	for _, c := range l.Charts {
		for _, s := range c.Series {
			if !seriesKeys[s.Key] {
				return fmt.Errorf("chart %q: unknown series %q", c.Title, s.Key)
			}
		}
	}
	for _, t := range l.Tables {
		if _, err := models.ParseSource(string(t.Source)); err != nil {
			return fmt.Errorf("table %q: %w", t.Title, err)
		}
		for _, col := range t.Columns {
			if !validRecordField(col.Field, t.Source) {
				return fmt.Errorf("table %q column %q: unknown field %q", t.Title, col.Header, col.Field)
			}
		}
	}
	return nil
}

func validRecordField(field string, src models.Source) bool {
	switch field {
	case FieldDate, FieldCurrent, FieldVoltage, FieldAngle:
		return true
	case FieldLDR:
		return src == models.SourceSolar
	}
	return false
}
