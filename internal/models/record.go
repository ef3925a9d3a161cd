// Package models contains domain types for the renewable telemetry dashboard.
package models

import "fmt"

// Source identifies one of the two telemetry channels.
type Source string

const (
	SourceSolar Source = "solar"
	SourceWind  Source = "wind"
)

// Sources lists every source in display order.
var Sources = []Source{SourceSolar, SourceWind}

// ParseSource converts a path or query value to a Source.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceSolar:
		return SourceSolar, nil
	case SourceWind:
		return SourceWind, nil
	}
	return "", fmt.Errorf("unknown source: %q", s)
}

// PollKey returns the cache identity a source is polled under.
func (s Source) PollKey() string {
	return string(s) + "-all"
}

// Timestamp keeps the stored representation next to its canonical epoch.
type Timestamp struct {
	Raw    string `json:"raw" msgpack:"raw"`
	UnixMs int64  `json:"unixMs" msgpack:"unixMs"`
}

// Record is one reading snapshot for a source at a point in time.
// LDR is only ever set on solar records.
type Record struct {
	ID        string    `json:"id" msgpack:"id"`
	Source    Source    `json:"source" msgpack:"source"`
	Timestamp Timestamp `json:"timestamp" msgpack:"timestamp"`
	Angle     float64   `json:"angle" msgpack:"angle"`
	Current   float64   `json:"current" msgpack:"current"`
	Voltage   float64   `json:"voltage" msgpack:"voltage"`
	LDR       *float64  `json:"ldr,omitempty" msgpack:"ldr,omitempty"`
}

// Float returns a pointer to v, for optional readings.
func Float(v float64) *float64 {
	return &v
}
