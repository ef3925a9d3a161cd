package models

import "time"

// SourceState is what the dashboard knows about one polling key.
type SourceState struct {
	Source     Source    `json:"source" msgpack:"source"`
	Key        string    `json:"key" msgpack:"key"`
	Records    []Record  `json:"records" msgpack:"records"`
	HasData    bool      `json:"hasData" msgpack:"hasData"`
	FetchedAt  time.Time `json:"fetchedAt,omitempty" msgpack:"fetchedAt"`
	Generation int64     `json:"generation" msgpack:"generation"`
	Loading    bool      `json:"loading" msgpack:"loading"`       // in flight with no data yet
	Validating bool      `json:"validating" msgpack:"validating"` // any fetch in flight
	Error      string    `json:"error,omitempty" msgpack:"error,omitempty"`
	ErrorAt    time.Time `json:"errorAt,omitempty" msgpack:"errorAt"`
}

// Snapshot is the state of both sources at one instant.
type Snapshot struct {
	Solar   SourceState `json:"solar" msgpack:"solar"`
	Wind    SourceState `json:"wind" msgpack:"wind"`
	TakenAt time.Time   `json:"takenAt" msgpack:"takenAt"`
}

// Loading is the logical OR of both sources' loading state.
func (s Snapshot) Loading() bool {
	return s.Solar.Loading || s.Wind.Loading
}

// State returns the state for src.
func (s Snapshot) State(src Source) SourceState {
	if src == SourceWind {
		return s.Wind
	}
	return s.Solar
}
