// Package parser turns stored telemetry documents into records. Each schema
// version the store has used gets its own Parser.
package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/siddheshvrane/solar-dashboard/internal/docstore"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// Field names shared by both schema versions.
const (
	FieldAngle   = "Angle"
	FieldCurrent = "Current"
	FieldVoltage = "Voltage"
	FieldLDR     = "LDR"
	FieldDate    = "Date"
)

// Parser defines one schema version of the telemetry documents.
type Parser interface {
	// Name returns the unique name of the schema.
	Name() string
	// Query returns the ordered query that selects every record of src.
	Query(src models.Source) docstore.Query
	// Parse validates doc and converts it to a record of src.
	Parse(doc docstore.Document, src models.Source) (models.Record, error)
}

// Options holds settings shared by the parsers.
type Options struct {
	// Location is used for timestamp strings without a zone.
	Location *time.Location
	// Collection holds both sources in the nested schema.
	Collection string
	// SolarCollection and WindCollection are used by the flat schema.
	SolarCollection string
	WindCollection  string
}

// DefaultOptions returns the collection names the dashboard was deployed with.
func DefaultOptions() Options {
	return Options{
		Location:        time.UTC,
		Collection:      "solarWindData",
		SolarCollection: "Solar",
		WindCollection:  "Wind",
	}
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// ErrMalformedRecord is returned for documents missing a required field.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError describes which document and field failed.
type MalformedRecordError struct {
	DocumentID string
	Source     models.Source
	Field      string
	Reason     string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%v: %s document %s: field %s: %s", ErrMalformedRecord, e.Source, e.DocumentID, e.Field, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// buildRecord applies the per-field defaults to a flat field set: numeric
// channels fall back to zero, LDR stays absent, Date is required.
func buildRecord(id string, src models.Source, fields map[string]docstore.Value, dateField string, loc *time.Location) (models.Record, error) {
	date, ok := fields[FieldDate]
	if !ok || date.Kind == docstore.KindNull {
		return models.Record{}, &MalformedRecordError{DocumentID: id, Source: src, Field: dateField, Reason: "missing"}
	}
	ts, err := ParseTimestamp(date, loc)
	if err != nil {
		return models.Record{}, &MalformedRecordError{DocumentID: id, Source: src, Field: dateField, Reason: err.Error()}
	}

	rec := models.Record{
		ID:        id,
		Source:    src,
		Timestamp: ts,
		Angle:     Number(fields[FieldAngle]),
		Current:   Number(fields[FieldCurrent]),
		Voltage:   Number(fields[FieldVoltage]),
	}
	if src == models.SourceSolar {
		rec.LDR = OptionalNumber(fields, FieldLDR)
	}
	return rec, nil
}

// Number coerces a stored value to a reading. Missing, null and
// non-numeric values become zero.
func Number(v docstore.Value) float64 {
	var f float64
	switch v.Kind {
	case docstore.KindNumber:
		f = v.Number
	case docstore.KindBool:
		if v.Bool {
			f = 1
		}
	case docstore.KindString:
		s := strings.TrimSpace(v.String)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// OptionalNumber is Number for a reading that may legitimately be absent.
// A missing or null field yields nil.
func OptionalNumber(fields map[string]docstore.Value, name string) *float64 {
	v, ok := fields[name]
	if !ok || v.Kind == docstore.KindNull {
		return nil
	}
	return models.Float(Number(v))
}
