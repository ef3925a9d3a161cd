package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/siddheshvrane/solar-dashboard/internal/docstore"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// LabelLayout formats timestamps that were not stored as strings.
const LabelLayout = "2006-01-02 15:04:05"

// Accepted string layouts, tried in order. Single-digit month, day and
// hour fields also match their zero-padded forms.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-1-2T15:04:05",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006 15:04:05",
	"2006-1-2",
	"15:04:05",
	"15:04",
}

// ParseTimestamp normalises a stored date to epoch milliseconds. String
// values keep their text as the display form.
func ParseTimestamp(v docstore.Value, loc *time.Location) (models.Timestamp, error) {
	if loc == nil {
		loc = time.UTC
	}

	switch v.Kind {
	case docstore.KindTimestamp:
		return models.Timestamp{
			Raw:    v.Time.In(loc).Format(LabelLayout),
			UnixMs: v.Time.UnixMilli(),
		}, nil
	case docstore.KindNumber:
		t := epochToTime(v.Number)
		return models.Timestamp{
			Raw:    t.In(loc).Format(LabelLayout),
			UnixMs: t.UnixMilli(),
		}, nil
	case docstore.KindString:
		raw := v.String
		s := strings.TrimSpace(raw)
		if s == "" {
			return models.Timestamp{}, fmt.Errorf("empty timestamp")
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return models.Timestamp{Raw: raw, UnixMs: epochToTime(float64(n)).UnixMilli()}, nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return models.Timestamp{Raw: raw, UnixMs: t.UnixMilli()}, nil
			}
		}
		return models.Timestamp{}, fmt.Errorf("unrecognised timestamp %q", raw)
	}
	return models.Timestamp{}, fmt.Errorf("timestamp has unsupported type %s", v.Kind)
}

// Values below 1e11 are taken as seconds, larger ones as milliseconds.
func epochToTime(n float64) time.Time {
	if n < 1e11 && n > -1e11 {
		return time.UnixMilli(int64(n * 1000))
	}
	return time.UnixMilli(int64(n))
}
