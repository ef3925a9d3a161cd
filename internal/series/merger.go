// Package series combines the per-source record sequences for charting.
package series

import (
	"sort"

	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// Merge combines solar and wind records into timestamp-aligned points.
// Records merge into one point only when their timestamp keys are equal.
// Solar records are applied first, then wind; a later record of the same
// source at the same key overwrites that source's fields. The result is
// sorted ascending by timestamp, so a wind-only timestamp lands in
// chronological order rather than after every solar point. nil inputs
// are treated as empty.
func Merge(solar, wind []models.Record) []models.MergedPoint {
	points := make(map[int64]*models.MergedPoint, len(solar)+len(wind))

	point := func(ts models.Timestamp) *models.MergedPoint {
		p, ok := points[ts.UnixMs]
		if !ok {
			p = &models.MergedPoint{
				Time:  ts.UnixMs,
				Label: ts.Raw,
			}
			points[ts.UnixMs] = p
		}
		return p
	}

	for _, s := range solar {
		p := point(s.Timestamp)
		p.SolarCurrent = models.Float(s.Current)
		p.SolarAngle = models.Float(s.Angle)
	}
	for _, w := range wind {
		p := point(w.Timestamp)
		p.WindCurrent = models.Float(w.Current)
		p.WindAngle = models.Float(w.Angle)
	}

	result := make([]models.MergedPoint, 0, len(points))
	for _, p := range points {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Time < result[j].Time
	})
	return result
}

// Latest returns the last record of an ascending sequence, or false when
// the sequence is empty. Ordering is not re-checked.
func Latest(records []models.Record) (models.Record, bool) {
	if len(records) == 0 {
		return models.Record{}, false
	}
	return records[len(records)-1], true
}
