package models

// MergedPoint is one timestamp-aligned row combining the fields of both
// sources for charting. A nil field means no record of that source had
// this exact timestamp.
type MergedPoint struct {
	Time         int64    `json:"time" msgpack:"time"`
	Label        string   `json:"label" msgpack:"label"`
	SolarCurrent *float64 `json:"solarCurrent" msgpack:"solarCurrent"`
	SolarAngle   *float64 `json:"solarAngle" msgpack:"solarAngle"`
	WindCurrent  *float64 `json:"windCurrent" msgpack:"windCurrent"`
	WindAngle    *float64 `json:"windAngle" msgpack:"windAngle"`
}
