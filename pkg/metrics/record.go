// Package metrics turns audit run events into time-stamped
// metric records and persists them to a Store.
package metrics

import (
	"strconv"
	"time"
)

// Kind is the value type of a Record.
type Kind string

const (
	// KindText records carry an outcome or verdict name.
	KindText Kind = "text"
	// KindNumber records carry a numeric measurement.
	KindNumber Kind = "number"
)

// Record levels, stored in the "level" dimension.
const (
	LevelCheck = "check"
	LevelRule  = "rule"
	LevelRepo  = "repo"
)

// Record is one metric data point.
type Record struct {
	Dimensions map[string]string `json:"dimensions"`
	Measure    string            `json:"measure"`
	Value      string            `json:"value"`
	Kind       Kind              `json:"kind"`
	Time       time.Time         `json:"time"`
}

// Number returns the numeric value of a KindNumber record.
func (r Record) Number() (float64, bool) {
	if r.Kind != KindNumber {
		return 0, false
	}
	v, err := strconv.ParseFloat(r.Value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func textRecord(
	measure, value string, dims map[string]string, at time.Time,
) Record {
	return Record{
		Dimensions: dims,
		Measure:    measure,
		Value:      value,
		Kind:       KindText,
		Time:       at,
	}
}

func numberRecord(
	measure string, value float64, dims map[string]string, at time.Time,
) Record {
	return Record{
		Dimensions: dims,
		Measure:    measure,
		Value:      strconv.FormatFloat(value, 'g', -1, 64),
		Kind:       KindNumber,
		Time:       at,
	}
}
