// Package features assembles model input vectors from named feature values.
//
// The column order is a contract with the trained model artifact. It is
// fixed at compile time and must never be derived from request data.
package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Width is the number of model input columns.
const Width = 10

// Column names in the order the model was trained on.
const (
	Speed                = "Speed"
	Acceleration         = "Acceleration"
	LaneChange           = "laneChange"
	PastHistory          = "PastHistory"
	Latitude             = "latitude"
	Longitude            = "longitude"
	IsHighSpeed          = "is_high_speed"
	SpeedLaneInteraction = "speed_lane_interaction"
	IsSudden             = "is_sudden"
	CombinedRisk         = "combined_risk"
)

var columns = [Width]string{
	Speed,
	Acceleration,
	LaneChange,
	PastHistory,
	Latitude,
	Longitude,
	IsHighSpeed,
	SpeedLaneInteraction,
	IsSudden,
	CombinedRisk,
}

// Columns returns a copy of the canonical column order.
func Columns() [Width]string { return columns }

// Mapping holds per-request feature values keyed by column name, as decoded
// from JSON. Unknown keys are ignored and missing keys count as zero.
type Mapping map[string]any

// Vector is the ordered numeric input handed to a scoring model.
type Vector [Width]float64

// ErrNotNumeric marks a feature value that cannot be converted to a float.
var ErrNotNumeric = errors.New("feature value is not numeric")

// ConversionError reports which field failed conversion.
type ConversionError struct {
	Field string
	Value any
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("feature %q: cannot convert %v (%T) to float: %v", e.Field, e.Value, e.Value, e.Err)
}

func (e *ConversionError) Unwrap() error { return ErrNotNumeric }

// Assemble builds the model vector from m in canonical column order.
func Assemble(m Mapping) (Vector, error) {
	var v Vector
	for i, name := range columns {
		raw, ok := m[name]
		if !ok {
			continue
		}
		f, err := Float(raw)
		if err != nil {
			return Vector{}, &ConversionError{Field: name, Value: raw, Err: err}
		}
		v[i] = f
	}
	return v, nil
}

// errNotFinite rejects NaN and infinities, which parse as floats but no
// model can score.
var errNotFinite = fmt.Errorf("%w: value is not finite", ErrNotNumeric)

// Float converts a decoded JSON value to float64 with the rules Assemble
// uses. A null value, NaN or an infinity is an error.
func Float(raw any) (float64, error) {
	f, err := toFloat(raw)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

func toFloat(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case nil:
		return 0, errors.New("value is null")
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}
