package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformed marks a response that arrived but could not be decoded.
var ErrMalformed = errors.New("malformed payload")

// VolumePoint is one chart_volume sample, denominated in the pool's base asset.
type VolumePoint struct {
	TimeLabel string  `json:"time_label"`
	Value     float64 `json:"value"`
}

// UnmarshalJSON accepts value as either a JSON number or a decimal string.
// A null or missing value decodes as NaN so the sample can be skipped.
func (p *VolumePoint) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid volume point json")
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return fmt.Errorf("volume point must be an object")
	}

	value := obj.Get("value")
	switch value.Type {
	case gjson.Number:
		p.Value = value.Float()
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(value.Str), 64)
		if err != nil {
			return fmt.Errorf("invalid volume value %q: %w", value.Str, err)
		}
		p.Value = f
	case gjson.Null:
		p.Value = math.NaN()
	default:
		return fmt.Errorf("volume value not numeric: %s", value.Raw)
	}
	p.TimeLabel = obj.Get("time_label").String()
	return nil
}
