package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// This file defines unit-safe lengths used by the configuration layer.

// Unit represents the original unit of a length value as specified in the config.
type Unit int

const (
	UnitNone    Unit = iota // unit-less numbers, treated as pixels
	UnitPX                  // pixels
	UnitPT                  // points at 96 dpi
	UnitPercent             // percentage of a reference length
)

// Conversion constants. Canvas backends work in mm/pt, layout works in px.
const (
	PtToPx = 96.0 / 72.0
	PxToPt = 72.0 / 96.0
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitPX:
		return "px"
	case UnitPT:
		return "pt"
	case UnitPercent:
		return "%"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Px is shorthand for a pixel length.
func Px(v float64) Length { return Length{Value: v, Unit: UnitPX} }

// Percent is shorthand for a percentage length.
func Percent(v float64) Length { return Length{Value: v, Unit: UnitPercent} }

func (l Length) IsZero() bool { return l.Value == 0 }

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + UnitToString(l.Unit)
}

// Pixels resolves the length to whole pixels. Percentages are taken of reference
// and floored, matching integer division of the canvas width.
func (l Length) Pixels(reference int) int {
	switch l.Unit {
	case UnitPercent:
		return int(math.Floor(float64(reference) * l.Value / 100))
	case UnitPT:
		return int(math.Round(l.Value * PtToPx))
	default:
		return int(math.Round(l.Value))
	}
}

// Float resolves the length to fractional pixels, used for font sizes.
func (l Length) Float(reference float64) float64 {
	switch l.Unit {
	case UnitPercent:
		return reference * l.Value / 100
	case UnitPT:
		return l.Value * PtToPx
	default:
		return l.Value
	}
}

// ParseLength parses a config length string such as "24px", "18pt", "50%" or "12".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"px", UnitPX}, {"pt", UnitPT}, {"%", UnitPercent}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q: %w", value, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Length{}, fmt.Errorf("长度 %q 不是有限数值", value)
	}
	return Length{Value: f, Unit: unit}, nil
}
