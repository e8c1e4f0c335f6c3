package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Unit is a display unit for the time axis.
type Unit string

const (
	UnitMillis  Unit = "ms"
	UnitSeconds Unit = "s"
	UnitMinutes Unit = "m"
	UnitHours   Unit = "h"
)

// Units lists the display units in cycling order.
var Units = []Unit{UnitMillis, UnitSeconds, UnitMinutes, UnitHours}

// ErrUnknownUnit is returned by ParseUnit for anything outside Units.
var ErrUnknownUnit = errors.New("unknown time unit")

// ParseUnit validates a unit name.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.TrimSpace(strings.ToLower(s)))
	if u.Valid() {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// Valid reports whether u is one of Units.
func (u Unit) Valid() bool {
	switch u {
	case UnitMillis, UnitSeconds, UnitMinutes, UnitHours:
		return true
	}
	return false
}

// Next returns the unit after u, wrapping around.
func (u Unit) Next() Unit {
	for i, v := range Units {
		if v == u {
			return Units[(i+1)%len(Units)]
		}
	}
	return Units[0]
}

// UnmarshalText lets config files name a unit.
func (u *Unit) UnmarshalText(b []byte) error {
	v, err := ParseUnit(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// perSecond is how many of the unit fit into one second.
func (u Unit) perSecond() float64 {
	switch u {
	case UnitMillis:
		return 1000
	case UnitMinutes:
		return 1.0 / 60
	case UnitHours:
		return 1.0 / 3600
	default:
		return 1
	}
}

// ToUnit converts seconds into u.
func ToUnit(u Unit, seconds float64) float64 {
	return seconds * u.perSecond()
}

// FromUnit converts a value expressed in u back into seconds.
func FromUnit(u Unit, value float64) float64 {
	return value / u.perSecond()
}

// MillisToUnit converts a millisecond span into u.
func MillisToUnit(u Unit, ms float64) float64 {
	return ToUnit(u, ms/1000)
}

// Format renders a value in u as a short axis label.
func (u Unit) Format(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + string(u)
}

// niceSteps are the marker intervals the planner may pick, per unit.
// Adjacent steps differ by less than 150/80, so inside the table one of them
// always lands in the default spacing band.
var niceSteps = map[Unit][]float64{
	UnitMillis: {
		1, 1.5, 2, 3, 5, 7.5, 10, 15, 20, 30, 50, 75, 100, 150, 200, 300, 500, 750,
		1000, 1500, 2000, 3000, 5000, 7500, 10000,
	},
	UnitSeconds: {
		1, 1.5, 2, 3, 5, 7.5, 10, 15, 20, 30, 45, 60, 90, 120, 180, 300, 450, 600,
		900, 1200, 1800, 2700, 3600,
	},
	UnitMinutes: {
		1, 1.5, 2, 3, 5, 7.5, 10, 15, 20, 30, 45, 60, 90, 120, 180, 240, 360, 480, 720,
	},
	UnitHours: {
		1, 1.5, 2, 3, 4, 6, 8, 12, 18, 24, 36, 48, 72, 96, 168,
	},
}

// NiceSteps returns the ordered step table for u.
func NiceSteps(u Unit) []float64 {
	if steps, ok := niceSteps[u]; ok {
		return steps
	}
	return niceSteps[UnitSeconds]
}
