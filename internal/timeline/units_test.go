package timeline

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestToUnit_Factors(t *testing.T) {
	cases := []struct {
		unit Unit
		want float64
	}{
		{UnitMillis, 90000},
		{UnitSeconds, 90},
		{UnitMinutes, 1.5},
		{UnitHours, 0.025},
	}
	for _, tc := range cases {
		if got := ToUnit(tc.unit, 90); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("ToUnit(%s, 90) = %v, want %v", tc.unit, got, tc.want)
		}
	}
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit(" M ")
	if err != nil {
		t.Fatalf("ParseUnit failed: %v", err)
	}
	if u != UnitMinutes {
		t.Errorf("Expected m, got %s", u)
	}

	if _, err := ParseUnit("days"); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("Expected ErrUnknownUnit, got %v", err)
	}
}

func TestUnitNextCycles(t *testing.T) {
	u := UnitMillis
	seen := map[Unit]bool{}
	for i := 0; i < len(Units); i++ {
		seen[u] = true
		u = u.Next()
	}
	if u != UnitMillis {
		t.Errorf("Expected to wrap back to ms, got %s", u)
	}
	if len(seen) != len(Units) {
		t.Errorf("Expected to visit %d units, visited %d", len(Units), len(seen))
	}
}

func TestNiceStepsAreIncreasing(t *testing.T) {
	cfg := DefaultConfig()
	for _, u := range Units {
		steps := NiceSteps(u)
		for i := 1; i < len(steps); i++ {
			if steps[i] <= steps[i-1] {
				t.Errorf("%s steps not increasing at %d", u, i)
			}
			if ratio := steps[i] / steps[i-1]; ratio >= cfg.MarkerMaxSpacing/cfg.MarkerMinSpacing {
				t.Errorf("%s steps %v -> %v jump too far (%.2f)", u, steps[i-1], steps[i], ratio)
			}
		}
	}
}

func TestUnitRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("FromUnit(u, ToUnit(u, x)) ≈ x", prop.ForAll(
		func(x float64, u Unit) bool {
			back := FromUnit(u, ToUnit(u, x))
			return math.Abs(back-x) <= 1e-9*math.Max(1, math.Abs(x))
		},
		gen.Float64Range(-1e9, 1e9),
		gen.OneConstOf(UnitMillis, UnitSeconds, UnitMinutes, UnitHours),
	))

	properties.Property("ToUnit(u, FromUnit(u, x)) ≈ x", prop.ForAll(
		func(x float64, u Unit) bool {
			back := ToUnit(u, FromUnit(u, x))
			return math.Abs(back-x) <= 1e-9*math.Max(1, math.Abs(x))
		},
		gen.Float64Range(-1e9, 1e9),
		gen.OneConstOf(UnitMillis, UnitSeconds, UnitMinutes, UnitHours),
	))

	properties.TestingRun(t)
}
