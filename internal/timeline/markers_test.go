package timeline

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPlanMarkers_DefaultZoomMillis(t *testing.T) {
	cfg := DefaultConfig()
	// 280ms at the default 5px/ms.
	plan := PlanMarkers(280, 5, UnitMillis, cfg)

	if plan.Spacing < cfg.MarkerMinSpacing || plan.Spacing > cfg.MarkerMaxSpacing {
		t.Errorf("Spacing %v outside band", plan.Spacing)
	}
	if plan.Markers[0].Value != 0 || plan.Markers[0].OffsetPx != 0 {
		t.Errorf("First marker should sit at the origin, got %+v", plan.Markers[0])
	}
	if plan.Markers[1].Label != "20ms" && plan.Markers[1].Label != "30ms" {
		t.Errorf("Unexpected second label %q for interval %v", plan.Markers[1].Label, plan.Interval)
	}
}

func TestPlanMarkers_ZeroRangeUsesSmallestStep(t *testing.T) {
	for _, u := range Units {
		plan := PlanMarkers(0, 5, u, DefaultConfig())
		if plan.Interval != NiceSteps(u)[0] {
			t.Errorf("%s: expected smallest step, got %v", u, plan.Interval)
		}
		if len(plan.Markers) != 1 {
			t.Errorf("%s: expected a single marker, got %d", u, len(plan.Markers))
		}
	}
}

func TestPlanMarkers_DegenerateInputs(t *testing.T) {
	cfg := DefaultConfig()
	inputs := []struct{ rng, ppu float64 }{
		{math.NaN(), 5},
		{math.Inf(1), 5},
		{-50, 5},
		{100, 0},
		{100, math.NaN()},
		{100, -1},
	}
	for _, in := range inputs {
		plan := PlanMarkers(in.rng, in.ppu, UnitSeconds, cfg)
		if !finite(plan.Interval) || plan.Interval <= 0 {
			t.Errorf("PlanMarkers(%v, %v): bad interval %v", in.rng, in.ppu, plan.Interval)
		}
		for _, m := range plan.Markers {
			if !finite(m.OffsetPx) {
				t.Errorf("PlanMarkers(%v, %v): non-finite marker offset", in.rng, in.ppu)
			}
		}
	}
}

func TestPlanMarkers_CapAtMax(t *testing.T) {
	cfg := DefaultConfig()
	// A tiny scale over a huge range forces the past-the-table branch.
	plan := PlanMarkers(1e7, 0.5, UnitMillis, cfg)
	if len(plan.Markers) > cfg.MaxMarkers {
		t.Errorf("Expected at most %d markers, got %d", cfg.MaxMarkers, len(plan.Markers))
	}
}

func TestPlanMarkers_Properties(t *testing.T) {
	cfg := DefaultConfig()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("spacing stays in band unless a table or range boundary stopped the search", prop.ForAll(
		func(totalRange, zoom float64, u Unit) bool {
			ppu := cfg.BaseScale / zoom
			plan := PlanMarkers(totalRange, ppu, u, cfg)
			steps := NiceSteps(u)

			inBand := plan.Spacing >= 75 && plan.Spacing <= 155
			atBoundary := plan.Interval == steps[0] ||
				plan.Interval >= steps[len(steps)-1] ||
				plan.Interval >= totalRange
			if !inBand && !atBoundary {
				t.Logf("range=%v ppu=%v unit=%s interval=%v spacing=%v", totalRange, ppu, u, plan.Interval, plan.Spacing)
				return false
			}
			return true
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(10, 1000),
		gen.OneConstOf(UnitMillis, UnitSeconds, UnitMinutes, UnitHours),
	))

	properties.Property("never more than MaxMarkers markers", prop.ForAll(
		func(totalRange, ppu float64, u Unit) bool {
			return len(PlanMarkers(totalRange, ppu, u, cfg).Markers) <= cfg.MaxMarkers
		},
		gen.Float64Range(0, 1e9),
		gen.Float64Range(0.001, 100),
		gen.OneConstOf(UnitMillis, UnitSeconds, UnitMinutes, UnitHours),
	))

	properties.Property("markers are evenly spaced from zero", prop.ForAll(
		func(totalRange, zoom float64) bool {
			ppu := cfg.BaseScale / zoom
			plan := PlanMarkers(totalRange, ppu, UnitSeconds, cfg)
			for i, m := range plan.Markers {
				want := float64(i) * plan.Interval * ppu
				if math.Abs(m.OffsetPx-want) > 1e-6 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 1e5),
		gen.Float64Range(10, 1000),
	))

	properties.TestingRun(t)
}
