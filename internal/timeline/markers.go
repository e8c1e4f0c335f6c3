package timeline

import (
	"math"
	"sort"
)

// Marker is a grid line on the time axis.
type Marker struct {
	Value    float64 // position in display units
	OffsetPx float64
	Label    string
}

// MarkerPlan is the chosen tick interval and the markers it produces.
type MarkerPlan struct {
	Interval float64
	Spacing  float64 // Interval * pixelsPerUnit
	Markers  []Marker
}

// PlanMarkers picks a tick interval from the unit's step table so that
// adjacent markers sit between cfg.MarkerMinSpacing and cfg.MarkerMaxSpacing
// pixels apart, then lays out at most cfg.MaxMarkers markers over totalRange.
func PlanMarkers(totalRange, pixelsPerUnit float64, unit Unit, cfg Config) MarkerPlan {
	steps := NiceSteps(unit)
	smallest := steps[0]

	if !finite(pixelsPerUnit) || pixelsPerUnit <= 0 {
		pixelsPerUnit = cfg.BaseScale / cfg.DefaultZoom
		if !finite(pixelsPerUnit) || pixelsPerUnit <= 0 {
			pixelsPerUnit = 1
		}
	}
	if !finite(totalRange) || totalRange < 0 {
		totalRange = 0
	}

	interval := smallest
	if totalRange > 0 {
		interval = chooseInterval(totalRange, pixelsPerUnit, steps, cfg)
	}

	plan := MarkerPlan{Interval: interval, Spacing: interval * pixelsPerUnit}

	count := int(math.Floor(totalRange/interval)) + 1
	if count > cfg.MaxMarkers {
		count = cfg.MaxMarkers
	}
	if count < 1 {
		count = 1
	}
	plan.Markers = make([]Marker, 0, count)
	for i := 0; i < count; i++ {
		v := float64(i) * interval
		plan.Markers = append(plan.Markers, Marker{
			Value:    v,
			OffsetPx: v * pixelsPerUnit,
			Label:    unit.Format(roundLabel(v)),
		})
	}
	return plan
}

func chooseInterval(totalRange, ppu float64, steps []float64, cfg Config) float64 {
	last := len(steps) - 1
	interval := math.Max(cfg.MarkerInitial, totalRange/10)

	idx := sort.SearchFloat64s(steps, interval)
	if idx <= last {
		interval = steps[idx]
	} else {
		idx = last
	}

	for interval*ppu < cfg.MarkerMinSpacing && interval < totalRange {
		if interval < steps[last] {
			idx++
			interval = steps[idx]
		} else {
			interval += steps[last]
		}
	}

	for interval*ppu > cfg.MarkerMaxSpacing && interval > steps[0] {
		if interval > steps[last] {
			interval -= steps[last]
			if interval < steps[last] {
				interval = steps[last]
			}
			idx = last
			continue
		}
		idx--
		interval = steps[idx]
	}
	return interval
}

// roundLabel trims float noise from products like 3*0.1.
func roundLabel(v float64) float64 {
	return math.Round(v*1000) / 1000
}
