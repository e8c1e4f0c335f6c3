package timeline

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/subnetlabs/console/internal/models"
)

var renderTime = time.UnixMilli(10_000)

func TestNormalize_TwoSequentialEvents(t *testing.T) {
	events := []models.TimelineEvent{
		{ID: "a", Name: "A", StartTime: 1000, EndTime: 1125, Status: models.EventSuccess},
		{ID: "b", Name: "B", StartTime: 1135, EndTime: 1280, Status: models.EventSuccess},
	}

	n := Normalize(events, renderTime)

	if n.Origin != 1000 {
		t.Errorf("Expected origin 1000, got %d", n.Origin)
	}
	if n.FallbackOrigin {
		t.Error("Origin should come from the events")
	}
	want := [][2]float64{{0, 125}, {135, 280}}
	for i, w := range want {
		if n.Spans[i].RelStart != w[0] || n.Spans[i].RelEnd != w[1] {
			t.Errorf("Span %d: expected %v, got [%v %v]", i, w, n.Spans[i].RelStart, n.Spans[i].RelEnd)
		}
	}
	if n.MaxRelative != 280 {
		t.Errorf("Expected max relative 280, got %v", n.MaxRelative)
	}
}

func TestNormalize_PendingIgnoredForOrigin(t *testing.T) {
	events := []models.TimelineEvent{
		{ID: "c", Status: models.EventPending},
		{ID: "a", StartTime: 5000, EndTime: 6000, Status: models.EventSuccess},
	}

	n := Normalize(events, renderTime)

	if n.Origin != 5000 {
		t.Errorf("Expected origin 5000, got %d", n.Origin)
	}
	if !n.HasPending {
		t.Error("Expected HasPending")
	}
	if !n.Spans[0].Pending || n.Spans[0].RelStart != 0 || n.Spans[0].RelEnd != 0 {
		t.Errorf("Pending span should be zeroed and flagged, got %+v", n.Spans[0])
	}
}

func TestNormalize_AllPendingFallsBackToNow(t *testing.T) {
	events := []models.TimelineEvent{
		{ID: "a", Status: models.EventPending},
		{ID: "b", Status: models.EventPending},
	}

	n := Normalize(events, renderTime)

	if !n.FallbackOrigin {
		t.Error("Expected fallback origin")
	}
	if n.Origin != renderTime.UnixMilli() {
		t.Errorf("Expected origin at render time, got %d", n.Origin)
	}
	if n.MaxRelative != 0 {
		t.Errorf("Expected max relative 0, got %v", n.MaxRelative)
	}
}

func TestNormalize_RunningWithoutEndUsesNow(t *testing.T) {
	events := []models.TimelineEvent{
		{ID: "a", StartTime: 4000, Status: models.EventRunning},
	}

	n := Normalize(events, renderTime)

	if n.Spans[0].RelEnd != 6000 {
		t.Errorf("Expected running span to reach now (6000), got %v", n.Spans[0].RelEnd)
	}
}

func TestNormalize_EndBeforeStartCollapses(t *testing.T) {
	events := []models.TimelineEvent{
		{ID: "a", StartTime: 4000, EndTime: 3000, Status: models.EventError},
	}

	n := Normalize(events, renderTime)

	if n.Spans[0].RelEnd != n.Spans[0].RelStart {
		t.Errorf("Expected zero-length span, got %+v", n.Spans[0])
	}
}

func TestNormalize_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("relative starts are offsets from the minimum non-pending start", prop.ForAll(
		func(starts []int64, durations []int64) bool {
			events := make([]models.TimelineEvent, 0, len(starts))
			minStart := int64(math.MaxInt64)
			for i, s := range starts {
				d := int64(0)
				if i < len(durations) {
					d = durations[i]
				}
				status := models.EventSuccess
				if i%4 == 3 {
					events = append(events, models.TimelineEvent{ID: "p", Status: models.EventPending})
					continue
				}
				if s < minStart {
					minStart = s
				}
				events = append(events, models.TimelineEvent{ID: "e", StartTime: s, EndTime: s + d, Status: status})
			}

			n := Normalize(events, renderTime)
			for _, span := range n.Spans {
				if span.Pending {
					if span.RelStart != 0 || span.RelEnd != 0 {
						return false
					}
					continue
				}
				if span.RelStart != float64(span.Event.StartTime-minStart) {
					return false
				}
				if span.RelStart < 0 || span.RelEnd < span.RelStart {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(1_600_000_000_000, 1_700_000_000_000)),
		gen.SliceOf(gen.Int64Range(0, 3_600_000)),
	))

	properties.Property("normalization is deterministic", prop.ForAll(
		func(starts []int64) bool {
			events := make([]models.TimelineEvent, len(starts))
			for i, s := range starts {
				events[i] = models.TimelineEvent{StartTime: s, EndTime: s + 10, Status: models.EventSuccess}
			}
			a := Normalize(events, renderTime)
			b := Normalize(events, renderTime)
			if a.Origin != b.Origin || a.MaxRelative != b.MaxRelative || len(a.Spans) != len(b.Spans) {
				return false
			}
			for i := range a.Spans {
				if a.Spans[i] != b.Spans[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 1_000_000)),
	))

	properties.TestingRun(t)
}
