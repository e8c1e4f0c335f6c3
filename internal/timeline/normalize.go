package timeline

import (
	"time"

	"github.com/subnetlabs/console/internal/models"
)

// Span is an event placed in the relative coordinate space.
// RelStart and RelEnd are milliseconds from the origin.
type Span struct {
	Event    models.TimelineEvent
	RelStart float64
	RelEnd   float64
	Pending  bool
}

// Normalized is the result of anchoring a set of events at a shared origin.
type Normalized struct {
	// Origin is the earliest start among non-pending events, in epoch ms.
	// With no non-pending events it is the render time.
	Origin int64
	// FallbackOrigin is set when Origin came from the render time.
	FallbackOrigin bool
	Spans          []Span
	// MaxRelative is the largest RelEnd over non-pending events (ms).
	MaxRelative float64
	HasPending  bool
}

// Normalize converts absolute event times into offsets from the earliest
// non-pending start. Running events without an end are treated as ending
// at now; an end before the start collapses to a zero-length span.
func Normalize(events []models.TimelineEvent, now time.Time) Normalized {
	nowMs := now.UnixMilli()

	var (
		origin int64
		found  bool
	)
	for _, ev := range events {
		if ev.Status == models.EventPending {
			continue
		}
		if !found || ev.StartTime < origin {
			origin = ev.StartTime
			found = true
		}
	}

	n := Normalized{Origin: origin, Spans: make([]Span, 0, len(events))}
	if !found {
		n.Origin = nowMs
		n.FallbackOrigin = true
	}

	for _, ev := range events {
		if ev.Status == models.EventPending {
			n.HasPending = true
			n.Spans = append(n.Spans, Span{Event: ev, Pending: true})
			continue
		}
		end := ev.EndTime
		if ev.Status == models.EventRunning && end < ev.StartTime {
			end = nowMs
		}
		if end < ev.StartTime {
			end = ev.StartTime
		}
		s := Span{
			Event:    ev,
			RelStart: float64(ev.StartTime - n.Origin),
			RelEnd:   float64(end - n.Origin),
		}
		if s.RelEnd > n.MaxRelative {
			n.MaxRelative = s.RelEnd
		}
		n.Spans = append(n.Spans, s)
	}
	return n
}

// CompletedMax is the right edge of the non-pending events (ms).
func (n Normalized) CompletedMax() float64 {
	return n.MaxRelative
}
