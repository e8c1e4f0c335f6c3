package timeline

import (
	"time"

	"github.com/subnetlabs/console/internal/models"
)

// Bar is an event positioned in pixel space.
type Bar struct {
	Event    models.TimelineEvent
	Row      int
	LeftPx   float64
	WidthPx  float64
	TopPx    float64
	HeightPx float64
	// Hatched marks the placeholder bar of a pending event.
	Hatched bool
	// Start and End are the span in display units (zero for pending).
	Start float64
	End   float64
}

// Options are the per-render inputs of Build.
type Options struct {
	Unit            Unit
	PixelsPerUnit   float64
	ContainerHeight float64
	Now             time.Time
}

// Layout is the full pixel geometry of one timeline render.
type Layout struct {
	Unit          Unit
	PixelsPerUnit float64
	Origin        int64
	// FallbackOrigin is set when every event is pending.
	FallbackOrigin bool
	// MaxRelative and CompletedMax are in display units.
	MaxRelative  float64
	CompletedMax float64
	// Extent is the drawn range in display units, including the pending slot.
	Extent  float64
	WidthPx float64
	Bars    []Bar
	Plan    MarkerPlan
	// NowPx is valid only when ShowNow is set.
	ShowNow bool
	NowPx   float64
}

// Build lays out events for one render pass.
func Build(events []models.TimelineEvent, opts Options, cfg Config) Layout {
	cfg = cfg.Sanitize()
	unit := opts.Unit
	if !unit.Valid() {
		unit = cfg.DefaultUnit
	}
	ppu := opts.PixelsPerUnit
	if !finite(ppu) || ppu <= 0 {
		ppu = cfg.BaseScale / cfg.DefaultZoom
	}

	norm := Normalize(events, opts.Now)
	l := Layout{
		Unit:           unit,
		PixelsPerUnit:  ppu,
		Origin:         norm.Origin,
		FallbackOrigin: norm.FallbackOrigin,
		MaxRelative:    MillisToUnit(unit, norm.MaxRelative),
		CompletedMax:   MillisToUnit(unit, norm.CompletedMax()),
		Bars:           make([]Bar, 0, len(norm.Spans)),
	}

	l.Extent = l.MaxRelative
	if norm.HasPending {
		l.Extent = l.CompletedMax + cfg.PendingPadding + cfg.PendingWidth
	}

	tops := rowTops(len(norm.Spans), opts.ContainerHeight, cfg)
	for i, span := range norm.Spans {
		b := Bar{
			Event:    span.Event,
			Row:      i,
			TopPx:    tops[i],
			HeightPx: cfg.RowHeight,
		}
		if span.Pending {
			b.Hatched = true
			b.LeftPx = (l.CompletedMax + cfg.PendingPadding) * ppu
			b.WidthPx = cfg.PendingWidth * ppu
		} else {
			b.Start = MillisToUnit(unit, span.RelStart)
			b.End = MillisToUnit(unit, span.RelEnd)
			b.LeftPx = b.Start * ppu
			b.WidthPx = (b.End - b.Start) * ppu
			if b.WidthPx < cfg.MinBarWidth {
				b.WidthPx = cfg.MinBarWidth
			}
		}
		b.LeftPx = orZero(b.LeftPx)
		b.WidthPx = orZero(b.WidthPx)
		l.Bars = append(l.Bars, b)
	}

	l.Plan = PlanMarkers(l.Extent, ppu, unit, cfg)
	l.WidthPx = orZero(l.Extent * ppu)
	for _, b := range l.Bars {
		if right := b.LeftPx + b.WidthPx; right > l.WidthPx {
			l.WidthPx = right
		}
	}

	if !norm.FallbackOrigin {
		nowRel := MillisToUnit(unit, float64(opts.Now.UnixMilli()-norm.Origin))
		if nowRel >= 0 && nowRel <= l.MaxRelative {
			l.ShowNow = true
			l.NowPx = orZero(nowRel * ppu)
		}
	}
	return l
}

// rowTops distributes n rows of fixed height and gap, centered vertically.
// When the rows do not fit they start at the top.
func rowTops(n int, height float64, cfg Config) []float64 {
	tops := make([]float64, n)
	if n == 0 {
		return tops
	}
	total := float64(n)*cfg.RowHeight + float64(n-1)*cfg.RowGap
	start := 0.0
	if finite(height) && height > total {
		start = (height - total) / 2
	}
	for i := range tops {
		tops[i] = start + float64(i)*(cfg.RowHeight+cfg.RowGap)
	}
	return tops
}

// ContentHeight is the height n rows need without centering.
func ContentHeight(n int, cfg Config) float64 {
	if n <= 0 {
		return 0
	}
	cfg = cfg.Sanitize()
	return float64(n)*cfg.RowHeight + float64(n-1)*cfg.RowGap
}

func orZero(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}
