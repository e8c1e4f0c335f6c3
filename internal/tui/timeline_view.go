package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/subnetlabs/console/internal/models"
	"github.com/subnetlabs/console/internal/timeline"
)

const (
	defaultCellWidthPx = 10
	timelineLabelCols  = 22
	minChartCols       = 10
	zoomTrackCols      = 30

	// zoomRowOffset is the line of the zoom control inside the rendered
	// timeline block.
	zoomRowOffset = 1
)

const (
	glyphSolid   = '█'
	glyphRunning = '▓'
	glyphHatched = '░'
	glyphNow     = '┆'
	glyphAxis    = '─'
	glyphTick    = '┬'
	glyphTrack   = '━'
	glyphKnob    = '●'
)

var nowStyle = lipgloss.NewStyle().Foreground(warningColor)

// TimelineView projects a timeline layout onto terminal cells. One terminal
// column stands for cellPx layout pixels; each event gets one text row.
type TimelineView struct {
	cfg    timeline.Config
	ctrl   timeline.ZoomController
	zoom   timeline.ZoomState
	unit   timeline.Unit
	pan    timeline.Pan
	cellPx float64
	events []models.TimelineEvent
}

// NewTimelineView creates a timeline view at the configured default zoom.
func NewTimelineView(cfg timeline.Config, cellPx float64) *TimelineView {
	cfg = cfg.Sanitize()
	if !(cellPx > 0) || math.IsInf(cellPx, 0) {
		cellPx = defaultCellWidthPx
	}
	ctrl := timeline.NewZoomController(cfg)
	return &TimelineView{
		cfg:    cfg,
		ctrl:   ctrl,
		zoom:   ctrl.Initial(),
		unit:   cfg.DefaultUnit,
		cellPx: cellPx,
	}
}

// SetEvents replaces the rendered events.
func (v *TimelineView) SetEvents(events []models.TimelineEvent) {
	v.events = events
}

// Events returns the rendered events.
func (v *TimelineView) Events() []models.TimelineEvent {
	return v.events
}

// Reset returns zoom, pan and unit to their defaults. A drag in progress is
// cancelled and the returned command releases pointer capture.
func (v *TimelineView) Reset() tea.Cmd {
	var cmd tea.Cmd
	if v.Dragging() {
		cmd = v.Pointer(timeline.PointerCancel, 0)
	}
	v.zoom = v.ctrl.Initial()
	v.unit = v.cfg.DefaultUnit
	v.pan = timeline.Pan{}
	v.events = nil
	return cmd
}

// Unit is the current display unit.
func (v *TimelineView) Unit() timeline.Unit {
	return v.unit
}

// Zoom is the current zoom level.
func (v *TimelineView) Zoom() float64 {
	return v.zoom.Level
}

// Dragging reports whether the zoom control holds pointer capture.
func (v *TimelineView) Dragging() bool {
	return v.zoom.Drag.Phase == timeline.DragActive
}

// CycleUnit switches to the next display unit.
func (v *TimelineView) CycleUnit() {
	v.unit = v.unit.Next()
	v.pan = timeline.Pan{}
}

// SetUnit switches to unit u; unknown units are ignored.
func (v *TimelineView) SetUnit(u timeline.Unit) {
	if u.Valid() {
		v.unit = u
		v.pan = timeline.Pan{}
	}
}

// SetZoom moves the zoom level to level, clamped and snapped.
func (v *TimelineView) SetZoom(level float64) {
	v.Nudge(level - v.zoom.Level)
}

// Nudge changes the zoom level from the keyboard or mouse wheel.
func (v *TimelineView) Nudge(delta float64) {
	v.zoom = v.ctrl.Nudge(v.zoom, delta)
}

// Pointer feeds a pointer sample at terminal column col to the zoom
// controller and translates its effect into a mouse mode command.
func (v *TimelineView) Pointer(kind timeline.PointerKind, col int) tea.Cmd {
	var eff timeline.Effect
	v.zoom, eff = v.ctrl.Update(v.zoom, timeline.PointerEvent{Kind: kind, X: float64(col) * v.cellPx})
	switch eff {
	case timeline.EffectCapture:
		return tea.EnableMouseAllMotion
	case timeline.EffectRelease:
		return tea.EnableMouseCellMotion
	}
	return nil
}

// PanBy scrolls by a quarter of the chart width in the given direction.
func (v *TimelineView) PanBy(dir, width int, now time.Time) {
	chart := chartCols(width)
	l := v.Layout(now)
	step := float64(chart/4) * v.cellPx
	v.pan = v.pan.By(float64(dir)*step, l.WidthPx, float64(chart)*v.cellPx)
}

// PanOffset is the horizontal scroll in layout pixels.
func (v *TimelineView) PanOffset() float64 {
	return v.pan.OffsetPx
}

// Layout computes the pixel geometry for the current state.
func (v *TimelineView) Layout(now time.Time) timeline.Layout {
	return timeline.Build(v.events, timeline.Options{
		Unit:            v.unit,
		PixelsPerUnit:   v.ctrl.PixelsPerUnit(v.zoom),
		ContainerHeight: timeline.ContentHeight(len(v.events), v.cfg),
		Now:             now,
	}, v.cfg)
}

func chartCols(width int) int {
	cols := width - timelineLabelCols - 1
	if cols < minChartCols {
		cols = minChartCols
	}
	return cols
}

// View renders the timeline block: a header, the zoom control, the axis and
// one row per event.
func (v *TimelineView) View(now time.Time, width int) string {
	chart := chartCols(width)
	l := v.Layout(now)
	v.pan = v.pan.By(0, l.WidthPx, float64(chart)*v.cellPx)

	var b strings.Builder
	b.WriteString(headerStyle.Render("Timeline") + "  " +
		mutedStyle.Render(fmt.Sprintf("unit: %s  zoom: %.0f  ppu: %s", v.unit, v.zoom.Level, trimFloat(l.PixelsPerUnit))) + "\n")
	b.WriteString(v.zoomControl() + "\n")

	if len(v.events) == 0 {
		b.WriteString(mutedStyle.Render("  no events found") + "\n")
		return b.String()
	}

	pad := strings.Repeat(" ", timelineLabelCols)
	labels, axis := v.axisRows(l, chart)
	b.WriteString(pad + " " + mutedStyle.Render(labels) + "\n")
	b.WriteString(pad + " " + axis + "\n")

	nowCol := -1
	if l.ShowNow {
		nowCol = v.col(l.NowPx)
	}
	for _, bar := range l.Bars {
		b.WriteString(v.label(bar.Event) + " " + v.barRow(bar, chart, nowCol) + "\n")
	}

	footer := fmt.Sprintf("origin %s  extent %s", formatOrigin(l), l.Unit.Format(roundTo(l.Extent, 3)))
	if l.FallbackOrigin {
		footer += "  (nothing has started yet)"
	}
	b.WriteString(mutedStyle.Render(footer) + "\n")
	return b.String()
}

func (v *TimelineView) zoomControl() string {
	span := v.cfg.MaxZoom - v.cfg.MinZoom
	frac := 0.0
	if span > 0 {
		frac = (v.zoom.Level - v.cfg.MinZoom) / span
	}
	knob := int(math.Round(frac * float64(zoomTrackCols-1)))
	if knob < 0 {
		knob = 0
	}
	if knob > zoomTrackCols-1 {
		knob = zoomTrackCols - 1
	}

	track := []rune(strings.Repeat(string(glyphTrack), zoomTrackCols))
	track[knob] = glyphKnob
	style := mutedStyle
	if v.Dragging() {
		style = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	}
	return fmt.Sprintf("%-*s %s %s", timelineLabelCols, "  zoom (drag)", style.Render(string(track)), mutedStyle.Render(fmt.Sprintf("%.0f", v.zoom.Level)))
}

// col maps a layout pixel onto a chart column, honoring the pan offset.
func (v *TimelineView) col(px float64) int {
	return int(math.Floor((px - v.pan.OffsetPx) / v.cellPx))
}

func (v *TimelineView) axisRows(l timeline.Layout, chart int) (string, string) {
	labels := []rune(strings.Repeat(" ", chart))
	axis := []rune(strings.Repeat(string(glyphAxis), chart))
	next := 0
	for _, m := range l.Plan.Markers {
		c := v.col(m.OffsetPx)
		if c < 0 || c >= chart {
			continue
		}
		axis[c] = glyphTick
		text := []rune(m.Label)
		if c < next || c+len(text) > chart {
			continue
		}
		copy(labels[c:], text)
		next = c + len(text) + 1
	}

	out := string(axis)
	if l.ShowNow {
		if c := v.col(l.NowPx); c >= 0 && c < chart {
			out = string(axis[:c]) + nowStyle.Render(string(glyphNow)) + string(axis[c+1:])
		}
	}
	return string(labels), out
}

func (v *TimelineView) label(ev models.TimelineEvent) string {
	name := []rune(ev.Name)
	limit := timelineLabelCols - 4
	if len(name) > limit {
		name = append(name[:limit-1], '…')
	}
	text := statusIcon(ev.Status) + " " + string(name)
	return eventStyle(ev.Status).Width(timelineLabelCols).Render(" " + text)
}

func (v *TimelineView) barRow(bar timeline.Bar, chart, nowCol int) string {
	start := v.col(bar.LeftPx)
	end := int(math.Ceil((bar.LeftPx + bar.WidthPx - v.pan.OffsetPx) / v.cellPx))
	if end <= start {
		end = start + 1
	}

	glyph := glyphSolid
	switch {
	case bar.Hatched:
		glyph = glyphHatched
	case bar.Event.Status == models.EventRunning:
		glyph = glyphRunning
	}

	var b strings.Builder
	st := eventStyle(bar.Event.Status)
	run := 0
	flush := func() {
		if run > 0 {
			b.WriteString(st.Render(strings.Repeat(string(glyph), run)))
			run = 0
		}
	}
	for c := 0; c < chart; c++ {
		if c >= start && c < end {
			run++
			continue
		}
		flush()
		if c == nowCol {
			b.WriteString(nowStyle.Render(string(glyphNow)))
		} else {
			b.WriteByte(' ')
		}
	}
	flush()

	// Mark bars scrolled out of view.
	row := b.String()
	if end <= 0 {
		row = st.Render("‹") + strings.TrimPrefix(row, " ")
	}
	return row
}

func formatOrigin(l timeline.Layout) string {
	if l.Origin == 0 {
		return "-"
	}
	return time.UnixMilli(l.Origin).UTC().Format("15:04:05.000")
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", roundTo(v, 3))
}
