package timeline

import "math"

// DragPhase is the state of the zoom control's drag gesture.
type DragPhase int

const (
	DragIdle DragPhase = iota
	DragActive
)

// Drag is the gesture state. StartX and StartZoom are only meaningful while
// Phase is DragActive.
type Drag struct {
	Phase     DragPhase
	StartX    float64
	StartZoom float64
}

// ZoomState is the transient zoom state owned by a timeline view.
type ZoomState struct {
	Level float64
	Drag  Drag
}

// PointerKind enumerates the pointer events the controller understands.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	// PointerCancel ends a drag that was interrupted, e.g. the view closed.
	PointerCancel
)

// PointerEvent is a pointer sample in pixels.
type PointerEvent struct {
	Kind PointerKind
	X    float64
}

// Effect tells the host what to do with global pointer capture after an update.
type Effect int

const (
	EffectNone Effect = iota
	// EffectCapture: start routing every pointer move to the controller.
	EffectCapture
	// EffectRelease: stop routing pointer moves.
	EffectRelease
)

// ZoomController applies pointer events to a ZoomState.
type ZoomController struct {
	cfg Config
}

// NewZoomController returns a controller using the given configuration.
func NewZoomController(cfg Config) ZoomController {
	return ZoomController{cfg: cfg.Sanitize()}
}

// Initial returns the starting state.
func (c ZoomController) Initial() ZoomState {
	return ZoomState{Level: c.cfg.DefaultZoom}
}

// Update is the only way a ZoomState changes in response to pointer input.
// Capture is requested on entering DragActive and released on leaving it.
func (c ZoomController) Update(s ZoomState, ev PointerEvent) (ZoomState, Effect) {
	switch ev.Kind {
	case PointerDown:
		if s.Drag.Phase == DragActive {
			return s, EffectNone
		}
		s.Drag = Drag{Phase: DragActive, StartX: ev.X, StartZoom: s.Level}
		return s, EffectCapture

	case PointerMove:
		if s.Drag.Phase != DragActive {
			return s, EffectNone
		}
		delta := (ev.X - s.Drag.StartX) / c.cfg.DragDivisor
		s.Level = c.clamp(s.Drag.StartZoom + delta)
		return s, EffectNone

	case PointerUp, PointerCancel:
		if s.Drag.Phase != DragActive {
			return s, EffectNone
		}
		s.Level = c.snap(s.Level)
		s.Drag = Drag{}
		return s, EffectRelease
	}
	return s, EffectNone
}

// Nudge changes the level by delta outside of a drag, clamped and snapped.
func (c ZoomController) Nudge(s ZoomState, delta float64) ZoomState {
	if s.Drag.Phase == DragActive {
		return s
	}
	s.Level = c.snap(c.clamp(s.Level + delta))
	return s
}

// PixelsPerUnit converts a level into horizontal scale. A smaller level
// means more pixels per unit, i.e. zoomed in.
func (c ZoomController) PixelsPerUnit(s ZoomState) float64 {
	level := s.Level
	if !finite(level) || level <= 0 {
		level = c.cfg.DefaultZoom
	}
	return c.cfg.BaseScale / level
}

func (c ZoomController) clamp(v float64) float64 {
	if !finite(v) {
		return c.cfg.DefaultZoom
	}
	return clamp(v, c.cfg.MinZoom, c.cfg.MaxZoom)
}

// snap rounds to the nearest SnapStep multiple that stays inside the bounds.
func (c ZoomController) snap(v float64) float64 {
	step := c.cfg.SnapStep
	snapped := math.Round(v/step) * step
	if snapped < c.cfg.MinZoom {
		snapped = math.Ceil(c.cfg.MinZoom/step) * step
	}
	if snapped > c.cfg.MaxZoom {
		snapped = math.Floor(c.cfg.MaxZoom/step) * step
	}
	return snapped
}

// Pan is a horizontal scroll offset in pixels.
type Pan struct {
	OffsetPx float64
}

// By moves the pan by delta, keeping the viewport inside [0, contentPx].
func (p Pan) By(delta, contentPx, viewportPx float64) Pan {
	maxOffset := contentPx - viewportPx
	if !finite(maxOffset) || maxOffset < 0 {
		maxOffset = 0
	}
	p.OffsetPx = clamp(p.OffsetPx+delta, 0, maxOffset)
	if !finite(p.OffsetPx) {
		p.OffsetPx = 0
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
