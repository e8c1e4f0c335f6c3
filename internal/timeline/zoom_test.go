package timeline

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestZoomController_DragLifecycle(t *testing.T) {
	c := NewZoomController(DefaultConfig())
	s := c.Initial()

	if s.Level != 100 {
		t.Fatalf("Expected initial level 100, got %v", s.Level)
	}

	s, eff := c.Update(s, PointerEvent{Kind: PointerDown, X: 200})
	if eff != EffectCapture {
		t.Errorf("Expected capture on pointer down, got %v", eff)
	}
	if s.Drag.Phase != DragActive {
		t.Fatal("Expected drag to be active")
	}

	// 30px to the right at divisor 3 is +10.
	s, eff = c.Update(s, PointerEvent{Kind: PointerMove, X: 230})
	if eff != EffectNone {
		t.Errorf("Expected no effect on move, got %v", eff)
	}
	if s.Level != 110 {
		t.Errorf("Expected level 110, got %v", s.Level)
	}

	s, _ = c.Update(s, PointerEvent{Kind: PointerMove, X: 214})
	if math.Abs(s.Level-104.6666666) > 1e-4 {
		t.Errorf("Expected unsnapped level during drag, got %v", s.Level)
	}

	s, eff = c.Update(s, PointerEvent{Kind: PointerUp, X: 214})
	if eff != EffectRelease {
		t.Errorf("Expected release on pointer up, got %v", eff)
	}
	if s.Level != 100 {
		t.Errorf("Expected snapped level 100, got %v", s.Level)
	}
	if s.Drag.Phase != DragIdle {
		t.Error("Expected drag to be idle after release")
	}
}

func TestZoomController_MoveWithoutDragIgnored(t *testing.T) {
	c := NewZoomController(DefaultConfig())
	s := c.Initial()

	next, eff := c.Update(s, PointerEvent{Kind: PointerMove, X: 900})
	if next != s || eff != EffectNone {
		t.Errorf("Move outside a drag should be a no-op, got %+v %v", next, eff)
	}
	next, eff = c.Update(s, PointerEvent{Kind: PointerUp})
	if next != s || eff != EffectNone {
		t.Errorf("Up outside a drag should be a no-op, got %+v %v", next, eff)
	}
}

func TestZoomController_CancelReleases(t *testing.T) {
	c := NewZoomController(DefaultConfig())
	s, _ := c.Update(c.Initial(), PointerEvent{Kind: PointerDown, X: 0})
	s, _ = c.Update(s, PointerEvent{Kind: PointerMove, X: -5000})

	s, eff := c.Update(s, PointerEvent{Kind: PointerCancel})
	if eff != EffectRelease {
		t.Errorf("Expected release on cancel, got %v", eff)
	}
	if s.Level != 10 {
		t.Errorf("Expected clamp to min 10, got %v", s.Level)
	}
}

func TestZoomController_Nudge(t *testing.T) {
	c := NewZoomController(DefaultConfig())
	s := c.Initial()

	s = c.Nudge(s, 10_000)
	if s.Level != 1000 {
		t.Errorf("Expected clamp to max 1000, got %v", s.Level)
	}
	s = c.Nudge(s, -13)
	if s.Level != 990 {
		t.Errorf("Expected snapped 990, got %v", s.Level)
	}

	dragging, _ := c.Update(s, PointerEvent{Kind: PointerDown, X: 0})
	if got := c.Nudge(dragging, 50); got.Level != dragging.Level {
		t.Error("Nudge should be ignored during a drag")
	}
}

func TestZoomController_PixelsPerUnit(t *testing.T) {
	c := NewZoomController(DefaultConfig())
	if got := c.PixelsPerUnit(ZoomState{Level: 100}); got != 5 {
		t.Errorf("Expected 5px per unit at level 100, got %v", got)
	}
	if got := c.PixelsPerUnit(ZoomState{Level: 10}); got != 50 {
		t.Errorf("Expected 50px per unit at level 10, got %v", got)
	}
	if got := c.PixelsPerUnit(ZoomState{Level: math.NaN()}); got != 5 {
		t.Errorf("Expected default scale for a broken level, got %v", got)
	}
}

func TestPanBy(t *testing.T) {
	p := Pan{}.By(50, 1000, 300)
	if p.OffsetPx != 50 {
		t.Errorf("Expected offset 50, got %v", p.OffsetPx)
	}
	if p = p.By(-500, 1000, 300); p.OffsetPx != 0 {
		t.Errorf("Expected clamp to 0, got %v", p.OffsetPx)
	}
	if p = p.By(5000, 1000, 300); p.OffsetPx != 700 {
		t.Errorf("Expected clamp to 700, got %v", p.OffsetPx)
	}
	if p = p.By(10, 200, 300); p.OffsetPx != 0 {
		t.Errorf("Content narrower than the viewport should not pan, got %v", p.OffsetPx)
	}
}

func TestZoomController_Properties(t *testing.T) {
	c := NewZoomController(DefaultConfig())
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("level stays within bounds for any drag", prop.ForAll(
		func(startX float64, moves []float64) bool {
			s, _ := c.Update(c.Initial(), PointerEvent{Kind: PointerDown, X: startX})
			for _, x := range moves {
				s, _ = c.Update(s, PointerEvent{Kind: PointerMove, X: x})
				if s.Level < 10 || s.Level > 1000 {
					return false
				}
			}
			s, _ = c.Update(s, PointerEvent{Kind: PointerUp})
			return s.Level >= 10 && s.Level <= 1000
		},
		gen.Float64Range(-5000, 5000),
		gen.SliceOf(gen.Float64Range(-1e5, 1e5)),
	))

	properties.Property("released level is a multiple of the snap step", prop.ForAll(
		func(moves []float64) bool {
			s, _ := c.Update(c.Initial(), PointerEvent{Kind: PointerDown, X: 0})
			for _, x := range moves {
				s, _ = c.Update(s, PointerEvent{Kind: PointerMove, X: x})
			}
			s, eff := c.Update(s, PointerEvent{Kind: PointerUp})
			return eff == EffectRelease && math.Mod(s.Level, 10) == 0
		},
		gen.SliceOf(gen.Float64Range(-1e4, 1e4)),
	))

	properties.Property("drag level depends only on the latest pointer position", prop.ForAll(
		func(moves []float64, last float64) bool {
			s, _ := c.Update(c.Initial(), PointerEvent{Kind: PointerDown, X: 0})
			for _, x := range moves {
				s, _ = c.Update(s, PointerEvent{Kind: PointerMove, X: x})
			}
			s, _ = c.Update(s, PointerEvent{Kind: PointerMove, X: last})
			want := clamp(100+last/3, 10, 1000)
			return math.Abs(s.Level-want) < 1e-9
		},
		gen.SliceOf(gen.Float64Range(-1e4, 1e4)),
		gen.Float64Range(-1e4, 1e4),
	))

	properties.TestingRun(t)
}
