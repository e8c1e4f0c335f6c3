package timeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/subnetlabs/console/internal/models"
)

func TestWriteSVG(t *testing.T) {
	l := Build(sequentialWithPending(), Options{Unit: UnitMillis, PixelsPerUnit: 5, Now: renderTime}, DefaultConfig())

	var buf bytes.Buffer
	if err := WriteSVG(&buf, l, SVGOptions{Title: "wf-1"}); err != nil {
		t.Fatalf("WriteSVG failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg"`,
		`id="pending-hatch"`,
		`class="bar success"`,
		`class="bar error"`,
		`class="bar pending"`,
		`fill="url(#pending-hatch)"`,
		`<title>wf-1</title>`,
		"0ms",
		"</svg>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
	if strings.Contains(out, "NaN") {
		t.Error("Output contains NaN")
	}
	if got := strings.Count(out, `class="grid"`); got != len(l.Plan.Markers) {
		t.Errorf("Expected %d grid lines, got %d", len(l.Plan.Markers), got)
	}
}

func TestWriteSVG_EscapesNames(t *testing.T) {
	events := []models.TimelineEvent{
		{ID: "a", Name: `<charge & "notify">`, StartTime: 0, EndTime: 10, Status: models.EventSuccess},
	}
	l := Build(events, Options{Unit: UnitMillis, PixelsPerUnit: 5, Now: renderTime}, DefaultConfig())

	var buf bytes.Buffer
	if err := WriteSVG(&buf, l, DefaultSVGOptions()); err != nil {
		t.Fatalf("WriteSVG failed: %v", err)
	}
	if strings.Contains(buf.String(), "<charge") {
		t.Error("Event name was not escaped")
	}
	if !strings.Contains(buf.String(), "&lt;charge &amp; &quot;notify&quot;&gt;") {
		t.Error("Expected escaped event name in output")
	}
}

func TestTruncateLabel(t *testing.T) {
	if got := truncateLabel("short", 160, 12); got != "short" {
		t.Errorf("Expected short label unchanged, got %q", got)
	}
	long := strings.Repeat("x", 60)
	got := truncateLabel(long, 160, 12)
	if len([]rune(got)) != 22 || !strings.HasSuffix(got, "…") {
		t.Errorf("Expected 22-rune truncated label, got %q", got)
	}
}
