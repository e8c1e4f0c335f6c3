package timeline

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/subnetlabs/console/internal/models"
)

// SVGOptions controls the exported drawing.
type SVGOptions struct {
	Title       string
	LabelWidth  float64
	AxisHeight  float64
	Padding     float64
	FontSize    float64
	MinWidthPx  float64
	MinHeightPx float64
}

// DefaultSVGOptions returns the export defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		LabelWidth:  160,
		AxisHeight:  28,
		Padding:     12,
		FontSize:    12,
		MinWidthPx:  320,
		MinHeightPx: 80,
	}
}

var svgFill = map[models.EventStatus]string{
	models.EventSuccess: "#10B981",
	models.EventError:   "#EF4444",
	models.EventRunning: "#06B6D4",
	models.EventPending: "url(#pending-hatch)",
}

// WriteSVG draws a layout. Geometry comes from l unchanged; the drawing only
// adds the label gutter, the axis band and the outer padding.
func WriteSVG(w io.Writer, l Layout, opts SVGOptions) error {
	if opts.FontSize <= 0 {
		opts = DefaultSVGOptions()
	}
	plotX := opts.Padding + opts.LabelWidth
	plotY := opts.Padding + opts.AxisHeight

	var rowsBottom float64
	for _, b := range l.Bars {
		if bottom := b.TopPx + b.HeightPx; bottom > rowsBottom {
			rowsBottom = bottom
		}
	}
	width := math.Max(opts.MinWidthPx, plotX+l.WidthPx+opts.Padding)
	height := math.Max(opts.MinHeightPx, plotY+rowsBottom+opts.Padding)

	var svg strings.Builder
	fmt.Fprintf(&svg, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" font-family="sans-serif" font-size="%s">`+"\n",
		num(width), num(height), num(width), num(height), num(opts.FontSize))
	svg.WriteString(`<defs><pattern id="pending-hatch" patternUnits="userSpaceOnUse" width="6" height="6" patternTransform="rotate(45)">` +
		`<rect width="6" height="6" fill="#F3F4F6"/><line x1="0" y1="0" x2="0" y2="6" stroke="#9CA3AF" stroke-width="3"/></pattern></defs>` + "\n")
	if opts.Title != "" {
		fmt.Fprintf(&svg, `<title>%s</title>`+"\n", escapeXML(opts.Title))
	}

	for _, m := range l.Plan.Markers {
		x := plotX + m.OffsetPx
		fmt.Fprintf(&svg, `<line class="grid" x1="%s" y1="%s" x2="%s" y2="%s" stroke="#E5E7EB"/>`+"\n",
			num(x), num(plotY), num(x), num(height-opts.Padding))
		fmt.Fprintf(&svg, `<text class="tick" x="%s" y="%s" fill="#6B7280">%s</text>`+"\n",
			num(x+2), num(plotY-8), escapeXML(m.Label))
	}

	for _, b := range l.Bars {
		y := plotY + b.TopPx
		fmt.Fprintf(&svg, `<text class="label" x="%s" y="%s" fill="#111827">%s</text>`+"\n",
			num(opts.Padding), num(y+b.HeightPx*0.7), escapeXML(truncateLabel(b.Event.Name, opts.LabelWidth, opts.FontSize)))
		fill, ok := svgFill[b.Event.Status]
		if !ok || b.Hatched {
			fill = svgFill[models.EventPending]
		}
		fmt.Fprintf(&svg, `<rect class="bar %s" x="%s" y="%s" width="%s" height="%s" rx="3" fill="%s"><title>%s</title></rect>`+"\n",
			b.Event.Status, num(plotX+b.LeftPx), num(y), num(b.WidthPx), num(b.HeightPx), fill,
			escapeXML(barTooltip(b, l.Unit)))
	}

	if l.ShowNow {
		x := plotX + l.NowPx
		fmt.Fprintf(&svg, `<line class="now" x1="%s" y1="%s" x2="%s" y2="%s" stroke="#F59E0B" stroke-dasharray="4 2"/>`+"\n",
			num(x), num(plotY), num(x), num(height-opts.Padding))
	}
	svg.WriteString("</svg>\n")

	_, err := io.WriteString(w, svg.String())
	return err
}

func barTooltip(b Bar, u Unit) string {
	if b.Hatched {
		return fmt.Sprintf("%s: pending", b.Event.Name)
	}
	return fmt.Sprintf("%s: %s (%s → %s)", b.Event.Name, b.Event.Status,
		u.Format(roundLabel(b.Start)), u.Format(roundLabel(b.End)))
}

func truncateLabel(s string, width, fontSize float64) string {
	limit := int(width / (fontSize * 0.6))
	r := []rune(s)
	if limit < 4 || len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func num(v float64) string {
	return fmt.Sprintf("%.2f", orZero(v))
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}
