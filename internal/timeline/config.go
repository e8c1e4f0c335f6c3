// Package timeline lays out execution events on a zoomable time axis.
//
// Everything here is pure: given the same events, unit, zoom and render
// time, the same pixel geometry comes out. Renderers (the terminal console
// and the SVG exporter) only draw what Build returns.
package timeline

// Config holds the presentation constants of the timeline.
type Config struct {
	// DefaultUnit is the display unit used until the user picks another.
	DefaultUnit Unit `yaml:"default_unit"`

	// Zoom level bounds. PixelsPerUnit = BaseScale / level.
	DefaultZoom float64 `yaml:"default_zoom"`
	MinZoom     float64 `yaml:"min_zoom"`
	MaxZoom     float64 `yaml:"max_zoom"`
	BaseScale   float64 `yaml:"base_scale"`
	// DragDivisor converts pointer travel (px) into zoom level change.
	DragDivisor float64 `yaml:"drag_divisor"`
	// SnapStep is the multiple the level snaps to when a drag ends.
	SnapStep float64 `yaml:"snap_step"`

	// Marker spacing band in pixels and the hard marker cap.
	MarkerMinSpacing float64 `yaml:"marker_min_spacing"`
	MarkerMaxSpacing float64 `yaml:"marker_max_spacing"`
	MarkerInitial    float64 `yaml:"marker_initial"`
	MaxMarkers       int     `yaml:"max_markers"`

	// PendingPadding and PendingWidth are expressed in display units.
	PendingPadding float64 `yaml:"pending_padding"`
	PendingWidth   float64 `yaml:"pending_width"`

	RowHeight   float64 `yaml:"row_height"`
	RowGap      float64 `yaml:"row_gap"`
	MinBarWidth float64 `yaml:"min_bar_width"`
}

// DefaultConfig returns the stock timeline settings.
func DefaultConfig() Config {
	return Config{
		DefaultUnit:      UnitMillis,
		DefaultZoom:      100,
		MinZoom:          10,
		MaxZoom:          1000,
		BaseScale:        500,
		DragDivisor:      3,
		SnapStep:         10,
		MarkerMinSpacing: 80,
		MarkerMaxSpacing: 150,
		MarkerInitial:    10,
		MaxMarkers:       20,
		PendingPadding:   100,
		PendingWidth:     30,
		RowHeight:        24,
		RowGap:           8,
		MinBarWidth:      2,
	}
}

// Sanitize replaces unusable values with defaults.
func (c Config) Sanitize() Config {
	d := DefaultConfig()
	if !c.DefaultUnit.Valid() {
		c.DefaultUnit = d.DefaultUnit
	}
	if !(c.MinZoom > 0) {
		c.MinZoom = d.MinZoom
	}
	if !(c.MaxZoom >= c.MinZoom) {
		c.MaxZoom = d.MaxZoom
		if c.MaxZoom < c.MinZoom {
			c.MaxZoom = c.MinZoom
		}
	}
	if !(c.DefaultZoom >= c.MinZoom && c.DefaultZoom <= c.MaxZoom) {
		c.DefaultZoom = clamp(d.DefaultZoom, c.MinZoom, c.MaxZoom)
	}
	if !(c.BaseScale > 0) {
		c.BaseScale = d.BaseScale
	}
	if !(c.DragDivisor > 0) {
		c.DragDivisor = d.DragDivisor
	}
	if !(c.SnapStep > 0) {
		c.SnapStep = d.SnapStep
	}
	if !(c.MarkerMinSpacing > 0) || !(c.MarkerMaxSpacing > c.MarkerMinSpacing) {
		c.MarkerMinSpacing, c.MarkerMaxSpacing = d.MarkerMinSpacing, d.MarkerMaxSpacing
	}
	if !(c.MarkerInitial > 0) {
		c.MarkerInitial = d.MarkerInitial
	}
	if c.MaxMarkers <= 0 {
		c.MaxMarkers = d.MaxMarkers
	}
	if !(c.PendingPadding >= 0) {
		c.PendingPadding = d.PendingPadding
	}
	if !(c.PendingWidth > 0) {
		c.PendingWidth = d.PendingWidth
	}
	if !(c.RowHeight > 0) {
		c.RowHeight = d.RowHeight
	}
	if !(c.RowGap >= 0) {
		c.RowGap = d.RowGap
	}
	if !(c.MinBarWidth > 0) {
		c.MinBarWidth = d.MinBarWidth
	}
	return c
}
