package exportpipe

import (
	"fmt"
	"image/color"
	"log/slog"
	"time"
)

// Export format constants.
const (
	FormatSingleImage       = "single-image"
	FormatPaginatedDocument = "paginated-document"
	FormatSectionImages     = "per-section-image"
)

// Page geometry bounds and defaults in millimeters (A4 portrait).
const (
	DefaultPageWidthMM  = 210.0
	DefaultPageHeightMM = 297.0
	DefaultMarginMM     = 10.0
	MinMarginMM         = 0.0
	MaxMarginMM         = 50.0
)

// PageGeometry configures the physical page the slicer and packager target.
// Units are millimeters throughout.
type PageGeometry struct {
	PageWidthMM  float64
	PageHeightMM float64
	MarginMM     float64 // applied to all four sides
}

// DefaultPageGeometry returns A4 portrait with 10mm margins.
func DefaultPageGeometry() PageGeometry {
	return PageGeometry{
		PageWidthMM:  DefaultPageWidthMM,
		PageHeightMM: DefaultPageHeightMM,
		MarginMM:     DefaultMarginMM,
	}
}

// ContentWidthMM is the printable width between the left and right margins.
func (g PageGeometry) ContentWidthMM() float64 {
	return g.PageWidthMM - 2*g.MarginMM
}

// ContentHeightMM is the printable height between the top and bottom margins.
func (g PageGeometry) ContentHeightMM() float64 {
	return g.PageHeightMM - 2*g.MarginMM
}

// Validate checks that the geometry leaves a usable content area.
func (g PageGeometry) Validate() error {
	if g.MarginMM < MinMarginMM || g.MarginMM > MaxMarginMM {
		return fmt.Errorf("%w: %.2fmm (must be between %.2f and %.2f)", ErrInvalidMargin, g.MarginMM, MinMarginMM, MaxMarginMM)
	}
	if g.ContentWidthMM() <= 0 || g.ContentHeightMM() <= 0 {
		return fmt.Errorf("%w: %.2fx%.2fmm with %.2fmm margins leaves no content area",
			ErrInvalidPageSize, g.PageWidthMM, g.PageHeightMM, g.MarginMM)
	}
	return nil
}

// Pixel density bounds. Densities above 4 produce snapshots too large for
// Chrome's surface allocator on long reports.
const (
	MinPixelDensity     = 1.0
	MaxPixelDensity     = 4.0
	DefaultPixelDensity = 2.0
)

// CaptureOptions configures a single surface capture.
type CaptureOptions struct {
	// PixelDensity scales the surface's CSS dimensions to snapshot pixels.
	PixelDensity float64

	// Background is flattened under any transparent content. Alpha is
	// forced opaque; a transparent page background would otherwise render
	// as black in the packaged document.
	Background color.RGBA
}

// DefaultCaptureOptions returns 2x density on a white background.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		PixelDensity: DefaultPixelDensity,
		Background:   color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
}

// Validate checks capture options.
func (o CaptureOptions) Validate() error {
	if o.PixelDensity < MinPixelDensity || o.PixelDensity > MaxPixelDensity {
		return fmt.Errorf("%w: %.2f (must be between %.1f and %.1f)", ErrInvalidPixelDensity, o.PixelDensity, MinPixelDensity, MaxPixelDensity)
	}
	return nil
}

// opaque returns the background with alpha forced to fully opaque.
func (o CaptureOptions) opaque() color.RGBA {
	bg := o.Background
	bg.A = 0xff
	return bg
}

// ExportArtifact describes one delivered output.
type ExportArtifact struct {
	Format    string
	Label     string            // filename the artifact was delivered under
	Surface   string            // name of the surface it was captured from
	Size      int               // delivered size in bytes
	Selection SelectionSnapshot // selection state at capture time
}

// SurfaceFailure records a surface that failed during a batch export.
type SurfaceFailure struct {
	Surface string
	Err     error
}

func (f SurfaceFailure) Error() string {
	return fmt.Sprintf("surface %q: %v", f.Surface, f.Err)
}

func (f SurfaceFailure) Unwrap() error { return f.Err }

// Option configures an Exporter.
type Option func(*Exporter)

// exporterConfig holds internal configuration for Exporter.
type exporterConfig struct {
	settle  time.Duration
	pacing  time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// Timing defaults. The settle interval is a conservative wait for layout
// and paint after a surface switch; the pacing delay keeps sequential
// downloads from being discarded by throttling delivery sinks.
const (
	DefaultSettleInterval = 300 * time.Millisecond
	DefaultPacingDelay    = 200 * time.Millisecond
	defaultCaptureTimeout = 30 * time.Second
)

// WithSettleInterval sets the wait between presenting a surface and
// capturing it. Panics if d < 0 (programmer error, similar to time.NewTicker).
func WithSettleInterval(d time.Duration) Option {
	if d < 0 {
		panic("exportpipe: WithSettleInterval duration must not be negative")
	}
	return func(e *Exporter) {
		e.cfg.settle = d
	}
}

// WithPacingDelay sets the delay between sequential artifact deliveries.
// Panics if d < 0.
func WithPacingDelay(d time.Duration) Option {
	if d < 0 {
		panic("exportpipe: WithPacingDelay duration must not be negative")
	}
	return func(e *Exporter) {
		e.cfg.pacing = d
	}
}

// WithTimeout sets the per-capture timeout.
// Panics if d <= 0.
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("exportpipe: WithTimeout duration must be positive")
	}
	return func(e *Exporter) {
		e.cfg.timeout = d
	}
}

// WithLogger sets the structured logger used for per-surface progress and
// caught batch failures. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.cfg.logger = l
		}
	}
}

// WithCapturer injects a surface capturer (e.g., by tests).
func WithCapturer(c surfaceCapturer) Option {
	return func(e *Exporter) {
		e.capturer = c
	}
}

// WithProgress sets a callback invoked on every orchestration state
// change, so a UI can highlight the surface currently in flight.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(e *Exporter) {
		e.progress = fn
	}
}

// validFormat reports whether format names a known export format.
func validFormat(format string) bool {
	switch format {
	case FormatSingleImage, FormatPaginatedDocument, FormatSectionImages:
		return true
	}
	return false
}
