package exportpipe

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Surface is a renderable handle the capturer understands: a named,
// already-laid-out visual surface addressable by URL (file:// or http://).
type Surface struct {
	Name string
	URL  string
}

// surfaceCapturer abstracts surface-to-raster capture to allow different backends.
type surfaceCapturer interface {
	Capture(ctx context.Context, surface Surface, opts CaptureOptions) (*RasterSnapshot, error)
	Close() error
}

// surfaceRasterizer abstracts the raw PNG screenshot to enable testing without a browser.
type surfaceRasterizer interface {
	Rasterize(ctx context.Context, url string, opts CaptureOptions) ([]byte, error)
}

// Compile-time interface checks
var (
	_ surfaceCapturer   = (*rodCapturer)(nil)
	_ surfaceRasterizer = (*rodRasterizer)(nil)
)

// rodRasterizer screenshots pages with headless Chrome via go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodRasterizer struct {
	browser *rod.Browser
	timeout time.Duration
}

// newRodRasterizer creates a rodRasterizer with the given timeout.
func newRodRasterizer(timeout time.Duration) *rodRasterizer {
	return &rodRasterizer{timeout: timeout}
}

// ensureBrowser lazily connects to the browser.
func (r *rodRasterizer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	// Configure launcher
	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (r *rodRasterizer) Close() error {
	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

// Rasterize opens the URL in headless Chrome and captures the full page
// as PNG at the requested pixel density. Returns explicit errors instead
// of panicking when browser operations fail. Capture is never retried:
// a surface Chrome rejected once will be rejected identically on retry.
func (r *rodRasterizer) Rasterize(ctx context.Context, url string, opts CaptureOptions) ([]byte, error) {
	// Check context before starting
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	// Wait for page load with timeout from context or default
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	// Check context after page load
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Size the emulated device to the laid-out content so the whole
	// surface fits in one capture, scaled by the pixel density.
	contentW, contentH, err := layoutSize(page)
	if err != nil {
		return nil, err
	}
	if contentW <= 0 || contentH <= 0 {
		return nil, fmt.Errorf("%w: surface has zero layout area", ErrPrecheckFailed)
	}
	if err := overrideMetrics(page, contentW, contentH, opts.PixelDensity); err != nil {
		return nil, err
	}

	// The override changes the viewport, which can reflow content
	// (viewport-relative units, text wrap). Measure again and re-apply
	// so the emulated device matches the post-reflow layout.
	reW, reH, err := layoutSize(page)
	if err != nil {
		return nil, err
	}
	if reW != contentW || reH != contentH {
		contentW, contentH = reW, reH
		if err := overrideMetrics(page, contentW, contentH, opts.PixelDensity); err != nil {
			return nil, err
		}
	}

	// Resolve the page's own transparency against the configured
	// background at capture time, never leaving it to the PDF viewer.
	bg := opts.opaque()
	alpha := float64(1)
	err = (&proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.DOMRGBA{
			R: int(bg.R),
			G: int(bg.G),
			B: int(bg.B),
			A: &alpha,
		},
	}).Call(page)
	if err != nil {
		return nil, fmt.Errorf("%w: background override: %v", ErrCaptureFailed, err)
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:                proto.PageCaptureScreenshotFormatPng,
		FromSurface:           true,
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	return data, nil
}

// layoutSize returns the page's laid-out content size in CSS pixels.
func layoutSize(page *rod.Page) (width, height int, err error) {
	metrics, err := proto.PageGetLayoutMetrics{}.Call(page)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: layout metrics: %v", ErrCaptureFailed, err)
	}
	return int(math.Ceil(metrics.CSSContentSize.Width)),
		int(math.Ceil(metrics.CSSContentSize.Height)), nil
}

// overrideMetrics sizes the emulated device to the content.
func overrideMetrics(page *rod.Page, width, height int, density float64) error {
	err := (&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: density,
		Mobile:            false,
	}).Call(page)
	if err != nil {
		return fmt.Errorf("%w: device metrics: %v", ErrCaptureFailed, err)
	}
	return nil
}

// rodCapturer captures surfaces to opaque raster snapshots using headless
// Chrome. Capturing an unchanged surface twice at the same density yields
// snapshots of identical dimensions.
type rodCapturer struct {
	rasterizer surfaceRasterizer
	closer     interface{ Close() error }
}

// newRodCapturer creates a rodCapturer with a production rasterizer.
func newRodCapturer(timeout time.Duration) *rodCapturer {
	r := newRodRasterizer(timeout)
	return &rodCapturer{rasterizer: r, closer: r}
}

// Capture rasterizes the surface and flattens it to an opaque snapshot.
func (c *rodCapturer) Capture(ctx context.Context, surface Surface, opts CaptureOptions) (*RasterSnapshot, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	data, err := c.rasterizer.Rasterize(ctx, surface.URL, opts)
	if err != nil {
		return nil, err
	}

	return snapshotFromPNG(data, opts.opaque())
}

// Close releases browser resources.
func (c *rodCapturer) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
