package exportpipe

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
)

// RasterSnapshot is the immutable result of one surface capture: an
// opaque RGBA pixel grid plus the background it was flattened against.
// It is created once per capture and discarded after the slicer or the
// single-image delivery path consumes it.
type RasterSnapshot struct {
	img        *image.RGBA
	background color.RGBA
}

// WidthPx returns the snapshot width in pixels.
func (s *RasterSnapshot) WidthPx() int { return s.img.Rect.Dx() }

// HeightPx returns the snapshot height in pixels.
func (s *RasterSnapshot) HeightPx() int { return s.img.Rect.Dy() }

// Background returns the opaque color the capture was flattened against.
func (s *RasterSnapshot) Background() color.RGBA { return s.background }

// EncodePNG writes the snapshot as PNG.
func (s *RasterSnapshot) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, s.img); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// newSnapshot wraps an already-opaque RGBA image. Used by tests and the
// slicer; production snapshots come from snapshotFromPNG.
func newSnapshot(img *image.RGBA, background color.RGBA) *RasterSnapshot {
	background.A = 0xff
	return &RasterSnapshot{img: img, background: background}
}

// snapshotFromPNG decodes capture output and flattens any remaining
// transparency against background. Chrome is asked for an opaque capture,
// but the screenshot encoder may still emit an alpha channel; resolving
// it here guarantees downstream consumers never see translucent pixels.
func snapshotFromPNG(data []byte, background color.RGBA) (*RasterSnapshot, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding capture: %v", ErrCaptureFailed, err)
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: capture has zero area", ErrPrecheckFailed)
	}

	background.A = 0xff
	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Rect, image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Rect, src, bounds.Min, draw.Over)

	return &RasterSnapshot{img: flat, background: background}, nil
}
