package exportpipe

import (
	"fmt"
	"image"
	"image/draw"
)

// PageSlice is one horizontal band of a snapshot sized to fit one
// physical output page. Slices are contiguous, non-overlapping, and
// their source heights sum exactly to the snapshot height.
type PageSlice struct {
	Index          int
	SourceYPx      int
	SourceHeightPx int

	// RenderedHeightMM is the physical height this band occupies on its
	// page. Kept in full precision; rounding happens only when the
	// packager embeds the bitmap.
	RenderedHeightMM float64
}

// Slice computes the ordered page bands for snapshot under geometry.
//
// The millimeters-per-pixel ratio is derived from the content width, so
// every snapshot fills the page between the side margins; the page height
// in source pixels follows from that ratio. The final slice is the
// remainder, shorter than the others whenever the snapshot height is not
// an exact multiple of the page height. It is never padded or stretched.
func Slice(snapshot *RasterSnapshot, geometry PageGeometry) ([]PageSlice, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	if snapshot == nil || snapshot.WidthPx() <= 0 {
		return nil, fmt.Errorf("%w: snapshot has no width", ErrPrecheckFailed)
	}
	if snapshot.HeightPx() <= 0 {
		return nil, fmt.Errorf("%w: snapshot has no height", ErrPrecheckFailed)
	}

	mmPerPx := geometry.ContentWidthMM() / float64(snapshot.WidthPx())
	pageHeightPx := int(geometry.ContentHeightMM() / mmPerPx)
	if pageHeightPx <= 0 {
		return nil, fmt.Errorf("%w: page height of %dpx at %.4fmm/px", ErrPrecheckFailed, pageHeightPx, mmPerPx)
	}

	total := snapshot.HeightPx()
	slices := make([]PageSlice, 0, (total+pageHeightPx-1)/pageHeightPx)

	for sourceY := 0; sourceY < total; sourceY += pageHeightPx {
		h := pageHeightPx
		if remaining := total - sourceY; remaining < h {
			h = remaining
		}
		slices = append(slices, PageSlice{
			Index:            len(slices),
			SourceYPx:        sourceY,
			SourceHeightPx:   h,
			RenderedHeightMM: float64(h) * mmPerPx,
		})
	}

	return slices, nil
}

// PageBitmap is one rendered slice ready for packaging.
type PageBitmap struct {
	Image            *image.RGBA
	RenderedHeightMM float64
}

// RenderSlice materializes one slice as an independent opaque bitmap.
//
// The bitmap is filled entirely with the snapshot background before the
// source band is copied onto it, so no transparency or prior-buffer
// garbage can leak into the page. Each call allocates a fresh buffer;
// nothing is shared between invocations.
func RenderSlice(snapshot *RasterSnapshot, slice PageSlice) PageBitmap {
	dst := image.NewRGBA(image.Rect(0, 0, snapshot.WidthPx(), slice.SourceHeightPx))

	draw.Draw(dst, dst.Rect, image.NewUniform(snapshot.Background()), image.Point{}, draw.Src)

	// Over, not Src: a stray translucent source pixel composites against
	// the fill instead of replacing it.
	srcOrigin := snapshot.img.Rect.Min.Add(image.Pt(0, slice.SourceYPx))
	draw.Draw(dst, dst.Rect, snapshot.img, srcOrigin, draw.Over)

	return PageBitmap{Image: dst, RenderedHeightMM: slice.RenderedHeightMM}
}

// RenderSlices renders every slice of a snapshot in order.
func RenderSlices(snapshot *RasterSnapshot, slices []PageSlice) []PageBitmap {
	pages := make([]PageBitmap, len(slices))
	for i, s := range slices {
		pages[i] = RenderSlice(snapshot, s)
	}
	return pages
}
