package exportpipe

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

// testSnapshot builds an opaque snapshot of the given size filled with fill.
func testSnapshot(widthPx, heightPx int, background, fill color.RGBA) *RasterSnapshot {
	img := image.NewRGBA(image.Rect(0, 0, widthPx, heightPx))
	for y := 0; y < heightPx; y++ {
		for x := 0; x < widthPx; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	return newSnapshot(img, background)
}

var (
	testWhite = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	testBlue  = color.RGBA{R: 0x10, G: 0x20, B: 0xff, A: 0xff}
)

func TestSlice_ConcreteScenario(t *testing.T) {
	t.Parallel()

	// A 1024x3000px snapshot on A4 with 10mm margins: content width
	// 190mm, content height 277mm, page height 1492px. Three slices,
	// the last being the 16px remainder.
	snap := testSnapshot(1024, 3000, testWhite, testBlue)
	geo := PageGeometry{PageWidthMM: 210, PageHeightMM: 297, MarginMM: 10}

	slices, err := Slice(snap, geo)
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}

	wantHeights := []int{1492, 1492, 16}
	if len(slices) != len(wantHeights) {
		t.Fatalf("got %d slices, want %d", len(slices), len(wantHeights))
	}
	for i, want := range wantHeights {
		if slices[i].SourceHeightPx != want {
			t.Errorf("slice %d height = %dpx, want %dpx", i, slices[i].SourceHeightPx, want)
		}
	}
}

func TestSlice_Invariants(t *testing.T) {
	t.Parallel()

	geometries := []PageGeometry{
		{PageWidthMM: 210, PageHeightMM: 297, MarginMM: 10},
		{PageWidthMM: 210, PageHeightMM: 297, MarginMM: 0},
		{PageWidthMM: 216, PageHeightMM: 279, MarginMM: 12.7}, // US Letter
		{PageWidthMM: 100, PageHeightMM: 40, MarginMM: 5},
	}
	sizes := []struct{ w, h int }{
		{1024, 3000},
		{800, 1},
		{640, 1492},
		{1, 10000},
		{1920, 777},
	}

	for _, geo := range geometries {
		for _, size := range sizes {
			snap := testSnapshot(size.w, size.h, testWhite, testBlue)

			slices, err := Slice(snap, geo)
			if err != nil {
				t.Fatalf("Slice(%dx%d, %+v) error = %v", size.w, size.h, geo, err)
			}

			// Heights sum exactly to the snapshot height.
			sum := 0
			for _, s := range slices {
				sum += s.SourceHeightPx
			}
			if sum != size.h {
				t.Errorf("%dx%d %+v: height sum = %d, want %d", size.w, size.h, geo, sum, size.h)
			}

			// Slices are contiguous, in order, and only the last may be short.
			mmPerPx := geo.ContentWidthMM() / float64(size.w)
			pageHeightPx := int(geo.ContentHeightMM() / mmPerPx)
			nextY := 0
			for i, s := range slices {
				if s.Index != i {
					t.Errorf("slice %d has index %d", i, s.Index)
				}
				if s.SourceYPx != nextY {
					t.Errorf("slice %d starts at %d, want %d", i, s.SourceYPx, nextY)
				}
				nextY += s.SourceHeightPx

				if s.SourceHeightPx <= 0 {
					t.Errorf("slice %d has non-positive height %d", i, s.SourceHeightPx)
				}
				if s.SourceHeightPx > pageHeightPx {
					t.Errorf("slice %d height %d exceeds page height %d", i, s.SourceHeightPx, pageHeightPx)
				}
				if i < len(slices)-1 && s.SourceHeightPx != pageHeightPx {
					t.Errorf("non-final slice %d height = %d, want full page %d", i, s.SourceHeightPx, pageHeightPx)
				}

				wantMM := float64(s.SourceHeightPx) * mmPerPx
				if math.Abs(s.RenderedHeightMM-wantMM) > 1e-9 {
					t.Errorf("slice %d rendered height = %f, want %f", i, s.RenderedHeightMM, wantMM)
				}
			}
		}
	}
}

func TestSlice_ShortSnapshotIsOneSlice(t *testing.T) {
	t.Parallel()

	snap := testSnapshot(1024, 100, testWhite, testBlue)
	slices, err := Slice(snap, DefaultPageGeometry())
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}
	if len(slices) != 1 {
		t.Fatalf("got %d slices, want 1", len(slices))
	}
	if slices[0].SourceHeightPx != 100 {
		t.Errorf("slice height = %d, want the whole snapshot (100)", slices[0].SourceHeightPx)
	}
}

func TestSlice_DegenerateInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		snap    *RasterSnapshot
		geo     PageGeometry
		wantErr error
	}{
		{
			name:    "zero-height snapshot",
			snap:    newSnapshot(image.NewRGBA(image.Rect(0, 0, 100, 0)), testWhite),
			geo:     DefaultPageGeometry(),
			wantErr: ErrPrecheckFailed,
		},
		{
			name:    "zero-width snapshot",
			snap:    newSnapshot(image.NewRGBA(image.Rect(0, 0, 0, 100)), testWhite),
			geo:     DefaultPageGeometry(),
			wantErr: ErrPrecheckFailed,
		},
		{
			name:    "nil snapshot",
			snap:    nil,
			geo:     DefaultPageGeometry(),
			wantErr: ErrPrecheckFailed,
		},
		{
			name:    "margins consume the page",
			snap:    testSnapshot(100, 100, testWhite, testBlue),
			geo:     PageGeometry{PageWidthMM: 60, PageHeightMM: 60, MarginMM: 30},
			wantErr: ErrInvalidPageSize,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Slice(tt.snap, tt.geo)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Slice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRenderSlice_FillsBackgroundThenCopies(t *testing.T) {
	t.Parallel()

	// Source: 4x6, top band red, bottom band green.
	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	red := color.RGBA{R: 0xff, A: 0xff}
	green := color.RGBA{G: 0xff, A: 0xff}
	for y := 0; y < 6; y++ {
		c := red
		if y >= 3 {
			c = green
		}
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	snap := newSnapshot(img, testWhite)

	slice := PageSlice{Index: 1, SourceYPx: 3, SourceHeightPx: 3, RenderedHeightMM: 5}
	page := RenderSlice(snap, slice)

	if page.Image.Rect.Dx() != 4 || page.Image.Rect.Dy() != 3 {
		t.Fatalf("bitmap is %dx%d, want 4x3", page.Image.Rect.Dx(), page.Image.Rect.Dy())
	}
	if page.RenderedHeightMM != 5 {
		t.Errorf("rendered height = %f, want 5", page.RenderedHeightMM)
	}

	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if got := page.Image.RGBAAt(x, y); got != green {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, green)
			}
		}
	}
}

func TestRenderSlice_BitmapIsOpaque(t *testing.T) {
	t.Parallel()

	// A translucent source pixel must end up opaque over the background.
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	snap := newSnapshot(img, testWhite) // source pixels are zero-value (transparent)

	page := RenderSlice(snap, PageSlice{SourceYPx: 0, SourceHeightPx: 2, RenderedHeightMM: 1})
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if a := page.Image.RGBAAt(x, y).A; a != 0xff {
				t.Fatalf("pixel (%d,%d) alpha = %d, want opaque", x, y, a)
			}
		}
	}
}

func TestRenderSlices_OnePerSlice(t *testing.T) {
	t.Parallel()

	snap := testSnapshot(1024, 3000, testWhite, testBlue)
	slices, err := Slice(snap, DefaultPageGeometry())
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}

	pages := RenderSlices(snap, slices)
	if len(pages) != len(slices) {
		t.Fatalf("got %d pages, want %d", len(pages), len(slices))
	}
	for i, p := range pages {
		if p.Image.Rect.Dy() != slices[i].SourceHeightPx {
			t.Errorf("page %d height = %d, want %d", i, p.Image.Rect.Dy(), slices[i].SourceHeightPx)
		}
	}
}
