package exportpipe

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/jung-kurt/gofpdf"
)

// Package assembles rendered page bitmaps into a single multi-page PDF:
// one physical page per bitmap, each placed at the content origin
// (margin, margin) and sized to the content width. Page order equals
// slice order.
//
// Any bitmap that cannot be embedded is a hard error for the whole
// document; a partial paginated document is never emitted.
func Package(pages []PageBitmap, geometry PageGeometry) ([]byte, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages to package", ErrPrecheckFailed)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: geometry.PageWidthMM, Ht: geometry.PageHeightMM},
	})
	pdf.SetMargins(geometry.MarginMM, geometry.MarginMM, geometry.MarginMM)
	// Placement is explicit per page; an auto page break mid-image would
	// split a slice across two pages.
	pdf.SetAutoPageBreak(false, 0)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}

	for i, page := range pages {
		if page.Image == nil {
			return nil, fmt.Errorf("%w: page %d has no bitmap", ErrPackagingFailed, i)
		}
		if page.RenderedHeightMM <= 0 {
			return nil, fmt.Errorf("%w: page %d has non-positive height %.4fmm", ErrPackagingFailed, i, page.RenderedHeightMM)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, page.Image); err != nil {
			return nil, fmt.Errorf("%w: encoding page %d: %v", ErrPackagingFailed, i, err)
		}

		name := fmt.Sprintf("page-%d", i)
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.AddPage()
		pdf.ImageOptions(name, geometry.MarginMM, geometry.MarginMM,
			geometry.ContentWidthMM(), page.RenderedHeightMM, false, opts, 0, "")

		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrPackagingFailed, i, err)
		}
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackagingFailed, err)
	}
	return out.Bytes(), nil
}
