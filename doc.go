// Package exportpipe captures rendered report surfaces with headless
// Chrome and packages them into deliverable export artifacts: a single
// raster image, a paginated PDF with physically-accurate pages, or an
// ordered sequence of per-section images.
//
// # Quick Start
//
// Create an exporter, run a job, and close when done:
//
//	exp := exportpipe.New()
//	defer exp.Close()
//
//	provider, err := exportpipe.NewReportProvider(report, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	sink, err := exportpipe.NewDirSink("out")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := exp.Export(ctx, exportpipe.Job{
//	    Format:   exportpipe.FormatPaginatedDocument,
//	    Label:    "analysis",
//	    Surfaces: []string{exportpipe.SurfaceFullReport},
//	    Provider: provider,
//	    Sink:     sink,
//	})
//
// # Pipeline
//
// Each surface moves through four stages, strictly in order:
//
//  1. Render: the provider presents the surface from the current
//     selection, then the exporter waits a settle interval (or the
//     provider's own paint-completion signal) before capturing.
//  2. Capture: headless Chrome rasterizes the surface at the configured
//     pixel density, flattened against an opaque background (go-rod).
//  3. Package: the snapshot is sliced into page-height bands and
//     embedded one band per PDF page, or encoded as PNG directly.
//  4. Deliver: the artifact bytes are handed to the job's DeliverySink,
//     with a pacing delay between sequential deliveries.
//
// Per-section batch exports are best-effort per surface; single-artifact
// exports are all-or-nothing.
//
// # Selection
//
// A SelectionModel drives what the surface renders: ordered section
// toggles (with a locked header), a chart style (bar or donut), and an
// allow-list of annotation entries. Each artifact records the selection
// snapshot it was captured from.
//
// # Parallel Jobs
//
// For independent jobs, use ExporterPool to manage multiple browser
// instances:
//
//	pool := exportpipe.NewExporterPool(4)
//	defer pool.Close()
//
//	exp := pool.Acquire()
//	defer pool.Release(exp)
//	result, err := exp.Export(ctx, job)
//
// # Browser Requirements
//
// Capture requires Chrome/Chromium. The go-rod library automatically
// downloads a managed Chromium instance on first run. Use ROD_BROWSER_BIN
// to point at a pre-installed binary (also disables the sandbox for
// containerized environments).
package exportpipe
