package exportpipe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExportState names one phase of the per-surface export cycle.
type ExportState string

// Orchestration states. Each surface moves Rendering -> Capturing ->
// Delivering; the exporter returns to Idle after the last surface.
const (
	StateIdle       ExportState = "idle"
	StateRendering  ExportState = "rendering"
	StateCapturing  ExportState = "capturing"
	StateDelivering ExportState = "delivering"
)

// ProgressEvent reports which surface is currently in flight.
type ProgressEvent struct {
	Surface string
	Index   int // 0-based position in the job's surface order
	Total   int
	State   ExportState
}

// SurfaceProvider makes a named surface current and returns a handle the
// capturer understands. The provider must guarantee the surface reflects
// the given selection before the settle interval elapses.
type SurfaceProvider interface {
	Present(ctx context.Context, name string, sel SelectionSnapshot) (Surface, error)
}

// SettleNotifier is optionally implemented by providers that expose a
// real paint-completion signal. When absent, the exporter falls back to
// its fixed settle timer.
type SettleNotifier interface {
	Settled(ctx context.Context, name string) error
}

// Job describes one export: which surfaces to capture, in which order,
// into which format.
type Job struct {
	// Format is one of FormatSingleImage, FormatPaginatedDocument,
	// FormatSectionImages. The two single-artifact formats accept
	// exactly one surface.
	Format string

	// Label is the base filename for delivered artifacts.
	Label string

	// Surfaces are captured strictly in this order.
	Surfaces []string

	// Geometry drives slicing and packaging. The zero value means
	// DefaultPageGeometry.
	Geometry PageGeometry

	// Capture options. The zero value means DefaultCaptureOptions.
	Capture CaptureOptions

	// Selection drives what the surfaces render. May be nil when the
	// provider does not consume a selection. A snapshot is taken per
	// surface at capture time and recorded on the artifact.
	Selection *SelectionModel

	Provider SurfaceProvider
	Sink     DeliverySink
}

// Result reports what a finished export delivered.
type Result struct {
	Delivered []ExportArtifact
	Failed    []SurfaceFailure
}

// Exporter drives the capture -> slice -> package -> deliver chain, one
// surface at a time, in the caller-supplied order. There is no internal
// concurrency: surface i+1 is never rendered until surface i's delivery
// has started.
type Exporter struct {
	cfg      exporterConfig
	capturer surfaceCapturer
	progress func(ProgressEvent)
}

// New creates an Exporter with default configuration.
// Use options to customize behavior (e.g., WithSettleInterval).
func New(opts ...Option) *Exporter {
	e := &Exporter{
		cfg: exporterConfig{
			settle:  DefaultSettleInterval,
			pacing:  DefaultPacingDelay,
			timeout: defaultCaptureTimeout,
			logger:  slog.Default(),
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	// Create the capturer if not injected (e.g., by tests)
	if e.capturer == nil {
		e.capturer = newRodCapturer(e.cfg.timeout)
	}

	return e
}

// Close releases capture resources (headless Chrome browser).
func (e *Exporter) Close() error {
	if e.capturer != nil {
		return e.capturer.Close()
	}
	return nil
}

// Export runs the job to completion.
//
// Failure policy: the single-artifact formats are all-or-nothing — any
// capture, slicing, or packaging error aborts the export with nothing
// delivered, because a partial single document is meaningless. The
// per-section format is best-effort per surface: a failed surface is
// recorded in Result.Failed and the remaining surfaces still proceed.
//
// Context cancellation aborts at the next suspension point (settle wait,
// capture, pacing delay). Artifacts already delivered stay delivered.
func (e *Exporter) Export(ctx context.Context, job Job) (*Result, error) {
	if err := e.validateJob(&job); err != nil {
		return nil, err
	}

	result := &Result{}
	total := len(job.Surfaces)
	batch := job.Format == FormatSectionImages

	e.cfg.logger.Info("export started",
		"format", job.Format, "label", job.Label, "surfaces", total)

	for i, name := range job.Surfaces {
		if err := ctx.Err(); err != nil {
			e.cfg.logger.Info("export aborted", "label", job.Label, "delivered", len(result.Delivered))
			return result, err
		}

		artifact, err := e.exportSurface(ctx, job, name, i, total)
		if err != nil {
			if !batch || ctx.Err() != nil {
				e.emit(name, i, total, StateIdle)
				e.cfg.logger.Info("export aborted", "label", job.Label, "surface", name, "error", err)
				return result, err
			}
			// Batch export is best-effort per surface: log, record, move on.
			e.cfg.logger.Warn("surface export failed, continuing", "surface", name, "error", err)
			result.Failed = append(result.Failed, SurfaceFailure{Surface: name, Err: err})
			continue
		}

		result.Delivered = append(result.Delivered, *artifact)
		e.cfg.logger.Info("artifact delivered",
			"surface", name, "filename", artifact.Label, "bytes", artifact.Size)

		// Pace sequential deliveries so throttling sinks (browser
		// download managers) do not discard back-to-back artifacts.
		if i < total-1 {
			if err := sleepCtx(ctx, e.cfg.pacing); err != nil {
				return result, err
			}
		}
	}

	e.emit("", total-1, total, StateIdle)
	e.cfg.logger.Info("export finished",
		"label", job.Label, "delivered", len(result.Delivered), "failed", len(result.Failed))
	return result, nil
}

// exportSurface runs one surface through render, settle, capture,
// packaging, and delivery.
func (e *Exporter) exportSurface(ctx context.Context, job Job, name string, index, total int) (*ExportArtifact, error) {
	sel := SelectionSnapshot{}
	if job.Selection != nil {
		sel = job.Selection.Snapshot()
	}

	e.emit(name, index, total, StateRendering)
	surface, err := job.Provider.Present(ctx, name, sel)
	if err != nil {
		return nil, fmt.Errorf("presenting surface: %w", err)
	}

	// Layout and paint are asynchronous and not observable from here.
	// Prefer the provider's own settle signal; otherwise wait the fixed
	// settle interval. Capturing earlier risks stale or half-painted
	// content.
	if notifier, ok := job.Provider.(SettleNotifier); ok {
		if err := notifier.Settled(ctx, name); err != nil {
			return nil, fmt.Errorf("waiting for settle: %w", err)
		}
	} else if err := sleepCtx(ctx, e.cfg.settle); err != nil {
		return nil, err
	}

	e.emit(name, index, total, StateCapturing)
	snapshot, err := e.capturer.Capture(ctx, surface, job.Capture)
	if err != nil {
		return nil, err
	}

	filename, data, err := e.packageArtifact(job, name, snapshot)
	if err != nil {
		return nil, err
	}

	e.emit(name, index, total, StateDelivering)
	if err := job.Sink.Deliver(filename, data); err != nil {
		return nil, fmt.Errorf("delivering %s: %w", filename, err)
	}

	return &ExportArtifact{
		Format:    job.Format,
		Label:     filename,
		Surface:   name,
		Size:      len(data),
		Selection: sel,
	}, nil
}

// packageArtifact turns a snapshot into deliverable bytes for the job's format.
func (e *Exporter) packageArtifact(job Job, surface string, snapshot *RasterSnapshot) (string, []byte, error) {
	switch job.Format {
	case FormatPaginatedDocument:
		slices, err := Slice(snapshot, job.Geometry)
		if err != nil {
			return "", nil, err
		}
		data, err := Package(RenderSlices(snapshot, slices), job.Geometry)
		if err != nil {
			return "", nil, err
		}
		return job.Label + ".pdf", data, nil

	case FormatSingleImage:
		data, err := encodeSnapshot(snapshot)
		if err != nil {
			return "", nil, err
		}
		return job.Label + ".png", data, nil

	case FormatSectionImages:
		data, err := encodeSnapshot(snapshot)
		if err != nil {
			return "", nil, err
		}
		return job.Label + "-" + surface + ".png", data, nil
	}

	return "", nil, fmt.Errorf("%w: %q", ErrInvalidFormat, job.Format)
}

// validateJob checks job shape and applies defaults in place.
func (e *Exporter) validateJob(job *Job) error {
	if !validFormat(job.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, job.Format)
	}
	if job.Label == "" {
		return ErrEmptyLabel
	}
	if len(job.Surfaces) == 0 {
		return ErrNoSurfaces
	}
	if job.Format != FormatSectionImages && len(job.Surfaces) > 1 {
		return fmt.Errorf("%w: got %d", ErrTooManySurfaces, len(job.Surfaces))
	}
	if job.Provider == nil {
		return ErrNilProvider
	}
	if job.Sink == nil {
		return ErrNilSink
	}

	if job.Geometry == (PageGeometry{}) {
		job.Geometry = DefaultPageGeometry()
	}
	if job.Capture == (CaptureOptions{}) {
		job.Capture = DefaultCaptureOptions()
	}

	// Geometry is recomputed against each snapshot's width at slice
	// time; only its shape is validated up front.
	if err := job.Geometry.Validate(); err != nil {
		return err
	}
	return job.Capture.Validate()
}

// emit reports a progress event if a callback is registered.
func (e *Exporter) emit(surface string, index, total int, state ExportState) {
	if e.progress != nil {
		e.progress(ProgressEvent{Surface: surface, Index: index, Total: total, State: state})
	}
}

// encodeSnapshot serializes a snapshot as PNG bytes.
func encodeSnapshot(s *RasterSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sleepCtx waits d or until the context is cancelled, whichever first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
