package exportpipe

import "errors"

// Sentinel errors for library operations.
var (
	ErrCaptureFailed   = errors.New("surface capture failed")
	ErrPrecheckFailed  = errors.New("degenerate export input")
	ErrPackagingFailed = errors.New("document packaging failed")

	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load surface")

	ErrSurfaceRender  = errors.New("report surface rendering failed")
	ErrUnknownSurface = errors.New("unknown surface")

	// Export job validation errors.
	ErrNoSurfaces      = errors.New("export job has no surfaces")
	ErrTooManySurfaces = errors.New("single-artifact export accepts exactly one surface")
	ErrInvalidFormat   = errors.New("invalid export format")
	ErrEmptyLabel      = errors.New("artifact label cannot be empty")
	ErrNilSink         = errors.New("export job requires a delivery sink")
	ErrNilProvider     = errors.New("export job requires a surface provider")

	// Page geometry validation errors.
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrInvalidMargin   = errors.New("invalid margin")

	// Capture option validation errors.
	ErrInvalidPixelDensity = errors.New("invalid pixel density")
)
