package main

import (
	"errors"
	"os"

	exportpipe "github.com/examlens/go-exportpipe"
	"github.com/examlens/go-exportpipe/internal/assets"
)

// Exit codes for the exportpipe CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // All artifacts delivered
	ExitGeneral = 1 // General/unexpected error, or partial batch failure
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, exportpipe.ErrBrowserConnect) ||
		errors.Is(err, exportpipe.ErrPageCreate) ||
		errors.Is(err, exportpipe.ErrPageLoad) ||
		errors.Is(err, exportpipe.ErrCaptureFailed) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrSurfaceFileMissing) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrConfigParse) ||
		errors.Is(err, ErrConfigSurfaces) ||
		errors.Is(err, ErrInvalidColorHex) ||
		errors.Is(err, exportpipe.ErrInvalidFormat) ||
		errors.Is(err, exportpipe.ErrInvalidPageSize) ||
		errors.Is(err, exportpipe.ErrInvalidMargin) ||
		errors.Is(err, exportpipe.ErrInvalidPixelDensity) ||
		errors.Is(err, exportpipe.ErrInvalidChartStyle) ||
		errors.Is(err, exportpipe.ErrNoSurfaces) ||
		errors.Is(err, exportpipe.ErrTooManySurfaces) ||
		errors.Is(err, exportpipe.ErrEmptyLabel) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) {
		return ExitUsage
	}

	return ExitGeneral
}
