package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	exportpipe "github.com/examlens/go-exportpipe"
	"github.com/examlens/go-exportpipe/internal/assets"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"browser connect", exportpipe.ErrBrowserConnect, ExitBrowser},
		{"page load", exportpipe.ErrPageLoad, ExitBrowser},
		{"capture", exportpipe.ErrCaptureFailed, ExitBrowser},
		{"config not found", ErrConfigNotFound, ExitIO},
		{"surface file missing", ErrSurfaceFileMissing, ExitIO},
		{"file not exist", os.ErrNotExist, ExitIO},
		{"config parse", ErrConfigParse, ExitUsage},
		{"config surfaces", ErrConfigSurfaces, ExitUsage},
		{"bad color", ErrInvalidColorHex, ExitUsage},
		{"bad format", exportpipe.ErrInvalidFormat, ExitUsage},
		{"bad margin", exportpipe.ErrInvalidMargin, ExitUsage},
		{"bad density", exportpipe.ErrInvalidPixelDensity, ExitUsage},
		{"bad chart style", exportpipe.ErrInvalidChartStyle, ExitUsage},
		{"style not found", assets.ErrStyleNotFound, ExitUsage},
		{"unknown", errors.New("boom"), ExitGeneral},
		{"wrapped browser error", fmt.Errorf("job a.yaml: %w", exportpipe.ErrPageCreate), ExitBrowser},
		{"wrapped usage error", fmt.Errorf("job a.yaml: %w", exportpipe.ErrNoSurfaces), ExitUsage},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
