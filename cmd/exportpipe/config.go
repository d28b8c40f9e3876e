package main

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	exportpipe "github.com/examlens/go-exportpipe"
	"github.com/examlens/go-exportpipe/internal/fileutil"
	"github.com/examlens/go-exportpipe/internal/yamlutil"
)

// Sentinel errors for job config operations.
var (
	ErrConfigNotFound     = errors.New("job config file not found")
	ErrConfigParse        = errors.New("failed to parse job config")
	ErrConfigSurfaces     = errors.New("job config needs either surfaces or a report")
	ErrSurfaceFileMissing = errors.New("surface file not found")
	ErrInvalidColorHex    = errors.New("invalid background color")
)

// JobConfig is the YAML description of one export job.
type JobConfig struct {
	Label     string          `yaml:"label"`
	Format    string          `yaml:"format"`
	Style     string          `yaml:"style"`
	Geometry  GeometryConfig  `yaml:"geometry"`
	Capture   CaptureConfig   `yaml:"capture"`
	Selection SelectionConfig `yaml:"selection"`

	// Surfaces lists externally rendered surfaces (name -> URL or file
	// path) captured as-is. Mutually exclusive with Report.
	Surfaces []SurfaceConfig `yaml:"surfaces"`

	// Report builds surfaces from markdown sections instead.
	Report *ReportConfig `yaml:"report"`
}

// GeometryConfig defines the physical page in millimeters.
type GeometryConfig struct {
	PageWidthMM  float64 `yaml:"pageWidthMM"`
	PageHeightMM float64 `yaml:"pageHeightMM"`
	MarginMM     float64 `yaml:"marginMM"`
}

// CaptureConfig defines capture options.
type CaptureConfig struct {
	PixelDensity float64 `yaml:"pixelDensity"`
	Background   string  `yaml:"background"` // "#rrggbb", empty = white
}

// SelectionConfig seeds the export selection model.
type SelectionConfig struct {
	ChartStyle       string   `yaml:"chartStyle"`       // bar (default) or donut
	DisabledSections []string `yaml:"disabledSections"` // toggled off before export
	Annotations      []string `yaml:"annotations"`      // empty = default prefix
	AllAnnotations   bool     `yaml:"allAnnotations"`
}

// SurfaceConfig names one externally rendered surface.
type SurfaceConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ReportConfig describes a markdown-authored report.
type ReportConfig struct {
	Title       string             `yaml:"title"`
	Sections    []SectionConfig    `yaml:"sections"`
	Annotations []AnnotationConfig `yaml:"annotations"`
}

// SectionConfig is one report section. Markdown comes from File (relative
// to the job config) or inline from Markdown.
type SectionConfig struct {
	Key         string       `yaml:"key"`
	Title       string       `yaml:"title"`
	File        string       `yaml:"file"`
	Markdown    string       `yaml:"markdown"`
	Chart       *ChartConfig `yaml:"chart"`
	Annotations bool         `yaml:"annotations"`
}

// ChartConfig is chart data for a section.
type ChartConfig struct {
	Labels []string  `yaml:"labels"`
	Values []float64 `yaml:"values"`
}

// AnnotationConfig is one annotation entry.
type AnnotationConfig struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// LoadJobConfig reads and parses a job config file.
// Returns error if the file is not found (no silent fallback).
func LoadJobConfig(path string) (*JobConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading job config: %w", err)
	}

	var cfg JobConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if cfg.Label == "" {
		cfg.Label = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if cfg.Format == "" {
		cfg.Format = exportpipe.FormatPaginatedDocument
	}
	if len(cfg.Surfaces) == 0 && cfg.Report == nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigSurfaces, path)
	}

	return &cfg, nil
}

// buildJob assembles an exportpipe.Job from the config. The returned
// closer releases the surface provider's temp files, if any.
func buildJob(cfg *JobConfig, baseDir string, sink exportpipe.DeliverySink) (exportpipe.Job, func() error, error) {
	job := exportpipe.Job{
		Format: cfg.Format,
		Label:  cfg.Label,
		Geometry: exportpipe.PageGeometry{
			PageWidthMM:  cfg.Geometry.PageWidthMM,
			PageHeightMM: cfg.Geometry.PageHeightMM,
			MarginMM:     cfg.Geometry.MarginMM,
		},
		Sink: sink,
	}
	if (cfg.Geometry == GeometryConfig{}) {
		job.Geometry = exportpipe.DefaultPageGeometry()
	}

	capture := exportpipe.DefaultCaptureOptions()
	if cfg.Capture.PixelDensity > 0 {
		capture.PixelDensity = cfg.Capture.PixelDensity
	}
	if cfg.Capture.Background != "" {
		bg, err := parseHexColor(cfg.Capture.Background)
		if err != nil {
			return exportpipe.Job{}, nil, err
		}
		capture.Background = bg
	}
	job.Capture = capture

	closer := func() error { return nil }

	if cfg.Report != nil {
		report, err := buildReport(cfg.Report, baseDir)
		if err != nil {
			return exportpipe.Job{}, nil, err
		}
		provider, err := exportpipe.NewReportProvider(report, cfg.Style)
		if err != nil {
			return exportpipe.Job{}, nil, err
		}
		sel, err := buildSelection(cfg, provider, report)
		if err != nil {
			_ = provider.Close()
			return exportpipe.Job{}, nil, err
		}
		job.Provider = provider
		job.Selection = sel
		job.Surfaces = defaultSurfaces(cfg, provider)
		closer = provider.Close
	} else {
		static := make(exportpipe.StaticSurfaces, len(cfg.Surfaces))
		for _, s := range cfg.Surfaces {
			url := s.URL
			if !fileutil.IsURL(url) {
				// Bare paths are relative to the job config. Resolve
				// before the export starts so a typo fails the job load,
				// not the capture.
				local := filepath.Join(baseDir, url)
				if !fileutil.FileExists(local) {
					return exportpipe.Job{}, nil, fmt.Errorf("%w: surface %q: %s", ErrSurfaceFileMissing, s.Name, local)
				}
				abs, err := filepath.Abs(local)
				if err != nil {
					return exportpipe.Job{}, nil, fmt.Errorf("resolving surface %q: %w", s.Name, err)
				}
				url = "file://" + abs
			}
			static[s.Name] = url
			job.Surfaces = append(job.Surfaces, s.Name)
		}
		job.Provider = static
	}

	return job, closer, nil
}

// defaultSurfaces picks the job's surface list: the full report for
// single-artifact formats, one surface per section for batch.
func defaultSurfaces(cfg *JobConfig, provider *exportpipe.ReportProvider) []string {
	if cfg.Format == exportpipe.FormatSectionImages {
		return provider.SurfaceNames()
	}
	return []string{exportpipe.SurfaceFullReport}
}

// buildSelection seeds a selection model from the report's toggles and
// the config's overrides.
func buildSelection(cfg *JobConfig, provider *exportpipe.ReportProvider, report exportpipe.Report) (*exportpipe.SelectionModel, error) {
	sel := exportpipe.NewSelectionModel(provider.SectionToggles())

	ids := make([]string, 0, len(report.Annotations))
	for _, a := range report.Annotations {
		ids = append(ids, a.ID)
	}
	sel.SetAvailableAnnotations(ids)

	for _, key := range cfg.Selection.DisabledSections {
		if sel.SectionEnabled(key) {
			sel.ToggleSection(key)
		}
	}
	if cfg.Selection.ChartStyle != "" {
		if err := sel.SetChartStyle(cfg.Selection.ChartStyle); err != nil {
			return nil, err
		}
	}
	switch {
	case cfg.Selection.AllAnnotations:
		sel.SelectAllAnnotationItems()
	case len(cfg.Selection.Annotations) > 0:
		sel.DeselectAllAnnotationItems()
		for _, id := range cfg.Selection.Annotations {
			sel.ToggleAnnotationItem(id)
		}
	}

	return sel, nil
}

// buildReport loads section markdown from files or inline content.
func buildReport(cfg *ReportConfig, baseDir string) (exportpipe.Report, error) {
	report := exportpipe.Report{Title: cfg.Title}

	for _, s := range cfg.Sections {
		md := s.Markdown
		if s.File != "" {
			data, err := os.ReadFile(filepath.Join(baseDir, s.File)) // #nosec G304 -- path from user config
			if err != nil {
				return exportpipe.Report{}, fmt.Errorf("reading section %q: %w", s.Key, err)
			}
			md = string(data)
		}

		section := exportpipe.ReportSection{
			Key:         s.Key,
			Title:       s.Title,
			Markdown:    md,
			Annotations: s.Annotations,
		}
		if s.Chart != nil {
			section.Chart = &exportpipe.ChartSeries{Labels: s.Chart.Labels, Values: s.Chart.Values}
		}
		report.Sections = append(report.Sections, section)
	}

	for _, a := range cfg.Annotations {
		report.Annotations = append(report.Annotations, exportpipe.Annotation{ID: a.ID, Text: a.Text})
	}

	return report, nil
}

// parseHexColor parses "#rrggbb" into an opaque color.
func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColorHex, s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColorHex, s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
