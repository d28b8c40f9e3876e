package exportpipe

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"github.com/examlens/go-exportpipe/internal/assets"
	"github.com/examlens/go-exportpipe/internal/fileutil"
)

// SurfaceFullReport is the surface name that renders every enabled
// section of a report as one surface.
const SurfaceFullReport = "report"

// HeaderSectionKey names the locked document header section.
const HeaderSectionKey = "header"

// Annotation is one commentary entry eligible for inclusion on the surface.
type Annotation struct {
	ID   string
	Text string
}

// ChartSeries is the data a report chart renders.
type ChartSeries struct {
	Labels []string
	Values []float64
}

// ReportSection is one toggleable content section authored in markdown.
type ReportSection struct {
	Key      string
	Title    string
	Markdown string

	// Chart, when set, renders below the section body in the selected
	// chart style.
	Chart *ChartSeries

	// Annotations renders the report's annotation entries, filtered by
	// the selection's allow-list.
	Annotations bool
}

// Report is the content a report surface provider renders from.
type Report struct {
	Title       string
	Sections    []ReportSection
	Annotations []Annotation
}

// ReportProvider renders report sections to standalone styled HTML
// surfaces for capture. It implements SurfaceProvider: each Present call
// re-renders from the given selection snapshot, so toggled-off sections
// are absent from the surface, not hidden.
type ReportProvider struct {
	report  Report
	md      goldmark.Markdown
	css     string
	cleanup []func()
}

// NewReportProvider creates a provider for the report using the named
// embedded style ("" means the default report style).
func NewReportProvider(report Report, style string) (*ReportProvider, error) {
	if style == "" {
		style = assets.DefaultStyle
	}
	css, err := assets.Style(style)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // Tables, strikethrough, autolinks, task lists
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true), // CSS classes so the embedded stylesheet controls code colors
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			htmlrenderer.WithXHTML(),
		),
	)

	return &ReportProvider{report: report, md: md, css: css}, nil
}

// SectionToggles returns the toggle set this report exposes: the locked
// header first, then one enabled toggle per section in report order.
// Feed this to NewSelectionModel to seed an export session.
func (p *ReportProvider) SectionToggles() []SectionToggle {
	toggles := make([]SectionToggle, 0, len(p.report.Sections)+1)
	toggles = append(toggles, SectionToggle{Key: HeaderSectionKey, Enabled: true, Locked: true})
	for _, s := range p.report.Sections {
		toggles = append(toggles, SectionToggle{Key: s.Key, Enabled: true})
	}
	return toggles
}

// SurfaceNames returns the per-section surface names in report order,
// for batch exports.
func (p *ReportProvider) SurfaceNames() []string {
	names := make([]string, 0, len(p.report.Sections))
	for _, s := range p.report.Sections {
		names = append(names, s.Key)
	}
	return names
}

// Present renders the named surface to a temp HTML file and returns a
// file:// handle. The name SurfaceFullReport renders all sections the
// selection enables; a section key renders the header plus that section.
func (p *ReportProvider) Present(ctx context.Context, name string, sel SelectionSnapshot) (Surface, error) {
	sections, err := p.resolveSections(name, sel)
	if err != nil {
		return Surface{}, err
	}

	doc, err := p.renderDocument(ctx, sections, sel)
	if err != nil {
		return Surface{}, err
	}

	path, cleanup, err := fileutil.WriteTempFile(doc, "html")
	if err != nil {
		return Surface{}, fmt.Errorf("%w: %v", ErrSurfaceRender, err)
	}
	p.cleanup = append(p.cleanup, cleanup)

	return Surface{Name: name, URL: "file://" + path}, nil
}

// Close removes the temp surface files written by Present.
func (p *ReportProvider) Close() error {
	for _, fn := range p.cleanup {
		fn()
	}
	p.cleanup = nil
	return nil
}

// Compile-time interface check.
var _ SurfaceProvider = (*ReportProvider)(nil)

// resolveSections picks which sections the named surface contains,
// honoring the selection's section toggles.
func (p *ReportProvider) resolveSections(name string, sel SelectionSnapshot) ([]ReportSection, error) {
	if name == SurfaceFullReport {
		var out []ReportSection
		for _, s := range p.report.Sections {
			if sel.SectionEnabled(s.Key) {
				out = append(out, s)
			}
		}
		return out, nil
	}

	for _, s := range p.report.Sections {
		if s.Key == name {
			return []ReportSection{s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSurface, name)
}

// renderDocument assembles a standalone HTML5 document: locked header,
// then each section's markdown body plus optional chart and annotations.
func (p *ReportProvider) renderDocument(ctx context.Context, sections []ReportSection, sel SelectionSnapshot) (string, error) {
	var body strings.Builder

	// The header is always-on and not part of the toggle set.
	body.WriteString(`<header class="report-header"><h1>`)
	body.WriteString(html.EscapeString(p.report.Title))
	body.WriteString("</h1></header>\n")

	for _, s := range sections {
		body.WriteString(fmt.Sprintf(`<section class="report-section" id="section-%s">`, html.EscapeString(s.Key)))
		if s.Title != "" {
			body.WriteString("<h2>" + html.EscapeString(s.Title) + "</h2>\n")
		}

		rendered, err := p.renderMarkdown(ctx, s.Markdown)
		if err != nil {
			return "", err
		}
		body.WriteString(rendered)

		if s.Chart != nil {
			body.WriteString(renderChart(*s.Chart, sel.ChartStyle))
		}
		if s.Annotations {
			body.WriteString(p.renderAnnotations(sel))
		}
		body.WriteString("</section>\n")
	}

	return fmt.Sprintf(surfaceTemplate, p.css, body.String()), nil
}

// renderMarkdown converts a section body to HTML. Supports context
// cancellation via goroutine + select pattern since Goldmark doesn't
// natively support context.
func (p *ReportProvider) renderMarkdown(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := p.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrSurfaceRender, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// renderAnnotations lists the annotation entries the selection allows,
// preserving report order.
func (p *ReportProvider) renderAnnotations(sel SelectionSnapshot) string {
	var b strings.Builder
	b.WriteString(`<ul class="annotations">`)
	for _, a := range p.report.Annotations {
		if !sel.AnnotationSelected(a.ID) {
			continue
		}
		b.WriteString("<li>" + html.EscapeString(a.Text) + "</li>")
	}
	b.WriteString("</ul>\n")
	return b.String()
}

// surfaceTemplate wraps rendered content in a complete HTML5 document.
const surfaceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Report</title>
<style>
%s
</style>
</head>
<body>
%s
</body>
</html>`

// chartPalette colors chart segments in declaration order.
var chartPalette = []string{"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f", "#edc948"}

// renderChart renders a chart as pure CSS so capture needs no script
// execution: horizontal bars, or a donut built from a conic-gradient.
func renderChart(series ChartSeries, style string) string {
	if len(series.Values) == 0 {
		return ""
	}

	if style == ChartStyleDonut {
		return renderDonutChart(series)
	}
	return renderBarChart(series)
}

func renderBarChart(series ChartSeries) string {
	max := series.Values[0]
	for _, v := range series.Values {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		max = 1
	}

	var b strings.Builder
	b.WriteString(`<div class="chart chart-bar">`)
	for i, v := range series.Values {
		label := ""
		if i < len(series.Labels) {
			label = series.Labels[i]
		}
		color := chartPalette[i%len(chartPalette)]
		b.WriteString(fmt.Sprintf(
			`<div class="bar-row"><span class="bar-label">%s</span>`+
				`<span class="bar" style="width:%.1f%%;background:%s"></span>`+
				`<span class="bar-value">%.1f</span></div>`,
			html.EscapeString(label), v/max*100, color, v))
	}
	b.WriteString("</div>\n")
	return b.String()
}

func renderDonutChart(series ChartSeries) string {
	var total float64
	for _, v := range series.Values {
		total += v
	}
	if total <= 0 {
		return ""
	}

	var stops []string
	var legend strings.Builder
	angle := 0.0
	for i, v := range series.Values {
		color := chartPalette[i%len(chartPalette)]
		next := angle + v/total*360
		stops = append(stops, fmt.Sprintf("%s %.2fdeg %.2fdeg", color, angle, next))
		angle = next

		label := ""
		if i < len(series.Labels) {
			label = series.Labels[i]
		}
		legend.WriteString(fmt.Sprintf(
			`<li><span class="swatch" style="background:%s"></span>%s (%.1f)</li>`,
			color, html.EscapeString(label), v))
	}

	return fmt.Sprintf(
		`<div class="chart chart-donut"><div class="donut" style="background:conic-gradient(%s)"></div><ul class="legend">%s</ul></div>`+"\n",
		strings.Join(stops, ", "), legend.String())
}

// StaticSurfaces adapts a fixed table of externally rendered surfaces
// (name -> URL). It ignores the selection: the owning collaborator is
// responsible for keeping those surfaces current.
type StaticSurfaces map[string]string

// Present returns the handle for the named surface.
func (s StaticSurfaces) Present(_ context.Context, name string, _ SelectionSnapshot) (Surface, error) {
	url, ok := s[name]
	if !ok {
		return Surface{}, fmt.Errorf("%w: %q", ErrUnknownSurface, name)
	}
	return Surface{Name: name, URL: url}, nil
}

// Compile-time interface check.
var _ SurfaceProvider = (StaticSurfaces)(nil)
