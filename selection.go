package exportpipe

import (
	"errors"
	"fmt"
)

// Chart style constants.
const (
	ChartStyleBar   = "bar"
	ChartStyleDonut = "donut"
)

// ErrInvalidChartStyle rejects unknown chart styles.
var ErrInvalidChartStyle = errors.New("invalid chart style")

// DefaultAnnotationLimit bounds the default annotation selection to the
// first N available items.
const DefaultAnnotationLimit = 5

// SectionToggle declares one content section of the export surface.
type SectionToggle struct {
	Key     string
	Enabled bool
	// Locked sections are always rendered and cannot be toggled off
	// (the document header/title).
	Locked bool
}

// SelectionModel is the single source of truth for what the export
// surface renders: ordered section toggles, a chart style, and an
// allow-list of annotation items. It is owned by one export session,
// mutated only by the interactive user, and never persisted.
type SelectionModel struct {
	order    []string
	sections map[string]*SectionToggle

	chartStyle string

	available  []string
	selected   map[string]bool
	annotLimit int
}

// NewSelectionModel creates a model with the given sections in display
// order. Duplicate keys keep the first declaration. Defaults: bar charts,
// no annotation items available.
func NewSelectionModel(sections []SectionToggle) *SelectionModel {
	m := &SelectionModel{
		sections:   make(map[string]*SectionToggle, len(sections)),
		chartStyle: ChartStyleBar,
		selected:   make(map[string]bool),
		annotLimit: DefaultAnnotationLimit,
	}
	for _, s := range sections {
		if _, ok := m.sections[s.Key]; ok {
			continue
		}
		sec := s
		if sec.Locked {
			sec.Enabled = true
		}
		m.order = append(m.order, sec.Key)
		m.sections[sec.Key] = &sec
	}
	return m
}

// ToggleSection flips a section. Unknown and locked sections are ignored.
func (m *SelectionModel) ToggleSection(key string) {
	sec, ok := m.sections[key]
	if !ok || sec.Locked {
		return
	}
	sec.Enabled = !sec.Enabled
}

// SectionEnabled reports whether the named section is rendered.
func (m *SelectionModel) SectionEnabled(key string) bool {
	sec, ok := m.sections[key]
	return ok && sec.Enabled
}

// SectionKeys returns the section keys in display order.
func (m *SelectionModel) SectionKeys() []string {
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

// SetChartStyle selects how charts on the surface are rendered.
func (m *SelectionModel) SetChartStyle(style string) error {
	switch style {
	case ChartStyleBar, ChartStyleDonut:
		m.chartStyle = style
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidChartStyle, style)
}

// ChartStyle returns the current chart style.
func (m *SelectionModel) ChartStyle() string { return m.chartStyle }

// SetAvailableAnnotations replaces the set of annotation items the user
// may include and recomputes the default selection as a bounded prefix
// of the new set. The previous selection is discarded, not merged: a
// stale subset referencing removed items would be meaningless.
func (m *SelectionModel) SetAvailableAnnotations(ids []string) {
	m.available = make([]string, len(ids))
	copy(m.available, ids)

	m.selected = make(map[string]bool, len(ids))
	for i, id := range m.available {
		if i >= m.annotLimit {
			break
		}
		m.selected[id] = true
	}
}

// ToggleAnnotationItem flips one annotation item. Unknown ids are ignored.
func (m *SelectionModel) ToggleAnnotationItem(id string) {
	if !m.isAvailable(id) {
		return
	}
	if m.selected[id] {
		delete(m.selected, id)
	} else {
		m.selected[id] = true
	}
}

// SelectAllAnnotationItems includes every available annotation item.
func (m *SelectionModel) SelectAllAnnotationItems() {
	for _, id := range m.available {
		m.selected[id] = true
	}
}

// DeselectAllAnnotationItems excludes every annotation item.
func (m *SelectionModel) DeselectAllAnnotationItems() {
	m.selected = make(map[string]bool)
}

// AnnotationSelected reports whether the item is on the allow-list.
func (m *SelectionModel) AnnotationSelected(id string) bool {
	return m.selected[id]
}

func (m *SelectionModel) isAvailable(id string) bool {
	for _, a := range m.available {
		if a == id {
			return true
		}
	}
	return false
}

// SelectionSnapshot is an immutable copy of the model taken at capture
// time, recorded on each artifact so later UI edits cannot affect
// artifacts already in flight.
type SelectionSnapshot struct {
	Sections    []SectionToggle // display order
	ChartStyle  string
	Annotations []string // selected ids, in availability order
}

// Snapshot deep-copies the current state.
func (m *SelectionModel) Snapshot() SelectionSnapshot {
	snap := SelectionSnapshot{
		Sections:   make([]SectionToggle, 0, len(m.order)),
		ChartStyle: m.chartStyle,
	}
	for _, key := range m.order {
		snap.Sections = append(snap.Sections, *m.sections[key])
	}
	for _, id := range m.available {
		if m.selected[id] {
			snap.Annotations = append(snap.Annotations, id)
		}
	}
	return snap
}

// SectionEnabled reports whether the named section was enabled when the
// snapshot was taken. Unknown sections are disabled.
func (s SelectionSnapshot) SectionEnabled(key string) bool {
	for _, sec := range s.Sections {
		if sec.Key == key {
			return sec.Enabled
		}
	}
	return false
}

// AnnotationSelected reports whether the item was on the allow-list when
// the snapshot was taken.
func (s SelectionSnapshot) AnnotationSelected(id string) bool {
	for _, a := range s.Annotations {
		if a == id {
			return true
		}
	}
	return false
}
