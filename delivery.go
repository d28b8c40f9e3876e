package exportpipe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DeliverySink saves artifact bytes under a filename. The engine is
// agnostic to how delivery actually happens (directory write, browser
// download bridge, object store).
type DeliverySink interface {
	Deliver(filename string, data []byte) error
}

// DirSink delivers artifacts as files in a directory.
type DirSink struct {
	Dir string
}

// NewDirSink creates the directory if needed and returns a sink into it.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &DirSink{Dir: dir}, nil
}

// Deliver writes the artifact under a sanitized filename.
func (s *DirSink) Deliver(filename string, data []byte) error {
	path := filepath.Join(s.Dir, SanitizeFilename(filename))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("delivering %s: %w", filename, err)
	}
	return nil
}

// Compile-time interface check.
var _ DeliverySink = (*DirSink)(nil)

// SanitizeFilename strips path separators and control bytes so an
// artifact label can never escape the delivery directory.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == '\x00':
			b.WriteByte('_')
		case r < 0x20:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" || out == "." || out == ".." {
		return "artifact"
	}
	return out
}
