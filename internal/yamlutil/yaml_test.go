package yamlutil

import (
	"bytes"
	"errors"
	"testing"
)

type testDoc struct {
	Label  string `yaml:"label"`
	Format string `yaml:"format"`
}

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	var doc testDoc
	err := Unmarshal([]byte("label: exam\nformat: paginated-document\n"), &doc)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if doc.Label != "exam" || doc.Format != "paginated-document" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestUnmarshal_ValidatesInput(t *testing.T) {
	t.Parallel()

	var doc testDoc

	if err := Unmarshal(nil, &doc); !errors.Is(err, ErrNilData) {
		t.Errorf("Unmarshal(nil) error = %v, want ErrNilData", err)
	}
	if err := Unmarshal([]byte("label: x"), nil); !errors.Is(err, ErrNilDestination) {
		t.Errorf("Unmarshal(_, nil) error = %v, want ErrNilDestination", err)
	}

	big := bytes.Repeat([]byte("a"), MaxInputSize+1)
	if err := Unmarshal(big, &doc); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("Unmarshal(oversized) error = %v, want ErrInputTooLarge", err)
	}
}

func TestUnmarshalStrict_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	var doc testDoc
	err := UnmarshalStrict([]byte("label: exam\nbogus: field\n"), &doc)
	if err == nil {
		t.Fatal("UnmarshalStrict() should reject unknown fields")
	}

	// The lenient variant accepts the same input.
	if err := Unmarshal([]byte("label: exam\nbogus: field\n"), &doc); err != nil {
		t.Errorf("Unmarshal() error = %v", err)
	}
}

func TestUnmarshalStrict_AcceptsKnownFields(t *testing.T) {
	t.Parallel()

	var doc testDoc
	if err := UnmarshalStrict([]byte("label: exam\nformat: single-image\n"), &doc); err != nil {
		t.Fatalf("UnmarshalStrict() error = %v", err)
	}
	if doc.Label != "exam" || doc.Format != "single-image" {
		t.Errorf("doc = %+v", doc)
	}
}
