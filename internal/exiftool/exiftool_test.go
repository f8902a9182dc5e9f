package exiftool

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeExiftool is a shell script that speaks just enough of the stay-open
// protocol for the writer tests: it replies to each -execute with the
// contents of FAKE_EXIFTOOL_OUTPUT followed by the ready marker.
const fakeExiftool = `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    -execute)
      printf '%s\n' "${FAKE_EXIFTOOL_OUTPUT:-1 image files updated}"
      printf '{ready}\n'
      ;;
    -stay_open)
      IFS= read -r value
      if [ "$value" = "False" ]; then
        exit 0
      fi
      ;;
  esac
done
`

func newFakeTool(t *testing.T) *Tool {
	t.Helper()

	path := filepath.Join(t.TempDir(), "exiftool")
	if err := os.WriteFile(path, []byte(fakeExiftool), 0o755); err != nil {
		t.Fatalf("failed to write fake exiftool: %v", err)
	}

	tool, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		tool.Close()
	})
	return tool
}

func TestFileWriter_SetValue(t *testing.T) {
	t.Run("succeeds when a file was updated", func(t *testing.T) {
		tool := newFakeTool(t)
		w, err := tool.Writer("/export/photo.jpg")
		if err != nil {
			t.Fatalf("Writer() error = %v", err)
		}

		if err := w.SetValue("XMP:Title", "Sunset"); err != nil {
			t.Errorf("SetValue() error = %v", err)
		}
	})

	t.Run("errors when nothing was updated", func(t *testing.T) {
		t.Setenv("FAKE_EXIFTOOL_OUTPUT", "0 image files updated")
		tool := newFakeTool(t)
		w, err := tool.Writer("/export/photo.jpg")
		if err != nil {
			t.Fatalf("Writer() error = %v", err)
		}

		if err := w.SetValue("XMP:Title", "Sunset"); err == nil {
			t.Error("SetValue() expected error for 0 files updated")
		}
	})
}

func TestFileWriter_AddValues(t *testing.T) {
	t.Run("no-op for empty value list", func(t *testing.T) {
		tool := newFakeTool(t)
		w, err := tool.Writer("/export/photo.jpg")
		if err != nil {
			t.Fatalf("Writer() error = %v", err)
		}

		if err := w.AddValues("IPTC:Keywords"); err != nil {
			t.Errorf("AddValues() error = %v", err)
		}
	})

	t.Run("appends multiple values in one command", func(t *testing.T) {
		tool := newFakeTool(t)
		w, err := tool.Writer("/export/photo.jpg")
		if err != nil {
			t.Fatalf("Writer() error = %v", err)
		}

		if err := w.AddValues("IPTC:Keywords", "k2", "k3"); err != nil {
			t.Errorf("AddValues() error = %v", err)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("errors when the binary is absent", func(t *testing.T) {
		t.Setenv("PATH", t.TempDir())
		if _, err := New(""); err == nil {
			t.Error("New() expected error when exiftool is not on PATH")
		}
	})
}
