package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"px-go/internal/px"
)

// NewTestAsset builds a minimal asset with an original file written to a
// temp directory.
func NewTestAsset(t *testing.T, filename string, content []byte) *px.Asset {
	t.Helper()

	src := WriteFile(t, t.TempDir(), filename, content)
	return &px.Asset{
		UUID:             "A92DA2A2-4C77-4FBE-BBC8-3E8B1C1FE4C1",
		OriginalPath:     src,
		Filename:         filename,
		OriginalFilename: filename,
		DateCreated:      time.Date(2023, 6, 10, 14, 22, 5, 0, time.UTC),
	}
}

// WriteFile writes content to dir/name and returns the full path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
