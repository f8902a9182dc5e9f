// Package fs provides the OS-backed implementation of px.FileManager.
package fs

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"px-go/internal/px"
)

// compareChunkSize is the buffer size used for byte-for-byte comparison.
const compareChunkSize = 64 * 1024

// Manager performs real filesystem operations.
type Manager struct{}

func NewManager() *Manager { return &Manager{} }

// Exists reports whether path exists.
func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func (m *Manager) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// MkdirAll creates path and any missing parents.
func (m *Manager) MkdirAll(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

// ListDir returns the names of all entries in dir.
func (m *Manager) ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}
	return names, nil
}

// Remove deletes path.
func (m *Manager) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Hardlink links dest to src's inode.
func (m *Manager) Hardlink(src, dest string) error {
	if err := os.Link(src, dest); err != nil {
		return fmt.Errorf("hardlinking %s to %s: %w", dest, src, err)
	}
	return nil
}

// Copy duplicates src at dest, carrying over file mode and modification time.
// Extended attributes are preserved unless preserveXattr is false.
func (m *Manager) Copy(src, dest string, preserveXattr bool) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("copying %s to %s: %w", src, dest, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("closing %s: %w", dest, err)
	}

	if err := os.Chtimes(dest, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("preserving mtime on %s: %w", dest, err)
	}

	if preserveXattr {
		if err := copyXattrs(src, dest); err != nil {
			return fmt.Errorf("preserving extended attributes on %s: %w", dest, err)
		}
	}
	return nil
}

// SameFile reports whether the two paths refer to the same inode.
func (m *Manager) SameFile(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", a, err)
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", b, err)
	}
	return os.SameFile(ia, ib), nil
}

// FilesEqual compares the two files byte for byte. Size is checked first so
// differently sized files never read content.
func (m *Manager) FilesEqual(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", a, err)
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", b, err)
	}
	if ia.Size() != ib.Size() {
		return false, nil
	}

	fa, err := os.Open(a)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", a, err)
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", b, err)
	}
	defer fb.Close()

	bufA := make([]byte, compareChunkSize)
	bufB := make([]byte, compareChunkSize)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		if errA == io.EOF || errA == io.ErrUnexpectedEOF {
			return errB == io.EOF || errB == io.ErrUnexpectedEOF, nil
		}
		if errA != nil {
			return false, fmt.Errorf("reading %s: %w", a, errA)
		}
		if errB != nil {
			return false, fmt.Errorf("reading %s: %w", b, errB)
		}
	}
}

var _ px.FileManager = (*Manager)(nil)
