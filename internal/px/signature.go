package px

import (
	"fmt"
	"os"
	"path/filepath"
)

// Signature is a cheap file-identity triple used to decide whether a file
// changed since the last export. It deliberately does not hash content:
// comparisons are fast but blind to same-size-same-mtime edits.
type Signature struct {
	Size  int64
	Mtime int64 // unix seconds
	Name  string
}

// FileSignature stats path and returns its signature.
func FileSignature(path string) (Signature, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Signature{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Signature{
		Size:  info.Size(),
		Mtime: info.ModTime().Unix(),
		Name:  filepath.Base(path),
	}, nil
}

// Equal reports whether two signatures match exactly on all three fields.
func (s Signature) Equal(o Signature) bool {
	return s.Size == o.Size && s.Mtime == o.Mtime && s.Name == o.Name
}

// Matches stats path and compares the result against s.
func (s Signature) Matches(path string) bool {
	cur, err := FileSignature(path)
	if err != nil {
		return false
	}
	return s.Equal(cur)
}
