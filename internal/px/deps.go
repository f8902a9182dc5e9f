package px

import (
	"context"
	"time"
)

// Logger provides structured logging for the export engine.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards all output. Use in tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// Clock abstracts time retrieval so ledger bookkeeping is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// ExifWriter writes metadata tags into one target file. Multi-valued tags
// are written by setting the first value and appending the rest, mirroring
// exiftool's -TAG= / -TAG+= semantics.
type ExifWriter interface {
	SetValue(tag, value string) error
	AddValues(tag string, values ...string) error
}

// ExifWriterFactory binds an ExifWriter to a target file.
type ExifWriterFactory interface {
	Writer(path string) (ExifWriter, error)
}

// Fetcher retrieves an asset's files from a remote store through an external
// automation path, used when the source file is absent locally. It returns
// the list of file paths it produced in outDir.
type Fetcher interface {
	Fetch(ctx context.Context, uuid, outDir, filestem string, original, edited, livePhoto, burst bool) ([]string, error)
}

// TemplateRenderer renders a naming template against an asset. Multi-valued
// tokens (albums, keywords, persons) fan out into one rendered string per
// value. Tokens that cannot be resolved are returned in unmatched and left
// verbatim in the rendered strings.
type TemplateRenderer interface {
	Render(template string, asset *Asset, nonePlaceholder, pathSep string) (rendered []string, unmatched []string)
}

// FileManager abstracts the filesystem primitives the engine needs. A single
// OS-backed implementation exists; the interface keeps the decision logic
// free of direct os calls.
type FileManager interface {
	Exists(path string) bool
	IsDir(path string) bool
	MkdirAll(path string) error
	ListDir(dir string) ([]string, error)
	Remove(path string) error

	// Copy duplicates src at dest, preserving extended attributes unless
	// preserveXattr is false.
	Copy(src, dest string, preserveXattr bool) error
	// Hardlink links dest to src's inode.
	Hardlink(src, dest string) error
	// SameFile reports whether the two paths refer to the same inode.
	SameFile(a, b string) (bool, error)
	// FilesEqual compares the two files byte for byte.
	FilesEqual(a, b string) (bool, error)
}
