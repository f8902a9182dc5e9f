package testutil

import (
	"sync"

	"px-go/internal/px"
)

// TagWrite records one metadata write against a file.
type TagWrite struct {
	Tag    string
	Values []string
}

// RecordingExifFactory hands out writers that record every tag write
// instead of touching files.
type RecordingExifFactory struct {
	mu     sync.Mutex
	writes map[string][]TagWrite
	// Err, when set, is returned by every writer call.
	Err error
}

func NewRecordingExifFactory() *RecordingExifFactory {
	return &RecordingExifFactory{writes: make(map[string][]TagWrite)}
}

func (f *RecordingExifFactory) Writer(path string) (px.ExifWriter, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return &recordingWriter{factory: f, path: path}, nil
}

// Writes returns the tag writes recorded for path, in order.
func (f *RecordingExifFactory) Writes(path string) []TagWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[path]
}

func (f *RecordingExifFactory) record(path, tag string, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[path] = append(f.writes[path], TagWrite{Tag: tag, Values: values})
}

type recordingWriter struct {
	factory *RecordingExifFactory
	path    string
}

func (w *recordingWriter) SetValue(tag, value string) error {
	if w.factory.Err != nil {
		return w.factory.Err
	}
	w.factory.record(w.path, tag, value)
	return nil
}

func (w *recordingWriter) AddValues(tag string, values ...string) error {
	if w.factory.Err != nil {
		return w.factory.Err
	}
	w.factory.record(w.path, tag, values...)
	return nil
}

var _ px.ExifWriterFactory = (*RecordingExifFactory)(nil)
