package testutil

import (
	"context"
	"os"
	"path/filepath"

	"px-go/internal/px"
)

// FetchCall captures the arguments of one Fetch invocation.
type FetchCall struct {
	UUID      string
	OutDir    string
	Filestem  string
	Original  bool
	Edited    bool
	LivePhoto bool
	Burst     bool
}

// StubFetcher materializes predeclared file contents into outDir and
// records every call.
type StubFetcher struct {
	// Files maps a relative filename to its content. Each Fetch call
	// writes all of them under outDir.
	Files map[string][]byte
	// Err, when set, is returned instead of fetching.
	Err   error
	Calls []FetchCall
}

func (f *StubFetcher) Fetch(ctx context.Context, uuid, outDir, filestem string, original, edited, livePhoto, burst bool) ([]string, error) {
	f.Calls = append(f.Calls, FetchCall{
		UUID:      uuid,
		OutDir:    outDir,
		Filestem:  filestem,
		Original:  original,
		Edited:    edited,
		LivePhoto: livePhoto,
		Burst:     burst,
	})
	if f.Err != nil {
		return nil, f.Err
	}

	var paths []string
	for name, content := range f.Files {
		p := filepath.Join(outDir, name)
		if err := os.WriteFile(p, content, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

var _ px.Fetcher = (*StubFetcher)(nil)
