// Package fetch implements the remote-fetch automation path: asking the
// photo application itself to export an asset that is absent locally.
package fetch

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"px-go/internal/px"
)

// CommandFetcher shells out to an external automation executable. The
// executable receives the asset uuid, output directory, file stem and
// variant flags, and prints one produced file path per line on stdout.
type CommandFetcher struct {
	command string
	logger  px.Logger
}

func NewCommandFetcher(command string, logger px.Logger) *CommandFetcher {
	return &CommandFetcher{command: command, logger: logger}
}

// Fetch runs the automation command. The context bounds its runtime; a
// timed-out command is killed and reported as an error.
func (f *CommandFetcher) Fetch(ctx context.Context, uuid, outDir, filestem string, original, edited, livePhoto, burst bool) ([]string, error) {
	if f.command == "" {
		return nil, fmt.Errorf("no fetch command configured")
	}

	args := []string{
		"--uuid", uuid,
		"--out", outDir,
		"--filestem", filestem,
		"--original", strconv.FormatBool(original),
		"--edited", strconv.FormatBool(edited),
		"--live-photo", strconv.FormatBool(livePhoto),
		"--burst", strconv.FormatBool(burst),
	}

	f.logger.Debug("running fetch command", "command", f.command, "uuid", uuid, "out", outDir)
	out, err := exec.CommandContext(ctx, f.command, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("fetch command for %s: %w", uuid, err)
	}

	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("fetch command for %s produced no files", uuid)
	}
	return paths, nil
}

var _ px.Fetcher = (*CommandFetcher)(nil)
