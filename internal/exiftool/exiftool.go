// Package exiftool runs a single exiftool process in stay-open batch mode and
// exposes it as a px.ExifWriterFactory.
package exiftool

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"px-go/internal/px"
)

// readyMarker is printed by exiftool after each -execute in stay-open mode.
const readyMarker = "{ready}"

// Tool wraps one long-lived exiftool process. Commands are serialized: the
// stay-open protocol is strictly request/response.
type Tool struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
}

// New starts exiftool in stay-open batch mode. path is the exiftool binary;
// when empty it is resolved from PATH.
func New(path string) (*Tool, error) {
	if path == "" {
		var err error
		path, err = exec.LookPath("exiftool")
		if err != nil {
			return nil, fmt.Errorf("exiftool not found on PATH: %w", err)
		}
	}

	cmd := exec.Command(path, "-stay_open", "True", "-@", "-")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting exiftool: %w", err)
	}

	return &Tool{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewScanner(stdout),
	}, nil
}

// execute sends one command (a list of arguments, one per line) to the
// stay-open process and collects output until the ready marker.
func (t *Tool) execute(args ...string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var cmd strings.Builder
	for _, arg := range args {
		cmd.WriteString(arg)
		cmd.WriteByte('\n')
	}
	cmd.WriteString("-execute\n")

	if _, err := io.WriteString(t.stdin, cmd.String()); err != nil {
		return "", fmt.Errorf("writing to exiftool: %w", err)
	}

	var out strings.Builder
	for t.stdout.Scan() {
		line := t.stdout.Text()
		if strings.HasPrefix(line, readyMarker) {
			return out.String(), nil
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := t.stdout.Err(); err != nil {
		return "", fmt.Errorf("reading from exiftool: %w", err)
	}
	return "", fmt.Errorf("exiftool closed its output before completing the command")
}

// Writer binds an ExifWriter to one target file.
func (t *Tool) Writer(path string) (px.ExifWriter, error) {
	return &fileWriter{tool: t, path: path}, nil
}

// Close shuts down the stay-open process.
func (t *Tool) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := io.WriteString(t.stdin, "-stay_open\nFalse\n"); err != nil {
		return fmt.Errorf("stopping exiftool: %w", err)
	}
	if err := t.stdin.Close(); err != nil {
		return fmt.Errorf("closing exiftool stdin: %w", err)
	}
	if err := t.cmd.Wait(); err != nil {
		return fmt.Errorf("waiting for exiftool: %w", err)
	}
	return nil
}

// fileWriter writes tags into a single file through the shared process.
type fileWriter struct {
	tool *Tool
	path string
}

// SetValue writes -TAG=VALUE, replacing any existing value.
func (w *fileWriter) SetValue(tag, value string) error {
	out, err := w.tool.execute(fmt.Sprintf("-%s=%s", tag, value), "-overwrite_original", w.path)
	if err != nil {
		return err
	}
	if strings.Contains(out, "0 image files updated") {
		return fmt.Errorf("exiftool did not update %s setting %s: %s", w.path, tag, strings.TrimSpace(out))
	}
	return nil
}

// AddValues appends values to a multi-valued tag with -TAG+=VALUE.
func (w *fileWriter) AddValues(tag string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]string, 0, len(values)+2)
	for _, v := range values {
		args = append(args, fmt.Sprintf("-%s+=%s", tag, v))
	}
	args = append(args, "-overwrite_original", w.path)

	out, err := w.tool.execute(args...)
	if err != nil {
		return err
	}
	if strings.Contains(out, "0 image files updated") {
		return fmt.Errorf("exiftool did not update %s appending to %s: %s", w.path, tag, strings.TrimSpace(out))
	}
	return nil
}

var _ px.ExifWriterFactory = (*Tool)(nil)
