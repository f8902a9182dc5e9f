package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for px.
type Config struct {
	LogDir   string         `toml:"log_dir"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Exiftool ExiftoolConfig `toml:"exiftool"`
	Fetch    FetchConfig    `toml:"fetch"`
	Export   ExportConfig   `toml:"export"`
}

// LedgerConfig selects the incremental-state store. This uses a tagged union
// pattern: Type determines which other fields are relevant.
type LedgerConfig struct {
	Type     string `toml:"type"`               // "sqlite" (default) or "off"
	Filename string `toml:"filename,omitempty"` // ledger file name inside the export root
}

// ExiftoolConfig locates the external metadata tool.
type ExiftoolConfig struct {
	Path string `toml:"path"` // exiftool binary; resolved from PATH when empty
}

// FetchConfig configures the remote-fetch automation path.
type FetchConfig struct {
	Command        string `toml:"command"` // automation executable invoked per fetch
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ExportConfig holds default export behavior, overridable per run by CLI
// flags.
type ExportConfig struct {
	Increment     bool `toml:"increment"`
	PreserveXattr bool `toml:"preserve_xattr"`
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir: filepath.Join(baseDir, "log"),
		Ledger: LedgerConfig{Type: "sqlite"},
		Fetch:  FetchConfig{TimeoutSeconds: 120},
		Export: ExportConfig{Increment: true, PreserveXattr: true},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
