package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"px-go/internal/config"
	"px-go/internal/exiftool"
	"px-go/internal/fetch"
	"px-go/internal/fs"
	"px-go/internal/ledger"
	"px-go/internal/px"
	"px-go/internal/tmpl"

	"github.com/google/uuid"
)

// App is the application layer between the CLI and the export engine. It
// constructs all dependencies from config and manages the ledger, exiftool
// process and log file lifecycles on Close.
type App struct {
	cfg      *config.Config
	ledger   px.Ledger
	exporter *px.Exporter
	logger   px.Logger
	tool     *exiftool.Tool
	logFile  io.Closer
	runID    string

	// Failed counts assets whose export was aborted by an error.
	Failed int
}

// Settings selects per-run behavior that affects wiring.
type Settings struct {
	// ExportRoot is the destination directory; the ledger lives beside it.
	ExportRoot string
	// Mode labels the run in the ledger ("export" or "update").
	Mode string
	// NoLedger disables incremental state for this run.
	NoLedger bool
	// Exiftool starts the external metadata process.
	Exiftool bool
	// Verbose enables debug logging.
	Verbose bool
}

// NewApp creates a fully wired App. The caller must call Close when done.
func NewApp(cfg *config.Config, st Settings) (*App, error) {
	clock := px.RealClock{}
	runID := uuid.New().String()

	logger, logFile, err := newLogger(cfg.LogDir, runID, st.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	ledgerCfg := cfg.Ledger
	if st.NoLedger {
		ledgerCfg.Type = "off"
	}
	led, err := ledger.NewLedgerFromConfig(ledgerCfg, st.ExportRoot, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if err := led.RecordRun(runID, st.Mode, clock.Now()); err != nil {
		led.Close()
		logFile.Close()
		return nil, fmt.Errorf("recording run: %w", err)
	}

	var tool *exiftool.Tool
	var exifFactory px.ExifWriterFactory
	if st.Exiftool {
		tool, err = exiftool.New(cfg.Exiftool.Path)
		if err != nil {
			led.Close()
			logFile.Close()
			return nil, fmt.Errorf("starting exiftool: %w", err)
		}
		exifFactory = tool
	}

	var fetcher px.Fetcher
	if cfg.Fetch.Command != "" {
		fetcher = fetch.NewCommandFetcher(cfg.Fetch.Command, log)
	}

	exporter := px.NewExporter(led, fs.NewManager(), exifFactory, fetcher, tmpl.NewRenderer(), log)

	return &App{
		cfg:      cfg,
		ledger:   led,
		exporter: exporter,
		logger:   log,
		tool:     tool,
		logFile:  logFile,
		runID:    runID,
	}, nil
}

// ExportAssets exports every asset per the request, aggregating results.
// A failed asset is logged and counted; processing continues with the rest.
func (a *App) ExportAssets(ctx context.Context, assets []*px.Asset, req px.Request) (*px.Results, error) {
	results := &px.Results{}
	for _, asset := range assets {
		res, err := a.exporter.Export(ctx, asset, req)
		if err != nil {
			a.logger.Error("export failed", "uuid", asset.UUID, "filename", asset.Filename, "error", err)
			a.Failed++
			continue
		}
		results.Extend(res)
	}
	return results, nil
}

// LoadAssets reads an asset manifest produced by the library reader.
func LoadAssets(path string) ([]*px.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading asset manifest: %w", err)
	}
	return px.AssetsFromJSON(data)
}

// LedgerStats reports on the ledger contents when the run uses a SQLite
// ledger.
func (a *App) LedgerStats() (*ledger.Stats, error) {
	sl, ok := a.ledger.(*ledger.SQLiteLedger)
	if !ok {
		return nil, fmt.Errorf("ledger is disabled for this run")
	}
	return sl.Stats()
}

// RunID identifies this invocation in logs and the ledger.
func (a *App) RunID() string { return a.runID }

// Close releases the ledger, the exiftool process, and the log file.
func (a *App) Close() error {
	var firstErr error
	if a.tool != nil {
		if err := a.tool.Close(); err != nil {
			a.logger.Error("closing exiftool", "error", err)
			firstErr = err
		}
	}
	if err := a.ledger.Close(); err != nil {
		a.logger.Error("closing ledger", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := a.logFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
