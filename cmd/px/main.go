package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"px-go/internal/app"
	"px-go/internal/config"
	"px-go/internal/px"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist yet.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	path := defaults["config_path"]
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.NewConfig(defaults["base_dir"]), nil
	}

	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaults["log_dir"]
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "px",
	Short: "Export photos and videos from a Photos library",
}

// config command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Ledger:      %s %s\n", cfg.Ledger.Type, cfg.Ledger.Filename)
		fmt.Printf("Exiftool:    %s\n", cfg.Exiftool.Path)
		fmt.Printf("Fetch:       %s (timeout %ds)\n", cfg.Fetch.Command, cfg.Fetch.TimeoutSeconds)
		return nil
	},
}

// export command

type exportFlags struct {
	assets          string
	update          bool
	overwrite       bool
	hardlink        bool
	noIncrement     bool
	sidecar         []string
	exiftool        bool
	live            bool
	raw             bool
	edited          bool
	downloadMissing bool
	directory       string
	exportByDate    bool
	originalName    bool
	albumKeyword    bool
	personKeyword   bool
	keywordTemplate []string
	noXattr         bool
	noLedger        bool
	verbose         bool
}

var exportOpts exportFlags

var exportCmd = &cobra.Command{
	Use:   "export DEST [FILENAME]",
	Short: "Export assets to a destination directory",
	Long: `Export reads an asset manifest (produced by the library reader) and
exports each asset's files to DEST, optionally writing metadata sidecars and
embedding EXIF data. FILENAME overrides the exported name, which only makes
sense for a single-asset manifest. With --update, only changed files are
re-exported.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := filepath.Clean(args[0])
		var filename string
		if len(args) > 1 {
			filename = args[1]
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		mode := "export"
		if exportOpts.update {
			mode = "update"
		}
		a, err := app.NewApp(cfg, app.Settings{
			ExportRoot: dest,
			Mode:       mode,
			NoLedger:   exportOpts.noLedger,
			Exiftool:   exportOpts.exiftool,
			Verbose:    exportOpts.verbose,
		})
		if err != nil {
			return fmt.Errorf("initializing: %w", err)
		}
		defer a.Close()

		assets, err := app.LoadAssets(exportOpts.assets)
		if err != nil {
			return err
		}

		req := px.Request{
			Dest:              dest,
			Filename:          filename,
			OriginalName:      exportOpts.originalName,
			DirectoryTemplate: exportOpts.directory,
			ExportByDate:      exportOpts.exportByDate,
			DownloadMissing:   exportOpts.downloadMissing,
			Options: px.Options{
				Edited:               exportOpts.edited,
				LivePhoto:            exportOpts.live,
				RAWPhoto:             exportOpts.raw,
				ExportAsHardlink:     exportOpts.hardlink,
				Overwrite:            exportOpts.overwrite,
				Increment:            !exportOpts.noIncrement,
				Update:               exportOpts.update,
				NoXattr:              exportOpts.noXattr || !cfg.Export.PreserveXattr,
				Exiftool:             exportOpts.exiftool,
				FetchTimeout:         time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
				UseAlbumsAsKeywords:  exportOpts.albumKeyword,
				UsePersonsAsKeywords: exportOpts.personKeyword,
				KeywordTemplates:     exportOpts.keywordTemplate,
			},
		}
		for _, s := range exportOpts.sidecar {
			switch s {
			case "json":
				req.Options.SidecarJSON = true
			case "xmp":
				req.Options.SidecarXMP = true
			default:
				return fmt.Errorf("unknown sidecar format: %s (want json or xmp)", s)
			}
		}

		results, err := a.ExportAssets(context.Background(), assets, req)
		if err != nil {
			return err
		}

		printSummary(results, a.Failed, exportOpts.update)
		if a.Failed > 0 {
			return fmt.Errorf("%d asset(s) failed to export", a.Failed)
		}
		return nil
	},
}

func printSummary(r *px.Results, failed int, update bool) {
	bold := color.New(color.Bold)
	bold.Printf("Exported %d file(s)\n", len(r.Exported))
	if update {
		color.Green("  new:     %d", len(r.New))
		color.Yellow("  updated: %d", len(r.Updated))
		fmt.Printf("  skipped: %d\n", len(r.Skipped))
	}
	if len(r.ExifUpdated) > 0 {
		fmt.Printf("  exif written: %d\n", len(r.ExifUpdated))
	}
	if failed > 0 {
		color.Red("  failed assets: %d", failed)
	}
}

// ledger command

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the export ledger",
}

var ledgerVerbose bool

var ledgerInfoCmd = &cobra.Command{
	Use:   "info DEST",
	Short: "Show ledger statistics for an export root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.NewApp(cfg, app.Settings{
			ExportRoot: filepath.Clean(args[0]),
			Mode:       "inspect",
			Verbose:    ledgerVerbose,
		})
		if err != nil {
			return fmt.Errorf("initializing: %w", err)
		}
		defer a.Close()

		stats, err := a.LedgerStats()
		if err != nil {
			return err
		}

		fmt.Printf("Tracked files: %d\n", stats.Files)
		fmt.Printf("Known assets:  %d\n", stats.Assets)
		fmt.Printf("Runs:          %d\n", stats.Runs)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOpts.assets, "assets", "", "asset manifest JSON file (required)")
	exportCmd.Flags().BoolVar(&exportOpts.update, "update", false, "only export new or changed files")
	exportCmd.Flags().BoolVar(&exportOpts.overwrite, "overwrite", false, "overwrite existing files")
	exportCmd.Flags().BoolVar(&exportOpts.hardlink, "hardlink", false, "hardlink files instead of copying")
	exportCmd.Flags().BoolVar(&exportOpts.noIncrement, "no-increment", false, "fail instead of incrementing colliding filenames")
	exportCmd.Flags().StringSliceVar(&exportOpts.sidecar, "sidecar", nil, "write metadata sidecars (json, xmp)")
	exportCmd.Flags().BoolVar(&exportOpts.exiftool, "exiftool", false, "embed metadata with exiftool")
	exportCmd.Flags().BoolVar(&exportOpts.live, "live", false, "also export live-photo video companions")
	exportCmd.Flags().BoolVar(&exportOpts.raw, "raw", false, "also export RAW companions")
	exportCmd.Flags().BoolVar(&exportOpts.edited, "edited", false, "also export edited versions")
	exportCmd.Flags().BoolVar(&exportOpts.downloadMissing, "download-missing", false, "fetch missing assets from the cloud store")
	exportCmd.Flags().StringVar(&exportOpts.directory, "directory", "", "directory template, e.g. '{created.year}/{album}'")
	exportCmd.Flags().BoolVar(&exportOpts.exportByDate, "export-by-date", false, "lay out files under YYYY/MM/DD")
	exportCmd.Flags().BoolVar(&exportOpts.originalName, "original-name", false, "use the original filename")
	exportCmd.Flags().BoolVar(&exportOpts.albumKeyword, "album-keyword", false, "include album names in keywords")
	exportCmd.Flags().BoolVar(&exportOpts.personKeyword, "person-keyword", false, "include person names in keywords")
	exportCmd.Flags().StringArrayVar(&exportOpts.keywordTemplate, "keyword-template", nil, "template rendered into extra keywords")
	exportCmd.Flags().BoolVar(&exportOpts.noXattr, "no-xattr", false, "do not preserve extended attributes")
	exportCmd.Flags().BoolVar(&exportOpts.noLedger, "no-ledger", false, "disable incremental export state")
	exportCmd.Flags().BoolVar(&exportOpts.verbose, "verbose", false, "enable debug logging")
	exportCmd.MarkFlagRequired("assets")

	ledgerInfoCmd.Flags().BoolVar(&ledgerVerbose, "verbose", false, "enable debug logging")

	configCmd.AddCommand(configInitCmd, configListCmd)
	ledgerCmd.AddCommand(ledgerInfoCmd)
	rootCmd.AddCommand(configCmd, exportCmd, ledgerCmd)
}
