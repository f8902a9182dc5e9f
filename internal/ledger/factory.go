package ledger

import (
	"fmt"
	"path/filepath"

	"px-go/internal/config"
	"px-go/internal/px"
)

// NewLedgerFromConfig creates a px.Ledger for an export rooted at exportRoot,
// based on the ledger config type. Type "off" disables incremental state
// entirely.
func NewLedgerFromConfig(cfg config.LedgerConfig, exportRoot string, clock px.Clock) (px.Ledger, error) {
	switch cfg.Type {
	case "", "sqlite":
		name := cfg.Filename
		if name == "" {
			name = Filename
		}
		return NewSQLiteLedger(filepath.Join(exportRoot, name), clock)
	case "off":
		return px.NewNopLedger(), nil
	default:
		return nil, fmt.Errorf("unknown ledger type: %s", cfg.Type)
	}
}
