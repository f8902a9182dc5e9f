package testutil

import (
	"testing"

	"px-go/internal/ledger"
	"px-go/internal/ledger/migrations"
)

// NewTestLedger creates a new in-memory SQLite ledger with all migrations
// applied. The ledger is automatically closed when the test completes.
func NewTestLedger(t *testing.T) *ledger.SQLiteLedger {
	t.Helper()

	db, err := ledger.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open ledger database: %v", err)
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	l := ledger.NewSQLiteLedgerFromDB(db, FixedClock())

	t.Cleanup(func() {
		l.Close()
	})

	return l
}
