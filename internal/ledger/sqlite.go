// Package ledger provides the persistent export-state store.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"px-go/internal/ledger/migrations"
	"px-go/internal/px"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Filename is the fixed name of the ledger database, created alongside the
// export root.
const Filename = ".px_export.db"

// SQLiteLedger implements px.Ledger on a SQLite file. A process-level mutex
// serializes access so multiple per-asset workers can share one ledger.
type SQLiteLedger struct {
	mu    sync.Mutex
	db    *sql.DB
	clock px.Clock
	path  string
}

// NewSQLiteLedger opens (or creates) the ledger at path and migrates it to
// the latest schema. path can be ":memory:" for an in-memory ledger.
func NewSQLiteLedger(path string, clock px.Clock) (*SQLiteLedger, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating ledger %s: %w", path, err)
	}
	return &SQLiteLedger{db: db, clock: clock, path: path}, nil
}

// NewSQLiteLedgerFromDB wraps an existing connection. The caller is
// responsible for the connection's configuration and schema.
func NewSQLiteLedgerFromDB(db *sql.DB, clock px.Clock) *SQLiteLedger {
	return &SQLiteLedger{db: db, clock: clock}
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the ledger needs. Exported for tests and tools.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	// Wait for concurrent writers instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

func (l *SQLiteLedger) UUIDForPath(path string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var uuid string
	err := l.db.QueryRow("SELECT uuid FROM export_files WHERE path = ?", path).Scan(&uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading uuid for %s: %w", path, err)
	}
	return uuid, nil
}

func (l *SQLiteLedger) SetUUIDForPath(path, uuid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`
		INSERT INTO export_files (path, uuid, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET uuid = excluded.uuid, updated_at = excluded.updated_at`,
		path, uuid, l.now())
	if err != nil {
		return fmt.Errorf("writing uuid for %s: %w", path, err)
	}
	return nil
}

func (l *SQLiteLedger) InfoForUUID(uuid string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var info string
	err := l.db.QueryRow("SELECT info_json FROM asset_info WHERE uuid = ?", uuid).Scan(&info)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading info for %s: %w", uuid, err)
	}
	return info, nil
}

func (l *SQLiteLedger) SetInfoForUUID(uuid, infoJSON string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`
		INSERT INTO asset_info (uuid, info_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (uuid) DO UPDATE SET info_json = excluded.info_json, updated_at = excluded.updated_at`,
		uuid, infoJSON, l.now())
	if err != nil {
		return fmt.Errorf("writing info for %s: %w", uuid, err)
	}
	return nil
}

func (l *SQLiteLedger) OrigSignature(path string) (*px.Signature, error) {
	return l.signature(path, "orig_size", "orig_mtime", "orig_name")
}

func (l *SQLiteLedger) SetOrigSignature(path string, sig px.Signature) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`
		INSERT INTO export_files (path, uuid, orig_size, orig_mtime, orig_name, updated_at)
		VALUES (?, '', ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			orig_size = excluded.orig_size,
			orig_mtime = excluded.orig_mtime,
			orig_name = excluded.orig_name,
			updated_at = excluded.updated_at`,
		path, sig.Size, sig.Mtime, sig.Name, l.now())
	if err != nil {
		return fmt.Errorf("writing signature for %s: %w", path, err)
	}
	return nil
}

func (l *SQLiteLedger) ExifSignature(path string) (*px.Signature, error) {
	return l.signature(path, "exif_size", "exif_mtime", "exif_name")
}

func (l *SQLiteLedger) SetExifSignature(path string, sig *px.Signature) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var size, mtime sql.NullInt64
	var name sql.NullString
	if sig != nil {
		size = sql.NullInt64{Int64: sig.Size, Valid: true}
		mtime = sql.NullInt64{Int64: sig.Mtime, Valid: true}
		name = sql.NullString{String: sig.Name, Valid: true}
	}

	_, err := l.db.Exec(`
		INSERT INTO export_files (path, uuid, exif_size, exif_mtime, exif_name, updated_at)
		VALUES (?, '', ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			exif_size = excluded.exif_size,
			exif_mtime = excluded.exif_mtime,
			exif_name = excluded.exif_name,
			updated_at = excluded.updated_at`,
		path, size, mtime, name, l.now())
	if err != nil {
		return fmt.Errorf("writing exif signature for %s: %w", path, err)
	}
	return nil
}

func (l *SQLiteLedger) ExifPayload(path string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var payload sql.NullString
	err := l.db.QueryRow("SELECT exif_json FROM export_files WHERE path = ?", path).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading exif payload for %s: %w", path, err)
	}
	return payload.String, nil
}

func (l *SQLiteLedger) SetExifPayload(path, payload string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	value := sql.NullString{String: payload, Valid: payload != ""}
	_, err := l.db.Exec(`
		INSERT INTO export_files (path, uuid, exif_json, updated_at) VALUES (?, '', ?, ?)
		ON CONFLICT (path) DO UPDATE SET exif_json = excluded.exif_json, updated_at = excluded.updated_at`,
		path, value, l.now())
	if err != nil {
		return fmt.Errorf("writing exif payload for %s: %w", path, err)
	}
	return nil
}

func (l *SQLiteLedger) RecordRun(id, mode string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.Exec("INSERT INTO runs (id, mode, started_at) VALUES (?, ?, ?)", id, mode, at); err != nil {
		return fmt.Errorf("recording run %s: %w", id, err)
	}
	return nil
}

// Stats summarizes the ledger's contents.
type Stats struct {
	Files  int64
	Assets int64
	Runs   int64
}

// Stats counts the rows in each ledger table.
func (l *SQLiteLedger) Stats() (*Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Stats
	if err := l.db.QueryRow("SELECT COUNT(*) FROM export_files").Scan(&s.Files); err != nil {
		return nil, fmt.Errorf("counting export files: %w", err)
	}
	if err := l.db.QueryRow("SELECT COUNT(*) FROM asset_info").Scan(&s.Assets); err != nil {
		return nil, fmt.Errorf("counting assets: %w", err)
	}
	if err := l.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&s.Runs); err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}
	return &s, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) signature(path, sizeCol, mtimeCol, nameCol string) (*px.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var size, mtime sql.NullInt64
	var name sql.NullString
	query := fmt.Sprintf("SELECT %s, %s, %s FROM export_files WHERE path = ?", sizeCol, mtimeCol, nameCol)
	err := l.db.QueryRow(query, path).Scan(&size, &mtime, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading signature for %s: %w", path, err)
	}
	if !size.Valid || !mtime.Valid || !name.Valid {
		return nil, nil
	}
	return &px.Signature{Size: size.Int64, Mtime: mtime.Int64, Name: name.String}, nil
}

func (l *SQLiteLedger) now() time.Time {
	if l.clock == nil {
		return time.Now()
	}
	return l.clock.Now()
}

var _ px.Ledger = (*SQLiteLedger)(nil)
