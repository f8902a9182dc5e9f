package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"px-go/internal/ledger/migrations"
	"px-go/internal/px"
)

// newTestLedger creates an in-memory ledger with all migrations applied.
func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()

	db, err := OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	l := NewSQLiteLedgerFromDB(db, nil)
	t.Cleanup(func() {
		l.Close()
	})
	return l
}

func TestSQLiteLedger_UUIDForPath(t *testing.T) {
	t.Run("returns empty for untracked path", func(t *testing.T) {
		l := newTestLedger(t)

		uuid, err := l.UUIDForPath("/export/photo.jpg")
		if err != nil {
			t.Fatalf("UUIDForPath() error = %v", err)
		}
		if uuid != "" {
			t.Errorf("UUIDForPath() = %q, want empty", uuid)
		}
	})

	t.Run("round-trips and overwrites", func(t *testing.T) {
		l := newTestLedger(t)

		if err := l.SetUUIDForPath("/export/photo.jpg", "A-1"); err != nil {
			t.Fatalf("SetUUIDForPath() error = %v", err)
		}
		uuid, err := l.UUIDForPath("/export/photo.jpg")
		if err != nil {
			t.Fatalf("UUIDForPath() error = %v", err)
		}
		if uuid != "A-1" {
			t.Errorf("UUIDForPath() = %q, want A-1", uuid)
		}

		if err := l.SetUUIDForPath("/export/photo.jpg", "A-2"); err != nil {
			t.Fatalf("SetUUIDForPath() error = %v", err)
		}
		uuid, err = l.UUIDForPath("/export/photo.jpg")
		if err != nil {
			t.Fatalf("UUIDForPath() error = %v", err)
		}
		if uuid != "A-2" {
			t.Errorf("UUIDForPath() = %q, want A-2 after overwrite", uuid)
		}
	})
}

func TestSQLiteLedger_InfoForUUID(t *testing.T) {
	t.Run("returns empty for unknown uuid", func(t *testing.T) {
		l := newTestLedger(t)

		info, err := l.InfoForUUID("A-1")
		if err != nil {
			t.Fatalf("InfoForUUID() error = %v", err)
		}
		if info != "" {
			t.Errorf("InfoForUUID() = %q, want empty", info)
		}
	})

	t.Run("round-trips", func(t *testing.T) {
		l := newTestLedger(t)

		if err := l.SetInfoForUUID("A-1", `{"uuid":"A-1"}`); err != nil {
			t.Fatalf("SetInfoForUUID() error = %v", err)
		}
		info, err := l.InfoForUUID("A-1")
		if err != nil {
			t.Fatalf("InfoForUUID() error = %v", err)
		}
		if info != `{"uuid":"A-1"}` {
			t.Errorf("InfoForUUID() = %q", info)
		}
	})
}

func TestSQLiteLedger_OrigSignature(t *testing.T) {
	t.Run("returns nil for untracked path", func(t *testing.T) {
		l := newTestLedger(t)

		sig, err := l.OrigSignature("/export/photo.jpg")
		if err != nil {
			t.Fatalf("OrigSignature() error = %v", err)
		}
		if sig != nil {
			t.Errorf("OrigSignature() = %v, want nil", sig)
		}
	})

	t.Run("round-trips", func(t *testing.T) {
		l := newTestLedger(t)

		want := px.Signature{Size: 1024, Mtime: 1700000000, Name: "photo.jpg"}
		if err := l.SetOrigSignature("/export/photo.jpg", want); err != nil {
			t.Fatalf("SetOrigSignature() error = %v", err)
		}
		sig, err := l.OrigSignature("/export/photo.jpg")
		if err != nil {
			t.Fatalf("OrigSignature() error = %v", err)
		}
		if sig == nil || !sig.Equal(want) {
			t.Errorf("OrigSignature() = %v, want %v", sig, want)
		}
	})
}

func TestSQLiteLedger_ExifSignature(t *testing.T) {
	t.Run("nil signature resets the stored value", func(t *testing.T) {
		l := newTestLedger(t)

		sig := px.Signature{Size: 2048, Mtime: 1700000001, Name: "photo.jpg"}
		if err := l.SetExifSignature("/export/photo.jpg", &sig); err != nil {
			t.Fatalf("SetExifSignature() error = %v", err)
		}
		got, err := l.ExifSignature("/export/photo.jpg")
		if err != nil {
			t.Fatalf("ExifSignature() error = %v", err)
		}
		if got == nil || !got.Equal(sig) {
			t.Fatalf("ExifSignature() = %v, want %v", got, sig)
		}

		if err := l.SetExifSignature("/export/photo.jpg", nil); err != nil {
			t.Fatalf("SetExifSignature(nil) error = %v", err)
		}
		got, err = l.ExifSignature("/export/photo.jpg")
		if err != nil {
			t.Fatalf("ExifSignature() error = %v", err)
		}
		if got != nil {
			t.Errorf("ExifSignature() = %v, want nil after reset", got)
		}
	})

	t.Run("exif and orig signatures are independent", func(t *testing.T) {
		l := newTestLedger(t)

		orig := px.Signature{Size: 1, Mtime: 1, Name: "a"}
		exif := px.Signature{Size: 2, Mtime: 2, Name: "b"}
		if err := l.SetOrigSignature("/export/photo.jpg", orig); err != nil {
			t.Fatalf("SetOrigSignature() error = %v", err)
		}
		if err := l.SetExifSignature("/export/photo.jpg", &exif); err != nil {
			t.Fatalf("SetExifSignature() error = %v", err)
		}

		gotOrig, err := l.OrigSignature("/export/photo.jpg")
		if err != nil {
			t.Fatalf("OrigSignature() error = %v", err)
		}
		if gotOrig == nil || !gotOrig.Equal(orig) {
			t.Errorf("OrigSignature() = %v, want %v", gotOrig, orig)
		}
		gotExif, err := l.ExifSignature("/export/photo.jpg")
		if err != nil {
			t.Fatalf("ExifSignature() error = %v", err)
		}
		if gotExif == nil || !gotExif.Equal(exif) {
			t.Errorf("ExifSignature() = %v, want %v", gotExif, exif)
		}
	})
}

func TestSQLiteLedger_ExifPayload(t *testing.T) {
	t.Run("empty payload resets the stored value", func(t *testing.T) {
		l := newTestLedger(t)

		if err := l.SetExifPayload("/export/photo.jpg", `[{"XMP:Title":"Sunset"}]`); err != nil {
			t.Fatalf("SetExifPayload() error = %v", err)
		}
		payload, err := l.ExifPayload("/export/photo.jpg")
		if err != nil {
			t.Fatalf("ExifPayload() error = %v", err)
		}
		if payload != `[{"XMP:Title":"Sunset"}]` {
			t.Errorf("ExifPayload() = %q", payload)
		}

		if err := l.SetExifPayload("/export/photo.jpg", ""); err != nil {
			t.Fatalf("SetExifPayload(\"\") error = %v", err)
		}
		payload, err = l.ExifPayload("/export/photo.jpg")
		if err != nil {
			t.Fatalf("ExifPayload() error = %v", err)
		}
		if payload != "" {
			t.Errorf("ExifPayload() = %q, want empty after reset", payload)
		}
	})
}

func TestSQLiteLedger_Stats(t *testing.T) {
	l := newTestLedger(t)

	if err := l.SetUUIDForPath("/export/one.jpg", "A-1"); err != nil {
		t.Fatalf("SetUUIDForPath() error = %v", err)
	}
	if err := l.SetUUIDForPath("/export/two.jpg", "A-2"); err != nil {
		t.Fatalf("SetUUIDForPath() error = %v", err)
	}
	if err := l.SetInfoForUUID("A-1", "{}"); err != nil {
		t.Fatalf("SetInfoForUUID() error = %v", err)
	}
	if err := l.RecordRun("run-1", "export", time.Now()); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	stats, err := l.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Files != 2 {
		t.Errorf("Files = %d, want 2", stats.Files)
	}
	if stats.Assets != 1 {
		t.Errorf("Assets = %d, want 1", stats.Assets)
	}
	if stats.Runs != 1 {
		t.Errorf("Runs = %d, want 1", stats.Runs)
	}
}

func TestNewSQLiteLedger(t *testing.T) {
	t.Run("creates the database file and schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), Filename)

		l, err := NewSQLiteLedger(path, nil)
		if err != nil {
			t.Fatalf("NewSQLiteLedger() error = %v", err)
		}
		defer l.Close()

		if _, err := os.Stat(path); err != nil {
			t.Errorf("ledger file not created: %v", err)
		}
		if err := migrations.Check(l.db); err != nil {
			t.Errorf("Check() error = %v, want schema at latest version", err)
		}
	})
}
