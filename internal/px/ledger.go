package px

import "time"

// Ledger is the persistent record of a prior export. It is the single source
// of truth for "what did we last put at path P, and does it match asset U";
// that is never inferred from filesystem content alone.
//
// Getters return the zero value (empty string, nil signature) when no entry
// exists. Setters are fire-and-forget: there is no rollback across calls, so
// whenever a destination's source content changes the caller must write in
// the order uuid, info, orig-signature, exif-signature (reset), exif-payload
// (reset) to avoid stale cross-field state.
type Ledger interface {
	// UUIDForPath returns the uuid of the asset last exported to path,
	// or "" if the path is untracked.
	UUIDForPath(path string) (string, error)
	SetUUIDForPath(path, uuid string) error

	// InfoForUUID returns the cached JSON metadata for an asset, or "".
	InfoForUUID(uuid string) (string, error)
	SetInfoForUUID(uuid, infoJSON string) error

	// OrigSignature is the signature of the last-exported source copy at
	// path. Nil means no signature is recorded.
	OrigSignature(path string) (*Signature, error)
	SetOrigSignature(path string, sig Signature) error

	// ExifSignature covers the state of the file after EXIF embedding,
	// which mutates the file and so diverges from the original signature.
	// A nil sig on set resets the stored value.
	ExifSignature(path string) (*Signature, error)
	SetExifSignature(path string, sig *Signature) error

	// ExifPayload is the last rendered EXIF sidecar JSON written to path,
	// kept for change detection without re-invoking exiftool. An empty
	// payload on set resets the stored value.
	ExifPayload(path string) (string, error)
	SetExifPayload(path, payload string) error

	// RecordRun notes the start of one export run for bookkeeping.
	RecordRun(id, mode string, at time.Time) error

	Close() error
}

// NopLedger discards every write and reports every path as untracked. It is
// the ledger used when incremental mode is disabled: the resolver and
// materializer then behave as if every file is new, which is the correct
// degenerate behavior for a non-incremental export.
type NopLedger struct{}

func NewNopLedger() *NopLedger { return &NopLedger{} }

func (*NopLedger) UUIDForPath(string) (string, error)        { return "", nil }
func (*NopLedger) SetUUIDForPath(string, string) error       { return nil }
func (*NopLedger) InfoForUUID(string) (string, error)        { return "", nil }
func (*NopLedger) SetInfoForUUID(string, string) error       { return nil }
func (*NopLedger) OrigSignature(string) (*Signature, error)  { return nil, nil }
func (*NopLedger) SetOrigSignature(string, Signature) error  { return nil }
func (*NopLedger) ExifSignature(string) (*Signature, error)  { return nil, nil }
func (*NopLedger) SetExifSignature(string, *Signature) error { return nil }
func (*NopLedger) ExifPayload(string) (string, error)        { return "", nil }
func (*NopLedger) SetExifPayload(string, string) error       { return nil }
func (*NopLedger) RecordRun(string, string, time.Time) error { return nil }
func (*NopLedger) Close() error                              { return nil }

var _ Ledger = (*NopLedger)(nil)
