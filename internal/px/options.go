package px

import "time"

// Options controls one per-directory export call. The zero value exports the
// original file by copy, without sidecars or incremental state.
type Options struct {
	// Edited exports the edited version of the asset. Requesting this on
	// an asset without adjustments is a hard error.
	Edited bool
	// LivePhoto also exports the live-video companion for live photos.
	LivePhoto bool
	// RAWPhoto also exports the RAW companion when the asset has one.
	RAWPhoto bool

	// ExportAsHardlink links files instead of copying them.
	ExportAsHardlink bool
	// Overwrite replaces an existing destination file.
	Overwrite bool
	// Increment disambiguates name collisions by appending " (n)" to the
	// filename stem until a free one is found.
	Increment bool
	// Update runs incrementally: unchanged destinations are skipped and
	// classified via the ledger.
	Update bool
	// NoXattr disables extended-attribute preservation during copy.
	NoXattr bool

	SidecarJSON bool
	SidecarXMP  bool
	// Exiftool embeds metadata directly into the exported files.
	Exiftool bool

	// UsePhotosExport fetches the asset through the remote automation path
	// instead of copying from the local library.
	UsePhotosExport bool
	// FetchTimeout bounds the remote automation call.
	FetchTimeout time.Duration

	UseAlbumsAsKeywords  bool
	UsePersonsAsKeywords bool
	// KeywordTemplates are template strings rendered into extra keywords.
	KeywordTemplates []string
}

// Request describes one orchestrated export of a single asset, possibly
// across several destination directories.
type Request struct {
	// Dest is the export root. Must be an existing directory.
	Dest string
	// Filename overrides the exported name. When empty the asset's current
	// filename is used (or the original one, see OriginalName).
	Filename string
	// OriginalName exports under the asset's original filename.
	OriginalName bool
	// DirectoryTemplate renders into one or more subdirectories of Dest.
	DirectoryTemplate string
	// ExportByDate lays files out under Dest/YYYY/MM/DD from the capture
	// time. Mutually exclusive with DirectoryTemplate.
	ExportByDate bool
	// DownloadMissing enables the remote-fetch path for assets whose
	// files are absent locally but present in the cloud store.
	DownloadMissing bool

	Options Options
}
