package px

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotEdited is returned when an edited export is requested for an asset
// that has no adjustments.
var ErrNotEdited = errors.New("asset has no adjustments, cannot export edited version")

// editedIdentifier is the stem suffix for exported edited versions,
// e.g. photo_edited.jpeg.
const editedIdentifier = "_edited"

// liveVideoExt is the container extension of live-photo video companions.
const liveVideoExt = ".mov"

// defaultFetchTimeout bounds the remote automation call when the caller did
// not set one.
const defaultFetchTimeout = 120 * time.Second

// Exporter drives the export of one asset: destination resolution, file
// materialization for the primary file and its companions, and metadata
// synthesis. One asset is processed fully before Export returns; callers
// parallelize across assets if throughput matters.
type Exporter struct {
	ledger   Ledger
	fs       FileManager
	resolver *Resolver
	mat      *Materializer
	synth    *Synthesizer
	exif     ExifWriterFactory
	fetcher  Fetcher
	renderer TemplateRenderer
	logger   Logger
}

// NewExporter creates an Exporter with the provided dependencies. exif and
// fetcher may be nil when EXIF embedding or remote fetch are not used.
func NewExporter(ledger Ledger, fs FileManager, exif ExifWriterFactory, fetcher Fetcher, renderer TemplateRenderer, logger Logger) *Exporter {
	return &Exporter{
		ledger:   ledger,
		fs:       fs,
		resolver: NewResolver(ledger, fs, logger),
		mat:      NewMaterializer(ledger, fs, logger),
		synth:    NewSynthesizer(renderer, logger),
		exif:     exif,
		fetcher:  fetcher,
		renderer: renderer,
		logger:   logger,
	}
}

// Export orchestrates the full export of one asset per the request: it
// expands the destination directory list, exports the primary file and the
// edited companion into each directory, and aggregates the results. A
// missing asset yields an empty result, not an error.
func (e *Exporter) Export(ctx context.Context, asset *Asset, req Request) (*Results, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if !e.fs.IsDir(req.Dest) {
		return nil, fmt.Errorf("export destination is not a directory: %s", req.Dest)
	}

	results := &Results{}

	if !req.DownloadMissing {
		if asset.IsMissing {
			e.logger.Warn("skipping missing asset", "uuid", asset.UUID, "filename", asset.Filename)
			return results, nil
		}
		if asset.OriginalPath == "" || !e.fs.Exists(asset.OriginalPath) {
			e.logger.Warn("file is missing but asset not flagged missing, skipping",
				"uuid", asset.UUID, "path", asset.OriginalPath)
			return results, nil
		}
	} else if asset.IsMissing && (!asset.IsCloudAsset || !asset.IsInCloud) {
		// Remote fetch can only produce assets that live in the cloud
		// store and are actually present there.
		e.logger.Warn("skipping missing asset: not a cloud asset or not in cloud",
			"uuid", asset.UUID, "filename", asset.Filename)
		return results, nil
	}

	filename := req.Filename
	if filename == "" {
		if req.OriginalName {
			filename = asset.OriginalFilename
		} else {
			filename = asset.Filename
		}
	}

	destDirs, err := e.destinationDirs(asset, req)
	if err != nil {
		return nil, err
	}

	useFetch := req.DownloadMissing && (asset.IsMissing || !e.fs.Exists(asset.OriginalPath))

	for _, dir := range destDirs {
		opts := req.Options
		opts.Edited = false
		opts.UsePhotosExport = useFetch

		res, err := e.ExportDir(ctx, asset, dir, filename, opts)
		if err != nil {
			return nil, err
		}
		results.Extend(res)

		if req.Options.Edited && asset.HasAdjustments {
			res, err := e.exportEdited(ctx, asset, dir, filename, req)
			if err != nil {
				return nil, err
			}
			results.Extend(res)
		}
	}

	return results, nil
}

// exportEdited exports the edited companion of asset into dir, naming it
// <stem>_edited<edited ext>.
func (e *Exporter) exportEdited(ctx context.Context, asset *Asset, dir, filename string, req Request) (*Results, error) {
	useFetch := req.DownloadMissing && asset.EditedPath == ""
	if !req.DownloadMissing && asset.EditedPath == "" {
		e.logger.Warn("skipping missing edited file", "uuid", asset.UUID, "filename", filename)
		return &Results{}, nil
	}

	suffix := filepath.Ext(asset.EditedPath)
	if suffix == "" {
		// Will be corrected by the fetch path if used.
		suffix = filepath.Ext(asset.Filename)
	}
	editedName := stemOf(filename) + editedIdentifier + suffix

	opts := req.Options
	opts.Edited = true
	opts.UsePhotosExport = useFetch
	return e.ExportDir(ctx, asset, dir, editedName, opts)
}

// destinationDirs expands the request into the list of directories to export
// into, creating them as needed.
func (e *Exporter) destinationDirs(asset *Asset, req Request) ([]string, error) {
	switch {
	case req.ExportByDate:
		d := asset.DateCreated
		dir := filepath.Join(req.Dest,
			fmt.Sprintf("%04d", d.Year()), fmt.Sprintf("%02d", d.Month()), fmt.Sprintf("%02d", d.Day()))
		if err := e.fs.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("creating date directory: %w", err)
		}
		return []string{dir}, nil

	case req.DirectoryTemplate != "":
		rendered, unmatched := e.renderer.Render(req.DirectoryTemplate, asset, noneSentinel, string(filepath.Separator))
		if len(unmatched) > 0 {
			return nil, fmt.Errorf("invalid substitution in directory template %q: %s",
				req.DirectoryTemplate, strings.Join(unmatched, ", "))
		}
		dirs := make([]string, 0, len(rendered))
		for _, name := range rendered {
			dir := filepath.Join(req.Dest, sanitizeDirname(name))
			if err := e.fs.MkdirAll(dir); err != nil {
				return nil, fmt.Errorf("creating template directory: %w", err)
			}
			dirs = append(dirs, dir)
		}
		return dirs, nil

	default:
		return []string{req.Dest}, nil
	}
}

// ExportDir exports one variant of the asset (original or edited, per
// opts.Edited) into a single destination directory, together with its live
// and RAW companions and metadata output. This is the per-directory engine
// underneath Export; callers that manage their own directory expansion can
// use it directly.
func (e *Exporter) ExportDir(ctx context.Context, asset *Asset, destDir, filename string, opts Options) (*Results, error) {
	if opts.Edited && !asset.HasAdjustments {
		return nil, ErrNotEdited
	}
	if destDir == "" || !e.fs.IsDir(destDir) {
		return nil, fmt.Errorf("invalid export destination: %q", destDir)
	}

	fname, err := e.exportFilename(asset, filename, opts)
	if err != nil {
		return nil, err
	}
	e.warnOnSuffixMismatch(asset, fname, opts)

	results := &Results{}
	dest := filepath.Join(destDir, fname)

	if !opts.UsePhotosExport {
		src, err := e.sourcePath(asset, opts)
		if err != nil {
			return nil, err
		}

		dest, err = e.resolver.Resolve(asset, src, destDir, fname, opts)
		if err != nil {
			return nil, err
		}

		res, err := e.mat.Materialize(asset, src, dest, opts)
		if err != nil {
			return nil, err
		}
		results.Extend(res)

		if opts.LivePhoto && asset.IsLivePhoto {
			if asset.LiveVideoPath != "" {
				liveDest := filepath.Join(destDir, stemOf(filepath.Base(dest))+liveVideoExt)
				e.logger.Debug("exporting live video companion", "dest", liveDest)
				res, err := e.mat.Materialize(asset, asset.LiveVideoPath, liveDest, opts)
				if err != nil {
					return nil, err
				}
				results.Extend(res)
			} else {
				e.logger.Debug("skipping missing live video", "uuid", asset.UUID)
			}
		}

		if opts.RAWPhoto && asset.HasRAW {
			if asset.RAWPath != "" {
				rawDest := filepath.Join(destDir, stemOf(filepath.Base(dest))+filepath.Ext(asset.RAWPath))
				e.logger.Debug("exporting RAW companion", "dest", rawDest)
				res, err := e.mat.Materialize(asset, asset.RAWPath, rawDest, opts)
				if err != nil {
					return nil, err
				}
				results.Extend(res)
			} else {
				e.logger.Debug("skipping missing RAW companion", "uuid", asset.UUID)
			}
		}
	} else {
		fetched, err := e.fetch(ctx, asset, destDir, dest, opts)
		if err != nil {
			// Fetch failures are warnings; the export continues with
			// whatever else was produced.
			e.logger.Warn("remote fetch failed", "uuid", asset.UUID, "dest", dest, "error", err)
		} else {
			results.Exported = append(results.Exported, fetched...)
		}
	}

	if err := e.writeSidecars(asset, dest, opts); err != nil {
		return nil, err
	}

	if err := e.embedExif(asset, results, opts); err != nil {
		return nil, err
	}

	return results, nil
}

// exportFilename determines the exported filename when none was supplied.
func (e *Exporter) exportFilename(asset *Asset, filename string, opts Options) (string, error) {
	if filename != "" {
		return filename, nil
	}
	if opts.Edited {
		if opts.UsePhotosExport {
			// The automation path always produces a jpeg for edited
			// versions.
			return stemOf(asset.Filename) + editedIdentifier + ".jpeg", nil
		}
		// Photos saves edited versions in a new container, so the
		// extension comes from the edited file.
		if asset.EditedPath == "" {
			return "", fmt.Errorf("edited export requested but asset %s has no edited path", asset.UUID)
		}
		return stemOf(asset.Filename) + editedIdentifier + filepath.Ext(asset.EditedPath), nil
	}
	return asset.Filename, nil
}

// warnOnSuffixMismatch logs when the requested filename extension does not
// match the actual source extension. The .jpg/.jpeg pair is exempt since
// Photos freely converts between the two.
func (e *Exporter) warnOnSuffixMismatch(asset *Asset, fname string, opts Options) {
	var actual string
	switch {
	case opts.Edited && asset.EditedPath != "":
		actual = filepath.Ext(asset.EditedPath)
	case opts.Edited:
		actual = ".jpeg"
	default:
		actual = filepath.Ext(asset.Filename)
	}

	got := strings.ToLower(filepath.Ext(fname))
	want := strings.ToLower(actual)
	if got == want {
		return
	}
	if (got == ".jpg" && want == ".jpeg") || (got == ".jpeg" && want == ".jpg") {
		return
	}
	e.logger.Warn("destination suffix does not match source", "got", got, "want", want, "filename", fname)
}

// sourcePath returns the library file to export for this call.
func (e *Exporter) sourcePath(asset *Asset, opts Options) (string, error) {
	var src string
	if opts.Edited {
		if asset.EditedPath == "" {
			return "", fmt.Errorf("cannot export edited version of %s: no edited path", asset.UUID)
		}
		src = asset.EditedPath
	} else {
		if asset.IsMissing {
			e.logger.Debug("exporting asset flagged missing", "uuid", asset.UUID, "path", asset.OriginalPath)
		}
		if asset.OriginalPath == "" {
			return "", fmt.Errorf("cannot export %s: no original path", asset.UUID)
		}
		src = asset.OriginalPath
	}
	if !e.fs.Exists(src) {
		return "", fmt.Errorf("source file does not exist: %s", src)
	}
	return src, nil
}

// fetch exports through the remote automation path.
func (e *Exporter) fetch(ctx context.Context, asset *Asset, destDir, dest string, opts Options) ([]string, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("remote fetch requested but no fetcher configured")
	}

	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	livePhoto := opts.LivePhoto && asset.IsLivePhoto
	filestem := stemOf(filepath.Base(dest))
	return e.fetcher.Fetch(ctx, asset.UUID, destDir, filestem, !opts.Edited, opts.Edited, livePhoto, asset.IsBurst)
}

// writeSidecars writes the JSON and XMP sidecars next to dest as requested.
// Render failures and write failures are logged and propagated.
func (e *Exporter) writeSidecars(asset *Asset, dest string, opts Options) error {
	stem := filepath.Join(filepath.Dir(dest), stemOf(filepath.Base(dest)))

	if opts.SidecarJSON {
		path := stem + ".json"
		e.logger.Debug("writing json sidecar", "path", path)
		content, err := e.synth.JSONSidecar(asset, opts)
		if err != nil {
			e.logger.Error("rendering json sidecar failed", "path", path, "error", err)
			return err
		}
		if err := e.synth.WriteSidecar(path, content); err != nil {
			e.logger.Error("writing json sidecar failed", "path", path, "error", err)
			return err
		}
	}

	if opts.SidecarXMP {
		path := stem + ".xmp"
		e.logger.Debug("writing xmp sidecar", "path", path)
		content, err := e.synth.XMPSidecar(asset, opts)
		if err != nil {
			e.logger.Error("rendering xmp sidecar failed", "path", path, "error", err)
			return err
		}
		if err := e.synth.WriteSidecar(path, content); err != nil {
			e.logger.Error("writing xmp sidecar failed", "path", path, "error", err)
			return err
		}
	}

	return nil
}

// embedExif writes metadata into the exported files via exiftool. In update
// mode the candidate set is everything touched this run (new, updated and
// skipped paths) and embedding is skipped for files whose cached payload
// matches the freshly rendered one; otherwise only freshly exported paths
// are embedded, unconditionally.
func (e *Exporter) embedExif(asset *Asset, results *Results, opts Options) error {
	if !opts.Exiftool {
		return nil
	}
	if e.exif == nil {
		return fmt.Errorf("exiftool embedding requested but no exif writer configured")
	}

	var files []string
	if opts.Update {
		files = append(files, results.New...)
		files = append(files, results.Updated...)
		files = append(files, results.Skipped...)
	} else {
		files = append(files, results.Exported...)
	}

	payload, err := e.synth.JSONSidecar(asset, opts)
	if err != nil {
		return err
	}

	for _, file := range files {
		if opts.Update {
			cached, err := e.ledger.ExifPayload(file)
			if err != nil {
				return fmt.Errorf("reading cached exif payload for %s: %w", file, err)
			}
			if cached != "" && SidecarsEqual(cached, payload) {
				e.logger.Debug("exif data unchanged", "path", file)
				continue
			}
		}

		e.logger.Debug("writing exif data", "path", file)
		w, err := e.exif.Writer(file)
		if err != nil {
			return fmt.Errorf("binding exif writer to %s: %w", file, err)
		}
		if err := e.synth.WriteExif(w, asset, opts); err != nil {
			return fmt.Errorf("embedding exif in %s: %w", file, err)
		}

		if err := e.ledger.SetExifPayload(file, payload); err != nil {
			return fmt.Errorf("recording exif payload for %s: %w", file, err)
		}
		sig, err := FileSignature(file)
		if err != nil {
			return err
		}
		if err := e.ledger.SetExifSignature(file, &sig); err != nil {
			return fmt.Errorf("recording exif signature for %s: %w", file, err)
		}
		results.ExifUpdated = append(results.ExifUpdated, file)
	}

	return nil
}

// stemOf returns name without its extension.
func stemOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// sanitizeDirname strips characters that are invalid in directory names,
// keeping path separators so templates can produce nested layouts.
func sanitizeDirname(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20, strings.ContainsRune(`<>:"|?*`, r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	return strings.Trim(sb.String(), " .")
}
