package px

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrDestinationExists is returned when the destination path is occupied and
// neither overwrite nor increment was permitted.
var ErrDestinationExists = errors.New("destination exists")

// Resolver turns a requested directory + filename into the final destination
// path for one asset. It handles stem-based name collisions, reclaims
// pre-existing exports that belong to the same asset, and mints incremented
// names for genuinely new collisions.
type Resolver struct {
	ledger Ledger
	fs     FileManager
	logger Logger
}

func NewResolver(ledger Ledger, fs FileManager, logger Logger) *Resolver {
	return &Resolver{ledger: ledger, fs: fs, logger: logger}
}

// Resolve determines the destination path for exporting src as dir/filename.
// src is the source file the destination will hold; it is consulted when an
// untracked destination must be compared byte-for-byte for adoption.
func (r *Resolver) Resolve(asset *Asset, src, dir, filename string, opts Options) (string, error) {
	dest := filepath.Join(dir, filename)

	// Collisions are disambiguated on the filename stem, not the full
	// name, so that photo.heic and its photo.json/photo.xmp sidecars stay
	// paired after incrementing.
	if !opts.Update && opts.Increment && !opts.Overwrite {
		var err error
		dest, err = r.incrementPath(dest)
		if err != nil {
			return "", err
		}
	}

	if r.fs.Exists(dest) && !opts.Update && !opts.Overwrite && !opts.Increment {
		return "", fmt.Errorf("%w: %s (overwrite=%t, increment=%t)",
			ErrDestinationExists, dest, opts.Overwrite, opts.Increment)
	}

	if opts.Update && r.fs.Exists(dest) {
		var err error
		dest, err = r.reclaim(asset, src, dest)
		if err != nil {
			return "", err
		}
	}

	return dest, nil
}

// reclaim finds the destination that already belongs to asset, adopting
// untracked byte-identical files along the way, or mints a fresh incremented
// path when the existing ones are owned by different assets.
func (r *Resolver) reclaim(asset *Asset, src, dest string) (string, error) {
	uuid, err := r.ledger.UUIDForPath(dest)
	if err != nil {
		return "", fmt.Errorf("looking up ledger owner of %s: %w", dest, err)
	}

	if uuid == "" {
		// Possibly an export from before the ledger existed, or the
		// ledger was deleted. Adopt the file if it matches the source.
		equal, err := r.fs.FilesEqual(src, dest)
		if err != nil {
			return "", fmt.Errorf("comparing %s to %s: %w", src, dest, err)
		}
		if equal {
			r.logger.Debug("adopting untracked identical file", "path", dest, "uuid", asset.UUID)
			if err := r.adopt(asset, dest); err != nil {
				return "", err
			}
			uuid = asset.UUID
		}
	}

	if uuid == asset.UUID {
		return dest, nil
	}

	// The path is occupied by a different asset. Look for a sibling
	// "stem (*)<ext>" that is ours, or untracked but identical.
	r.logger.Debug("destination owned by different asset", "dest", dest, "owner", uuid, "uuid", asset.UUID)
	siblings, err := r.incrementedSiblings(dest)
	if err != nil {
		return "", err
	}
	for _, sibling := range siblings {
		u, err := r.ledger.UUIDForPath(sibling)
		if err != nil {
			return "", fmt.Errorf("looking up ledger owner of %s: %w", sibling, err)
		}
		if u == asset.UUID {
			r.logger.Debug("found existing export", "path", sibling, "uuid", asset.UUID)
			return sibling, nil
		}
		if u == "" {
			equal, err := r.fs.FilesEqual(src, sibling)
			if err != nil {
				return "", fmt.Errorf("comparing %s to %s: %w", src, sibling, err)
			}
			if equal {
				r.logger.Debug("adopting untracked identical sibling", "path", sibling, "uuid", asset.UUID)
				if err := r.adopt(asset, sibling); err != nil {
					return "", err
				}
				return sibling, nil
			}
		}
	}

	// No sibling matched; mint a fresh incremented path.
	fresh, err := r.incrementPath(dest)
	if err != nil {
		return "", err
	}
	r.logger.Debug("minting fresh destination", "path", fresh, "uuid", asset.UUID)
	return fresh, nil
}

// adopt backfills a ledger entry for an existing destination file that was
// found to match the asset's source. The exif fields are reset because
// nothing is known about prior embedding.
func (r *Resolver) adopt(asset *Asset, dest string) error {
	if err := r.ledger.SetUUIDForPath(dest, asset.UUID); err != nil {
		return fmt.Errorf("recording uuid for %s: %w", dest, err)
	}
	if err := r.ledger.SetInfoForUUID(asset.UUID, asset.JSON()); err != nil {
		return fmt.Errorf("recording info for %s: %w", asset.UUID, err)
	}
	sig, err := FileSignature(dest)
	if err != nil {
		return err
	}
	if err := r.ledger.SetOrigSignature(dest, sig); err != nil {
		return fmt.Errorf("recording signature for %s: %w", dest, err)
	}
	if err := r.ledger.SetExifSignature(dest, nil); err != nil {
		return fmt.Errorf("resetting exif signature for %s: %w", dest, err)
	}
	if err := r.ledger.SetExifPayload(dest, ""); err != nil {
		return fmt.Errorf("resetting exif payload for %s: %w", dest, err)
	}
	return nil
}

// incrementPath appends " (n)" to dest's stem for the smallest n >= 1 that
// does not collide with any existing stem in the directory.
func (r *Resolver) incrementPath(dest string) (string, error) {
	dir := filepath.Dir(dest)
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(filepath.Base(dest), ext)

	names, err := r.fs.ListDir(dir)
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", dir, err)
	}
	taken := make(map[string]bool, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, stem) {
			taken[strings.TrimSuffix(name, filepath.Ext(name))] = true
		}
	}

	candidate := stem
	for n := 1; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s (%d)", stem, n)
	}
	return filepath.Join(dir, candidate+ext), nil
}

// incrementedSiblings returns the existing paths in dest's directory whose
// names match "stem (*)<ext>".
func (r *Resolver) incrementedSiblings(dest string) ([]string, error) {
	dir := filepath.Dir(dest)
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(filepath.Base(dest), ext)

	names, err := r.fs.ListDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var siblings []string
	for _, name := range names {
		if strings.HasPrefix(name, stem+" (") && strings.HasSuffix(name, ext) {
			siblings = append(siblings, filepath.Join(dir, name))
		}
	}
	return siblings, nil
}
