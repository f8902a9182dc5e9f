package px

import (
	"fmt"
)

// Materializer performs the copy or hardlink of one source file to one
// resolved destination, classifies the outcome, and records it in the ledger.
// Hardlink and copy mode differ only in the link/copy primitive and in how
// "identical" is judged: a hardlinked destination is trivially identical when
// it shares the source's inode, while a copied one needs a byte comparison
// (or, in exiftool mode, a signature match against the stored post-embedding
// state, since embedding mutates the destination bytes).
type Materializer struct {
	ledger Ledger
	fs     FileManager
	logger Logger
}

func NewMaterializer(ledger Ledger, fs FileManager, logger Logger) *Materializer {
	return &Materializer{ledger: ledger, fs: fs, logger: logger}
}

// Materialize exports src to dest. The destination is assumed to be fully
// resolved (ownership already settled by the Resolver).
func (m *Materializer) Materialize(asset *Asset, src, dest string, opts Options) (*Results, error) {
	if opts.ExportAsHardlink {
		return m.materializeLink(asset, src, dest, opts)
	}
	return m.materializeCopy(asset, src, dest, opts)
}

func (m *Materializer) materializeLink(asset *Asset, src, dest string, opts Options) (*Results, error) {
	res := &Results{}
	destExists := m.fs.Exists(dest)

	switch {
	case !opts.Update:
		if opts.Overwrite && destExists {
			if err := m.fs.Remove(dest); err != nil {
				return nil, fmt.Errorf("removing %s before link: %w", dest, err)
			}
		}
		m.logger.Debug("linking file", "src", src, "dest", dest)
		if err := m.link(asset, src, dest); err != nil {
			return nil, err
		}
		res.Exported = append(res.Exported, dest)

	case destExists:
		same, err := m.fs.SameFile(src, dest)
		if err != nil {
			return nil, fmt.Errorf("comparing inodes of %s and %s: %w", src, dest, err)
		}
		if same {
			// Already linked to the right file.
			m.logger.Debug("skipping same-file link", "src", src, "dest", dest)
			res.Skipped = append(res.Skipped, dest)
			break
		}
		// Prior run may not have used hardlinks; replace the copy.
		m.logger.Debug("replacing existing file with link", "src", src, "dest", dest)
		if err := m.fs.Remove(dest); err != nil {
			return nil, fmt.Errorf("removing %s before link: %w", dest, err)
		}
		if err := m.link(asset, src, dest); err != nil {
			return nil, err
		}
		res.Exported = append(res.Exported, dest)
		res.Updated = append(res.Updated, dest)

	default:
		m.logger.Debug("linking new file", "src", src, "dest", dest)
		if err := m.link(asset, src, dest); err != nil {
			return nil, err
		}
		res.Exported = append(res.Exported, dest)
		res.New = append(res.New, dest)
	}

	return res, nil
}

func (m *Materializer) materializeCopy(asset *Asset, src, dest string, opts Options) (*Results, error) {
	res := &Results{}
	destExists := m.fs.Exists(dest)

	if !opts.Update {
		if opts.Overwrite && destExists {
			if err := m.fs.Remove(dest); err != nil {
				return nil, fmt.Errorf("removing %s before copy: %w", dest, err)
			}
		}
		m.logger.Debug("copying file", "src", src, "dest", dest)
		if err := m.copy(asset, src, dest, opts); err != nil {
			return nil, err
		}
		res.Exported = append(res.Exported, dest)
		return res, nil
	}

	if destExists {
		same, err := m.fs.SameFile(src, dest)
		if err != nil {
			return nil, fmt.Errorf("comparing inodes of %s and %s: %w", src, dest, err)
		}

		if !same && !opts.Exiftool {
			equal, err := m.fs.FilesEqual(src, dest)
			if err != nil {
				return nil, fmt.Errorf("comparing %s to %s: %w", src, dest, err)
			}
			if equal {
				// Identical copy already in place. Re-record the
				// signature: companion exports can reach here with
				// no prior entry, and rewriting keeps the ledger
				// complete.
				m.logger.Debug("skipping identical file", "src", src, "dest", dest)
				sig, err := FileSignature(dest)
				if err != nil {
					return nil, err
				}
				if err := m.ledger.SetOrigSignature(dest, sig); err != nil {
					return nil, fmt.Errorf("recording signature for %s: %w", dest, err)
				}
				res.Skipped = append(res.Skipped, dest)
				return res, nil
			}
		}

		if !same && opts.Exiftool {
			// The destination holds a post-embedding copy whose bytes
			// differ from the source, so compare against the stored
			// post-exiftool signature instead.
			exifSig, err := m.ledger.ExifSignature(dest)
			if err != nil {
				return nil, fmt.Errorf("reading exif signature for %s: %w", dest, err)
			}
			if exifSig != nil && exifSig.Matches(dest) {
				m.logger.Debug("skipping unchanged embedded file", "src", src, "dest", dest)
				res.Skipped = append(res.Skipped, dest)
				return res, nil
			}
		}

		// Different content, or a stale hardlink: replace it.
		m.logger.Debug("replacing existing file", "src", src, "dest", dest)
		if err := m.fs.Remove(dest); err != nil {
			return nil, fmt.Errorf("removing %s before copy: %w", dest, err)
		}
		if err := m.copy(asset, src, dest, opts); err != nil {
			return nil, err
		}
		res.Exported = append(res.Exported, dest)
		res.Updated = append(res.Updated, dest)
		return res, nil
	}

	m.logger.Debug("copying new file", "src", src, "dest", dest)
	if err := m.copy(asset, src, dest, opts); err != nil {
		return nil, err
	}
	res.Exported = append(res.Exported, dest)
	res.New = append(res.New, dest)
	return res, nil
}

func (m *Materializer) link(asset *Asset, src, dest string) error {
	if err := m.fs.Hardlink(src, dest); err != nil {
		return fmt.Errorf("linking %s to %s: %w", dest, src, err)
	}
	return m.record(asset, dest)
}

func (m *Materializer) copy(asset *Asset, src, dest string, opts Options) error {
	if err := m.fs.Copy(src, dest, !opts.NoXattr); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dest, err)
	}
	return m.record(asset, dest)
}

// record writes the ledger entry for a freshly materialized destination.
// The exif signature and payload are reset: a new copy has not had EXIF
// embedded yet.
func (m *Materializer) record(asset *Asset, dest string) error {
	if err := m.ledger.SetUUIDForPath(dest, asset.UUID); err != nil {
		return fmt.Errorf("recording uuid for %s: %w", dest, err)
	}
	if err := m.ledger.SetInfoForUUID(asset.UUID, asset.JSON()); err != nil {
		return fmt.Errorf("recording info for %s: %w", asset.UUID, err)
	}
	sig, err := FileSignature(dest)
	if err != nil {
		return err
	}
	if err := m.ledger.SetOrigSignature(dest, sig); err != nil {
		return fmt.Errorf("recording signature for %s: %w", dest, err)
	}
	if err := m.ledger.SetExifSignature(dest, nil); err != nil {
		return fmt.Errorf("resetting exif signature for %s: %w", dest, err)
	}
	if err := m.ledger.SetExifPayload(dest, ""); err != nil {
		return fmt.Errorf("resetting exif payload for %s: %w", dest, err)
	}
	return nil
}
