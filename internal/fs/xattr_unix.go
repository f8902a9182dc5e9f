//go:build unix

package fs

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// copyXattrs copies all extended attributes from src to dest. Filesystems
// without xattr support are tolerated.
func copyXattrs(src, dest string) error {
	size, err := unix.Listxattr(src, nil)
	if err != nil {
		if xattrUnsupported(err) {
			return nil
		}
		return fmt.Errorf("listing xattrs on %s: %w", src, err)
	}
	if size == 0 {
		return nil
	}

	buf := make([]byte, size)
	size, err = unix.Listxattr(src, buf)
	if err != nil {
		return fmt.Errorf("listing xattrs on %s: %w", src, err)
	}

	for _, name := range strings.Split(strings.TrimRight(string(buf[:size]), "\x00"), "\x00") {
		if name == "" {
			continue
		}
		vsize, err := unix.Getxattr(src, name, nil)
		if err != nil {
			return fmt.Errorf("reading xattr %s on %s: %w", name, src, err)
		}
		value := make([]byte, vsize)
		if vsize > 0 {
			if _, err := unix.Getxattr(src, name, value); err != nil {
				return fmt.Errorf("reading xattr %s on %s: %w", name, src, err)
			}
		}
		if err := unix.Setxattr(dest, name, value, 0); err != nil {
			if xattrUnsupported(err) {
				continue
			}
			return fmt.Errorf("writing xattr %s on %s: %w", name, dest, err)
		}
	}
	return nil
}

func xattrUnsupported(err error) bool {
	return err == unix.ENOTSUP || err == unix.EOPNOTSUPP || err == unix.EPERM
}
