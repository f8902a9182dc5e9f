//go:build !unix

package fs

// copyXattrs is a no-op on platforms without extended-attribute syscalls.
func copyXattrs(src, dest string) error {
	return nil
}
