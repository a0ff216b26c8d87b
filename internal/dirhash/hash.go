// Package dirhash computes content digests of directory trees.
//
// A digest covers the relative path and raw bytes of every regular file
// under a root, so two trees with identical layouts and contents hash
// equal while any rename or byte change produces a new digest. Digests
// are used by the catalog as content-addressed directory names.
package dirhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// HashDir computes the sha256 digest of the directory tree rooted at root.
//
// Files are hashed in lexical order of their slash-normalized relative
// paths, so the digest does not depend on how the underlying filesystem
// enumerates siblings. Directories themselves contribute nothing beyond
// the paths of the files they contain; empty directories are invisible.
//
// The returned digest is a fixed-length hexadecimal string suitable for
// use as a directory name. Any unreadable file aborts the hash with an
// error; there is no partial result.
func HashDir(root string) (string, error) {
	h := sha256.New()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.ToSlash(rel)))

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(h, f)
		f.Close()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("dirhash: failed to hash %s: %w", root, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
