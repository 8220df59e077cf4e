package weaver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// DirectoryFingerprint summarizes the shape of the input tree cheaply
// enough to run on every invocation: the name, size, and modification time
// of the root's direct entries plus those of the named pool subdirectory.
// It never recurses further, trading exhaustiveness for speed on pools with
// tens of thousands of files.
func DirectoryFingerprint(root string, poolSubdir string) (string, error) {
	h := sha256.New()

	if err := hashDirEntries(h, root, ""); err != nil {
		return "", err
	}
	if poolSubdir != "" {
		sub := filepath.Join(root, poolSubdir)
		info, err := os.Stat(sub)
		switch {
		case err == nil && info.IsDir():
			if err := hashDirEntries(h, sub, poolSubdir+"/"); err != nil {
				return "", err
			}
		case err != nil && !os.IsNotExist(err):
			return "", fmt.Errorf("stat %s: %w", sub, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashDirEntries(h io.Writer, dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	// os.ReadDir returns entries sorted by name, so the digest is stable.
	for _, entry := range entries {
		h.Write([]byte(prefix + entry.Name()))
		h.Write([]byte{0})
		info, err := entry.Info()
		if err != nil {
			// The entry vanished mid-listing. Mark it so the digest still
			// changes relative to a listing where it was readable.
			h.Write([]byte("?"))
			h.Write([]byte{0})
			continue
		}
		if entry.IsDir() {
			h.Write([]byte("d"))
		} else {
			h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
		}
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
		h.Write([]byte{0})
	}
	return nil
}
