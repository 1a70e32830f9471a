package bridge

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// archiveFolder compresses dir into a sibling zip file and removes the
// original, so a new capture never overwrites an old one in place. The
// archive name carries a counter when earlier archives already exist.
func archiveFolder(dir string) error {
	target := dir + ".zip"
	for n := 1; fileExists(target); n++ {
		target = fmt.Sprintf("%s-%d.zip", dir, n)
	}

	if err := zipDirectory(dir, target); err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

// zipDirectory writes the contents of dir into a zip archive at target,
// with entry names relative to dir.
func zipDirectory(dir, target string) error {
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	w := zip.NewWriter(out)

	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		dst, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		w.Close()
		return fmt.Errorf("archive %s: %w", dir, err)
	}
	return w.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
