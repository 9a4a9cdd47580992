package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	errOutsideRoot = errors.New("entry resolves outside extraction root")
	errSymlink     = errors.New("symbolic link entries are not allowed")
)

// Extract unpacks the zip container at src into dest, recreating the member
// directory layout. dest is created if needed and returned as the tree root.
func Extract(src, dest string) (string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return "", &CorruptArchiveError{Err: err}
	}
	defer r.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve extraction root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create extraction root: %w", err)
	}

	for _, f := range r.File {
		if err := extractEntry(root, f); err != nil {
			return "", err
		}
	}
	return root, nil
}

func extractEntry(root string, f *zip.File) error {
	target, err := securePath(root, f.Name)
	if err != nil {
		return &CorruptArchiveError{Entry: f.Name, Err: err}
	}

	mode := f.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		return &CorruptArchiveError{Entry: f.Name, Err: errSymlink}
	case f.FileInfo().IsDir():
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", f.Name, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return &CorruptArchiveError{Entry: f.Name, Err: err}
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return &CorruptArchiveError{Entry: f.Name, Err: err}
	}
	return out.Close()
}

// securePath joins name onto root and rejects anything that escapes it.
func securePath(root, name string) (string, error) {
	cleaned := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", errOutsideRoot
	}
	target := filepath.Join(root, cleaned)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideRoot
	}
	return target, nil
}
