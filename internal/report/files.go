package report

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"backend-trpreport/internal/deck"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"
)

var errBadName = errors.New("invalid report name")

type FileInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListDecks returns the generated decks in dir. A missing dir is empty.
func ListDecks(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), deck.Extension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:      e.Name(),
			Size:      info.Size(),
			SizeHuman: humanize.Bytes(uint64(info.Size())),
			CreatedAt: info.ModTime().UTC(),
		})
	}
	return files, nil
}

// ResolveDeck maps a client-supplied deck name onto a path inside dir.
func ResolveDeck(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		name == "." || name == ".." || !strings.EqualFold(filepath.Ext(name), deck.Extension) {
		return "", errBadName
	}
	return filepath.Join(dir, name), nil
}

// Fingerprint is the hex BLAKE3 digest of the file at path.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// cleanUploadName strips any client directory components.
func cleanUploadName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "upload.trp"
	}
	return name
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
