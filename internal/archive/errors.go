package archive

import (
	"fmt"
	"strings"

	"backend-trpreport/internal/shared/apperr"
)

// CorruptArchiveError means the upload is not a readable zip container, or
// one of its entries could not be unpacked safely.
type CorruptArchiveError struct {
	Entry string
	Err   error
}

func (e *CorruptArchiveError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("corrupt archive: entry %q: %v", e.Entry, e.Err)
	}
	return fmt.Sprintf("corrupt archive: %v", e.Err)
}

func (e *CorruptArchiveError) Unwrap() error { return e.Err }

func (e *CorruptArchiveError) Kind() apperr.Kind { return apperr.KindInput }

// MissingArchiveFolderError means the extracted tree has no root folder.
type MissingArchiveFolderError struct {
	Folder string
}

func (e *MissingArchiveFolderError) Error() string {
	return fmt.Sprintf("%q folder not found in archive", e.Folder)
}

func (e *MissingArchiveFolderError) Kind() apperr.Kind { return apperr.KindInput }

// MissingRequiredFilesError lists every required document absent from the
// archive, not only the first one found.
type MissingRequiredFilesError struct {
	Files []string
}

func (e *MissingRequiredFilesError) Error() string {
	return "missing files: " + strings.Join(e.Files, ", ")
}

func (e *MissingRequiredFilesError) Kind() apperr.Kind { return apperr.KindInput }
