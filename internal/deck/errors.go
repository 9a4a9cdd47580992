package deck

import (
	"fmt"

	"backend-trpreport/internal/shared/apperr"
)

// ArtifactWriteError is returned when the deck cannot be written to disk.
type ArtifactWriteError struct {
	Path string
	Err  error
}

func (e *ArtifactWriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *ArtifactWriteError) Unwrap() error { return e.Err }

func (e *ArtifactWriteError) Kind() apperr.Kind { return apperr.KindArtifact }
