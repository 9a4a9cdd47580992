package maprender

import (
	"fmt"

	"backend-trpreport/internal/shared/apperr"
)

// MapRenderError reports a failed call to the static-map service.
type MapRenderError struct {
	Status  int
	Timeout bool
	Err     error
}

func (e *MapRenderError) Error() string {
	switch {
	case e.Timeout:
		return "map service timed out"
	case e.Status != 0:
		return fmt.Sprintf("map service returned status %d", e.Status)
	default:
		return fmt.Sprintf("map service request failed: %v", e.Err)
	}
}

func (e *MapRenderError) Unwrap() error { return e.Err }

func (e *MapRenderError) Kind() apperr.Kind { return apperr.KindExternal }
