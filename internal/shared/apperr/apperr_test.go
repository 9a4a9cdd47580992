package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	wrapped := fmt.Errorf("stage: %w", &InputError{Msg: "bad"})
	if StatusCode(wrapped) != http.StatusBadRequest {
		t.Fatalf("expected 400 for input error")
	}
	if StatusCode(&PersistenceError{Op: "insert", Err: errors.New("x")}) != http.StatusInternalServerError {
		t.Fatalf("expected 500 for persistence error")
	}
	if StatusCode(errors.New("plain")) != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unclassified error")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected unknown kind")
	}
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	cause := errors.New("conn reset")
	err := &PersistenceError{Op: "create session", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("expected unwrap to cause")
	}
	if err.Error() != "persistence: create session: conn reset" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if KindPersistence.String() != "persistence" || KindExternal.String() != "external_service" {
		t.Fatalf("unexpected kind names")
	}
}
