package pipeline

import (
	"context"
	"time"

	"backend-trpreport/internal/dataset"
	"backend-trpreport/internal/deck"
	"backend-trpreport/internal/session"
)

type State string

const (
	StateExtracting State = "extracting"
	StateValidating State = "validating"
	StateDecoding   State = "decoding"
	StateMapping    State = "mapping"
	StatePersisting State = "persisting"
	StateRendering  State = "rendering"
	StateComposing  State = "composing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition can follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Input describes one uploaded archive.
type Input struct {
	// RunID is generated when empty.
	RunID       string
	ArchivePath string
	ArchiveName string
	Fingerprint string
}

type Result struct {
	RunID        string          `json:"run_id"`
	State        State           `json:"state"`
	Session      session.Session `json:"session"`
	ArtifactPath string          `json:"artifact_path"`
	Reused       bool            `json:"reused"`
}

// Progress is published on every state change.
type Progress struct {
	RunID     string    `json:"run_id"`
	State     State     `json:"state"`
	SessionID string    `json:"session_id,omitempty"`
	Artifact  string    `json:"artifact,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

type Gateway interface {
	SaveDataset(ctx context.Context, input session.Session, ds dataset.Dataset) (session.Session, error)
	Get(ctx context.Context, id string) (session.Session, error)
	RoutePoints(ctx context.Context, sessionID string) ([]dataset.RoutePoint, error)
}

type Renderer interface {
	Render(ctx context.Context, points []dataset.RoutePoint) (string, error)
}

type Composer interface {
	Compose(ctx context.Context, content deck.Content) (string, error)
}

// Notifier receives serialized Progress messages keyed by run id.
type Notifier interface {
	Broadcast(runID string, payload []byte)
}

// PriorArtifact is a deck produced by an earlier run of the same archive.
type PriorArtifact struct {
	SessionID string
	Path      string
}

type ArtifactIndex interface {
	Lookup(ctx context.Context, fingerprint string) (PriorArtifact, bool, error)
	Record(ctx context.Context, sessionID, path, fingerprint string) error
}
