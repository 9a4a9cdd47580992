package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"backend-trpreport/internal/dataset"
	"backend-trpreport/internal/session"
)

type memGateway struct {
	mu       sync.Mutex
	sessions map[string]session.Session
	points   map[string][]dataset.RoutePoint
	datasets map[string]dataset.Dataset
	saveErr  error
	saves    int
}

func newMemGateway() *memGateway {
	return &memGateway{
		sessions: map[string]session.Session{},
		points:   map[string][]dataset.RoutePoint{},
		datasets: map[string]dataset.Dataset{},
	}
}

func (g *memGateway) SaveDataset(_ context.Context, in session.Session, ds dataset.Dataset) (session.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.saveErr != nil {
		return session.Session{}, g.saveErr
	}
	g.saves++
	in.ID = fmt.Sprintf("session-%d", g.saves)
	in.TotalRoutes = len(ds.RoutePoints)
	in.TotalEvents = len(ds.Events)
	in.RouteEntries = ds.RouteEntries
	g.sessions[in.ID] = in
	g.points[in.ID] = append([]dataset.RoutePoint(nil), ds.RoutePoints...)
	g.datasets[in.ID] = ds
	return in, nil
}

func (g *memGateway) Get(_ context.Context, id string) (session.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return session.Session{}, errors.New("not found")
	}
	return s, nil
}

func (g *memGateway) RoutePoints(_ context.Context, id string) ([]dataset.RoutePoint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.points[id], nil
}

type stubRenderer struct {
	mu    sync.Mutex
	path  string
	err   error
	calls int
	got   []dataset.RoutePoint
}

func newStubRenderer(t *testing.T) *stubRenderer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.png")
	if err := os.WriteFile(path, []byte("\x89PNG"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return &stubRenderer{path: path}
}

func (r *stubRenderer) Render(_ context.Context, points []dataset.RoutePoint) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.got = points
	if r.err != nil {
		return "", r.err
	}
	return r.path, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Progress
}

func (n *recordingNotifier) Broadcast(_ string, payload []byte) {
	var p Progress
	_ = json.Unmarshal(payload, &p)
	n.mu.Lock()
	n.events = append(n.events, p)
	n.mu.Unlock()
}

func (n *recordingNotifier) states() []State {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]State, len(n.events))
	for i, e := range n.events {
		out[i] = e.State
	}
	return out
}

type memIndex struct {
	mu      sync.Mutex
	entries map[string]PriorArtifact
}

func (m *memIndex) Lookup(_ context.Context, fp string) (PriorArtifact, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.entries[fp]
	if ok {
		if _, err := os.Stat(a.Path); err != nil {
			return PriorArtifact{}, false, nil
		}
	}
	return a, ok, nil
}

func (m *memIndex) Record(_ context.Context, sessionID, path, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]PriorArtifact{}
	}
	m.entries[fp] = PriorArtifact{SessionID: sessionID, Path: path}
	return nil
}
