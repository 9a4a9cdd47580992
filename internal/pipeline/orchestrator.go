// Package pipeline drives one archive from upload to finished report.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"backend-trpreport/internal/archive"
	"backend-trpreport/internal/dataset"
	"backend-trpreport/internal/deck"
	"backend-trpreport/internal/session"
	"backend-trpreport/internal/trpxml"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	ScratchDir   string
	KeepScratch  bool
	DedupEnabled bool
}

type Deps struct {
	Gateway  Gateway
	Renderer Renderer
	Composer Composer
	// Notifier and Index are optional.
	Notifier Notifier
	Index    ArtifactIndex
	Log      *zap.Logger
}

type Orchestrator struct {
	opts Options
	deps Deps
	log  *zap.Logger
}

func New(opts Options, deps Deps) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{opts: opts, deps: deps, log: log.Named("pipeline")}
}

// run carries the per-run bookkeeping through the stages.
type run struct {
	o       *Orchestrator
	id      string
	state   State
	log     *zap.Logger
	started time.Time
}

// Run executes every stage in order and stops at the first failure. Runs are
// independent; the only shared state is the render cache and the database.
func (o *Orchestrator) Run(ctx context.Context, in Input) (Result, error) {
	if in.RunID == "" {
		in.RunID = uuid.NewString()
	}
	r := &run{
		o:       o,
		id:      in.RunID,
		log:     o.log.With(zap.String("run_id", in.RunID), zap.String("archive", in.ArchiveName)),
		started: time.Now(),
	}

	if res, ok := r.reuse(ctx, in); ok {
		return res, nil
	}

	r.enter(StateExtracting, Progress{})
	scratch, err := o.scratchDir(in.RunID)
	if err != nil {
		return r.fail(err)
	}
	defer r.cleanup(scratch)

	root, err := archive.Extract(in.ArchivePath, scratch)
	if err != nil {
		return r.fail(err)
	}

	r.enter(StateValidating, Progress{})
	tree, err := archive.Validate(root)
	if err != nil {
		return r.fail(err)
	}

	r.enter(StateDecoding, Progress{})
	docs, err := trpxml.DecodeAll(ctx, tree.Content, tree.Route, tree.Positions)
	if err != nil {
		return r.fail(err)
	}

	r.enter(StateMapping, Progress{})
	ds, err := dataset.Map(docs[0], docs[1], docs[2])
	if err != nil {
		return r.fail(err)
	}
	if ds.Logs, err = dataset.CollectLogs(tree.Logs); err != nil {
		return r.fail(err)
	}
	r.log.Debug("dataset mapped",
		zap.Int("points", len(ds.RoutePoints)),
		zap.Int("events", len(ds.Events)),
		zap.Int("metrics", len(ds.Metrics)),
		zap.Int("logs", len(ds.Logs)))

	r.enter(StatePersisting, Progress{})
	sess, err := o.deps.Gateway.SaveDataset(ctx, session.Session{
		FileName:    in.ArchiveName,
		Fingerprint: in.Fingerprint,
	}, ds)
	if err != nil {
		return r.fail(err)
	}

	r.enter(StateRendering, Progress{SessionID: sess.ID})
	points, err := o.deps.Gateway.RoutePoints(ctx, sess.ID)
	if err != nil {
		return r.fail(err)
	}
	sess.RoutePoints = points
	image, err := o.deps.Renderer.Render(ctx, points)
	if err != nil {
		return r.fail(err)
	}

	r.enter(StateComposing, Progress{SessionID: sess.ID})
	path, err := o.deps.Composer.Compose(ctx, deck.Content{
		ArchiveName: in.ArchiveName,
		Metadata:    ds.Metadata,
		PointCount:  len(points),
		EventCount:  len(ds.Events),
		DistanceKm:  session.TrackKm(points),
		MapImage:    image,
	})
	if err != nil {
		return r.fail(err)
	}

	if o.deps.Index != nil {
		if err := o.deps.Index.Record(ctx, sess.ID, path, in.Fingerprint); err != nil {
			r.log.Warn("artifact not indexed", zap.Error(err))
		}
	}

	r.enter(StateDone, Progress{SessionID: sess.ID, Artifact: filepath.Base(path)})
	return Result{RunID: r.id, State: StateDone, Session: sess, ArtifactPath: path}, nil
}

// scratchDir creates a private extraction directory for one run. The run id
// only prefixes the name; callers may reuse ids.
func (o *Orchestrator) scratchDir(runID string) (string, error) {
	if err := os.MkdirAll(o.opts.ScratchDir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch root: %w", err)
	}
	prefix := "run"
	if runID != "" && !strings.ContainsAny(runID, `/\*`) {
		prefix = runID
	}
	dir, err := os.MkdirTemp(o.opts.ScratchDir, prefix+"-*")
	if err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	return dir, nil
}

func (r *run) cleanup(scratch string) {
	if r.o.opts.KeepScratch {
		r.log.Debug("keeping scratch directory", zap.String("dir", scratch))
		return
	}
	if err := os.RemoveAll(scratch); err != nil {
		r.log.Warn("scratch cleanup failed", zap.String("dir", scratch), zap.Error(err))
	}
}

// reuse short-circuits to an earlier report of the same archive when
// deduplication is on and that report is still on disk.
func (r *run) reuse(ctx context.Context, in Input) (Result, bool) {
	o := r.o
	if !o.opts.DedupEnabled || o.deps.Index == nil || in.Fingerprint == "" {
		return Result{}, false
	}
	prior, ok, err := o.deps.Index.Lookup(ctx, in.Fingerprint)
	if err != nil {
		r.log.Warn("artifact lookup failed", zap.Error(err))
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}
	sess, err := o.deps.Gateway.Get(ctx, prior.SessionID)
	if err != nil {
		r.log.Warn("prior session unavailable", zap.String("session_id", prior.SessionID), zap.Error(err))
		return Result{}, false
	}
	if sess.RoutePoints, err = o.deps.Gateway.RoutePoints(ctx, sess.ID); err != nil {
		r.log.Warn("prior route points unavailable", zap.Error(err))
		return Result{}, false
	}

	r.log.Info("reusing earlier report", zap.String("session_id", sess.ID), zap.String("artifact", prior.Path))
	r.enter(StateDone, Progress{SessionID: sess.ID, Artifact: filepath.Base(prior.Path)})
	return Result{RunID: r.id, State: StateDone, Session: sess, ArtifactPath: prior.Path, Reused: true}, true
}

func (r *run) enter(state State, p Progress) {
	from := r.state
	r.state = state
	r.log.Info("stage",
		zap.String("from", string(from)),
		zap.String("to", string(state)),
		zap.Duration("elapsed", time.Since(r.started)))
	p.RunID = r.id
	p.State = state
	r.publish(p)
}

func (r *run) fail(err error) (Result, error) {
	failedIn := r.state
	r.state = StateFailed
	r.log.Error("run failed", zap.String("stage", string(failedIn)), zap.Error(err))
	r.publish(Progress{RunID: r.id, State: StateFailed, Error: err.Error()})
	return Result{RunID: r.id, State: StateFailed}, err
}

func (r *run) publish(p Progress) {
	if r.o.deps.Notifier == nil {
		return
	}
	p.At = time.Now().UTC()
	payload, err := json.Marshal(p)
	if err != nil {
		r.log.Warn("progress encode failed", zap.Error(err))
		return
	}
	r.o.deps.Notifier.Broadcast(r.id, payload)
}
