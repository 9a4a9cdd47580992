package report

import (
	"context"
	"errors"
	"path/filepath"

	"backend-trpreport/internal/db"
	"backend-trpreport/internal/pipeline"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Index records which deck each session produced so identical uploads can
// be answered from an earlier run.
type Index struct {
	db        db.Querier
	outputDir string
}

func NewIndex(db db.Querier, outputDir string) *Index {
	return &Index{db: db, outputDir: outputDir}
}

func (i *Index) Record(ctx context.Context, sessionID, path, fingerprint string) error {
	_, err := i.db.Exec(ctx, `
		INSERT INTO report_artifacts (id, session_id, file_name, fingerprint)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), sessionID, filepath.Base(path), fingerprint)
	return err
}

// Lookup returns the newest artifact for fingerprint whose file still exists.
func (i *Index) Lookup(ctx context.Context, fingerprint string) (pipeline.PriorArtifact, bool, error) {
	row := i.db.QueryRow(ctx, `
		SELECT session_id, file_name
		FROM report_artifacts
		WHERE fingerprint=$1
		ORDER BY created_at DESC
		LIMIT 1
	`, fingerprint)

	var prior pipeline.PriorArtifact
	var name string
	if err := row.Scan(&prior.SessionID, &name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pipeline.PriorArtifact{}, false, nil
		}
		return pipeline.PriorArtifact{}, false, err
	}

	path, err := ResolveDeck(i.outputDir, name)
	if err != nil || !isFile(path) {
		return pipeline.PriorArtifact{}, false, nil
	}
	prior.Path = path
	return prior, true, nil
}
