package db

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// Migrate creates the tables used by the ingestion pipeline if they do not
// exist yet.
func Migrate(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, schemaSQL)
	return err
}
