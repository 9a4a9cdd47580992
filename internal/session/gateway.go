package session

import (
	"context"
	"time"

	"backend-trpreport/internal/dataset"
	"backend-trpreport/internal/db"
	"backend-trpreport/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// copyQuerier is what the writer needs from a connection: plain statements
// plus COPY for batch appends. pgx.Tx satisfies it.
type copyQuerier interface {
	db.Querier
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Writer exposes the individual persistence operations of one run.
type Writer struct {
	q copyQuerier
}

func NewWriter(q copyQuerier) *Writer {
	return &Writer{q: q}
}

func (w *Writer) CreateSession(ctx context.Context, input Session) (Session, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.UploadDate.IsZero() {
		input.UploadDate = time.Now().UTC()
	}
	row := w.q.QueryRow(ctx, `
		INSERT INTO trp_sessions (id, file_name, fingerprint, upload_date, total_routes, total_events, route_entries)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING upload_date
	`, input.ID, input.FileName, input.Fingerprint, input.UploadDate, input.TotalRoutes, input.TotalEvents, input.RouteEntries)
	if err := row.Scan(&input.UploadDate); err != nil {
		return Session{}, &apperr.PersistenceError{Op: "create session", Err: err}
	}
	return input, nil
}

func (w *Writer) AttachMetadata(ctx context.Context, sessionID string, m dataset.Metadata) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO trp_metadata (session_id, start_time, stop_time, status_id, status_value, user_name, is_admin)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sessionID, m.StartTime.Ptr(), m.StopTime.Ptr(), m.StatusID.Ptr(), m.StatusValue.Ptr(), m.UserName.Ptr(), m.IsAdmin)
	if err != nil {
		return &apperr.PersistenceError{Op: "attach metadata", Err: err}
	}
	return nil
}

func (w *Writer) AppendRoutePoints(ctx context.Context, sessionID string, points []dataset.RoutePoint) error {
	rows := make([][]any, len(points))
	for i, p := range points {
		rows[i] = []any{sessionID, p.Seq, p.Latitude, p.Longitude, p.RecordedAt, p.Details}
	}
	return w.copy(ctx, "append route points", "trp_route_points",
		[]string{"session_id", "seq", "latitude", "longitude", "recorded_at", "details"}, rows)
}

func (w *Writer) AppendEvents(ctx context.Context, sessionID string, events []dataset.Event) error {
	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = []any{sessionID, i, e.Type.Ptr(), e.Timestamp.Ptr(), e.Description.Ptr()}
	}
	return w.copy(ctx, "append events", "trp_events",
		[]string{"session_id", "seq", "event_type", "timestamp", "description"}, rows)
}

func (w *Writer) AppendMetrics(ctx context.Context, sessionID string, metrics []dataset.Metric) error {
	rows := make([][]any, len(metrics))
	for i, m := range metrics {
		rows[i] = []any{sessionID, i, m.RSRP.Ptr(), m.SINR.Ptr(), m.Throughput.Ptr(), m.Timestamp.Ptr()}
	}
	return w.copy(ctx, "append metrics", "trp_metrics",
		[]string{"session_id", "seq", "rsrp", "sinr", "throughput", "timestamp"}, rows)
}

func (w *Writer) AppendLogs(ctx context.Context, sessionID string, logs []dataset.LogEntry) error {
	rows := make([][]any, len(logs))
	for i, l := range logs {
		rows[i] = []any{sessionID, i, l.FileName, l.Content}
	}
	return w.copy(ctx, "append logs", "trp_logs",
		[]string{"session_id", "seq", "file_name", "content"}, rows)
}

func (w *Writer) copy(ctx context.Context, op, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := w.q.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
		return &apperr.PersistenceError{Op: op, Err: err}
	}
	return nil
}

// SaveDataset persists a run's session and all its children in one
// transaction. Counts are taken from the decoded dataset.
func (s *Store) SaveDataset(ctx context.Context, input Session, ds dataset.Dataset) (Session, error) {
	input.TotalRoutes = len(ds.RoutePoints)
	input.TotalEvents = len(ds.Events)
	input.RouteEntries = ds.RouteEntries

	var saved Session
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		w := NewWriter(tx)
		var err error
		saved, err = w.CreateSession(ctx, input)
		if err != nil {
			return err
		}
		if meta, ok := ds.Metadata.Get(); ok {
			if err := w.AttachMetadata(ctx, saved.ID, meta); err != nil {
				return err
			}
			saved.Metadata = &meta
		}
		if err := w.AppendRoutePoints(ctx, saved.ID, ds.RoutePoints); err != nil {
			return err
		}
		if err := w.AppendEvents(ctx, saved.ID, ds.Events); err != nil {
			return err
		}
		if err := w.AppendMetrics(ctx, saved.ID, ds.Metrics); err != nil {
			return err
		}
		return w.AppendLogs(ctx, saved.ID, ds.Logs)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindPersistence {
			return Session{}, err
		}
		return Session{}, &apperr.PersistenceError{Op: "transaction", Err: err}
	}
	return saved, nil
}
