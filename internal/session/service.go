package session

import (
	"context"

	"backend-trpreport/internal/dataset"
	"backend-trpreport/internal/db"
	"backend-trpreport/internal/shared/geo"
	"backend-trpreport/internal/shared/optional"
)

// Store is the Postgres-backed session gateway.
type Store struct {
	db db.TxQuerier
}

func NewStore(db db.TxQuerier) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT s.id, s.file_name, s.fingerprint, s.upload_date, s.total_routes, s.total_events, s.route_entries,
		       m.session_id IS NOT NULL, m.start_time, m.stop_time, m.status_id, m.status_value, m.user_name, COALESCE(m.is_admin, false)
		FROM trp_sessions s
		LEFT JOIN trp_metadata m ON m.session_id = s.id
		WHERE s.id=$1
	`, id)

	var (
		sess             Session
		hasMeta, isAdmin bool
		start, stop      *string
		value, user      *string
		statusID         *int
	)
	if err := row.Scan(&sess.ID, &sess.FileName, &sess.Fingerprint, &sess.UploadDate, &sess.TotalRoutes, &sess.TotalEvents, &sess.RouteEntries,
		&hasMeta, &start, &stop, &statusID, &value, &user, &isAdmin); err != nil {
		return Session{}, err
	}
	if hasMeta {
		sess.Metadata = &dataset.Metadata{
			StartTime:   optional.FromPtr(start),
			StopTime:    optional.FromPtr(stop),
			StatusID:    optional.FromPtr(statusID),
			StatusValue: optional.FromPtr(value),
			UserName:    optional.FromPtr(user),
			IsAdmin:     isAdmin,
		}
	}
	return sess, nil
}

// RoutePoints returns the session's track in source order.
func (s *Store) RoutePoints(ctx context.Context, sessionID string) ([]dataset.RoutePoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT seq, latitude, longitude, recorded_at, details
		FROM trp_route_points WHERE session_id=$1
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []dataset.RoutePoint
	for rows.Next() {
		var p dataset.RoutePoint
		if err := rows.Scan(&p.Seq, &p.Latitude, &p.Longitude, &p.RecordedAt, &p.Details); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Summary returns pgx.ErrNoRows for an unknown session.
func (s *Store) Summary(ctx context.Context, sessionID string) (Summary, error) {
	summary := Summary{SessionID: sessionID}
	row := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM trp_route_points WHERE session_id=$1),
			(SELECT COUNT(*) FROM trp_events WHERE session_id=$1),
			(SELECT COUNT(*) FROM trp_metrics WHERE session_id=$1),
			(SELECT COUNT(*) FROM trp_logs WHERE session_id=$1)
		FROM trp_sessions WHERE id=$1
	`, sessionID)
	if err := row.Scan(&summary.PointCount, &summary.EventCount, &summary.MetricCount, &summary.LogCount); err != nil {
		return Summary{}, err
	}

	points, err := s.RoutePoints(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	summary.DistanceKm = TrackKm(points)
	if len(points) > 1 {
		summary.DurationSec = int64(points[len(points)-1].RecordedAt.Sub(points[0].RecordedAt).Seconds())
	}
	return summary, nil
}

// TrackKm is the haversine length of the track in source order.
func TrackKm(points []dataset.RoutePoint) float64 {
	path := make([]geo.Point, len(points))
	for i, p := range points {
		path[i] = geo.Point{Lat: p.Latitude, Lng: p.Longitude}
	}
	return geo.PathKm(path)
}
