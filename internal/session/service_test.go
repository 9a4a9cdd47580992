package session

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var sessionColumns = []string{"id", "file_name", "fingerprint", "upload_date", "total_routes", "total_events", "route_entries",
	"has_meta", "start_time", "stop_time", "status_id", "status_value", "user_name", "is_admin"}

func TestGetSessionWithMetadata(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	start := "2024-05-01T08:00:00Z"
	user := "jdoe"
	statusID := 2
	mock.ExpectQuery(`FROM trp_sessions s`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow("s1", "run1.trp", "fp", time.Now(), 3, 1, 2, true, &start, (*string)(nil), &statusID, (*string)(nil), &user, true))

	sess, err := NewStore(mock).Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Metadata == nil {
		t.Fatalf("expected metadata")
	}
	if got := sess.Metadata.UserName.Or(""); got != "jdoe" {
		t.Fatalf("unexpected user %q", got)
	}
	if sess.Metadata.StopTime.Present() {
		t.Fatalf("stop time should be absent")
	}
	if id, _ := sess.Metadata.StatusID.Get(); id != 2 {
		t.Fatalf("unexpected status id %d", id)
	}
}

func TestGetSessionWithoutMetadata(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM trp_sessions s`).
		WithArgs("s2").
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow("s2", "bare.trp", "", time.Now(), 0, 0, 0, false, (*string)(nil), (*string)(nil), (*int)(nil), (*string)(nil), (*string)(nil), false))

	sess, err := NewStore(mock).Get(context.Background(), "s2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Metadata != nil {
		t.Fatalf("expected no metadata, got %+v", sess.Metadata)
	}
}

func TestSummaryComputesDistanceAndDuration(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	ts := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"points", "events", "metrics", "logs"}).AddRow(2, 1, 1, 0))
	mock.ExpectQuery(`FROM trp_route_points`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"seq", "latitude", "longitude", "recorded_at", "details"}).
			AddRow(0, 0.0, 0.0, ts, "").
			AddRow(1, 0.0, 1.0, ts.Add(90*time.Second), ""))

	summary, err := NewStore(mock).Summary(context.Background(), "s1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.PointCount != 2 || summary.EventCount != 1 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if math.Abs(summary.DistanceKm-111.19) > 0.1 {
		t.Fatalf("unexpected distance %.3f", summary.DistanceKm)
	}
	if summary.DurationSec != 90 {
		t.Fatalf("unexpected duration %d", summary.DurationSec)
	}
}

func TestSessionHandlers(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	app := fiber.New()
	RegisterRoutes(app.Group("/api/sessions"), NewStore(mock))

	mock.ExpectQuery(`FROM trp_sessions s`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	resp, err := app.Test(httptest.NewRequest("GET", "/api/sessions/missing", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	ts := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM trp_route_points`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"seq", "latitude", "longitude", "recorded_at", "details"}).
			AddRow(0, -6.2, 106.8, ts, "start"))
	resp, err = app.Test(httptest.NewRequest("GET", "/api/sessions/s1/points", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var points []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(points) != 1 || points[0]["details"] != "start" {
		t.Fatalf("unexpected points %v", points)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionHandlersSeparateMissingFromFailure(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	app := fiber.New()
	RegisterRoutes(app.Group("/api/sessions"), NewStore(mock))

	mock.ExpectQuery(`FROM trp_sessions s`).
		WithArgs("s1").
		WillReturnError(errors.New("connection refused"))
	resp, err := app.Test(httptest.NewRequest("GET", "/api/sessions/s1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 for database failure, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"points", "events", "metrics", "logs"}))
	resp, err = app.Test(httptest.NewRequest("GET", "/api/sessions/ghost/summary", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown session summary, got %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTrackKmEmpty(t *testing.T) {
	if TrackKm(nil) != 0 {
		t.Fatalf("empty track should be zero length")
	}
}
