package session

import (
	"time"

	"backend-trpreport/internal/dataset"
)

// Session is the root record for one processed archive.
type Session struct {
	ID           string               `json:"id"`
	FileName     string               `json:"file_name"`
	Fingerprint  string               `json:"fingerprint,omitempty"`
	UploadDate   time.Time            `json:"upload_date"`
	TotalRoutes  int                  `json:"total_routes"`
	TotalEvents  int                  `json:"total_events"`
	RouteEntries int                  `json:"route_entries"`
	Metadata     *dataset.Metadata    `json:"metadata,omitempty"`
	RoutePoints  []dataset.RoutePoint `json:"route_points,omitempty"`
}

type Summary struct {
	SessionID   string  `json:"session_id"`
	PointCount  int     `json:"point_count"`
	EventCount  int     `json:"event_count"`
	MetricCount int     `json:"metric_count"`
	LogCount    int     `json:"log_count"`
	DistanceKm  float64 `json:"distance_km"`
	DurationSec int64   `json:"duration_sec"`
}
