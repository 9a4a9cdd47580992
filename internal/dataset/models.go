package dataset

import (
	"time"

	"backend-trpreport/internal/shared/optional"
)

// Dataset is everything decoded from one TRP package.
type Dataset struct {
	Metadata     optional.Value[Metadata] `json:"metadata"`
	RoutePoints  []RoutePoint             `json:"route_points"`
	Events       []Event                  `json:"events"`
	Metrics      []Metric                 `json:"metrics"`
	RouteEntries int                      `json:"route_entries"`
	Logs         []LogEntry               `json:"logs"`
}

type Metadata struct {
	StartTime   optional.Value[string] `json:"start_time"`
	StopTime    optional.Value[string] `json:"stop_time"`
	StatusID    optional.Value[int]    `json:"status_id"`
	StatusValue optional.Value[string] `json:"status_value"`
	UserName    optional.Value[string] `json:"user_name"`
	IsAdmin     bool                   `json:"is_admin"`
}

type RoutePoint struct {
	Seq        int       `json:"seq"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"timestamp"`
	Details    string    `json:"details"`
}

type Event struct {
	Type        optional.Value[string] `json:"type"`
	Timestamp   optional.Value[string] `json:"timestamp"`
	Description optional.Value[string] `json:"description"`
}

type Metric struct {
	RSRP       optional.Value[float64] `json:"rsrp"`
	SINR       optional.Value[float64] `json:"sinr"`
	Throughput optional.Value[float64] `json:"throughput"`
	Timestamp  optional.Value[string]  `json:"timestamp"`
}

type LogEntry struct {
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}
