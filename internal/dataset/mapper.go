package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"backend-trpreport/internal/shared/apperr"
	"backend-trpreport/internal/shared/optional"
	"backend-trpreport/internal/trpxml"
)

// FieldExtractionError is raised when a track point lacks a required
// geometry field. It fails the whole mapping.
type FieldExtractionError struct {
	Index int
	Field string
	Err   error
}

func (e *FieldExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("track point %d: invalid %s: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("track point %d: missing %s", e.Index, e.Field)
}

func (e *FieldExtractionError) Unwrap() error { return e.Err }

func (e *FieldExtractionError) Kind() apperr.Kind { return apperr.KindInput }

// timeLayouts are tried in order for track point timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Map turns the decoded documents into domain records. route may be nil.
// Track point geometry is strict; every other field is optional.
func Map(content, route, positions *trpxml.Node) (Dataset, error) {
	points, err := mapRoutePoints(positions)
	if err != nil {
		return Dataset{}, err
	}
	ds := Dataset{
		Metadata:    mapMetadata(content.Child("metadata")),
		RoutePoints: points,
		Events:      mapEvents(content.Child("events")),
		Metrics:     mapMetrics(content.Child("metrics")),
	}
	if route != nil {
		ds.RouteEntries = len(route.Children)
	}
	return ds, nil
}

func mapMetadata(n *trpxml.Node) optional.Value[Metadata] {
	if n == nil {
		return optional.None[Metadata]()
	}
	status := n.Child("status")
	return optional.Some(Metadata{
		StartTime:   n.TextAt("startTime"),
		StopTime:    n.TextAt("stopTime"),
		StatusID:    optional.Map(firstOf(status.TextAt("id"), status.Attr("id")), parseInt),
		StatusValue: firstOf(status.TextAt("value"), status.Attr("value")),
		UserName:    n.TextAt("creator", "userName"),
		IsAdmin:     n.TextAt("creator", "isAdmin").Or("") == "true",
	})
}

func mapRoutePoints(gpx *trpxml.Node) ([]RoutePoint, error) {
	var trkpts []*trpxml.Node
	for _, trk := range gpx.All("trk") {
		for _, seg := range trk.All("trkseg") {
			trkpts = append(trkpts, seg.All("trkpt")...)
		}
	}

	points := make([]RoutePoint, 0, len(trkpts))
	for i, pt := range trkpts {
		lat, err := requiredFloat(i, "lat", pt.Attr("lat"))
		if err != nil {
			return nil, err
		}
		lon, err := requiredFloat(i, "lon", pt.Attr("lon"))
		if err != nil {
			return nil, err
		}
		raw, ok := pt.TextAt("time").Get()
		if !ok || raw == "" {
			return nil, &FieldExtractionError{Index: i, Field: "time"}
		}
		ts, err := parseTime(raw)
		if err != nil {
			return nil, &FieldExtractionError{Index: i, Field: "time", Err: err}
		}
		points = append(points, RoutePoint{
			Seq:        i,
			Latitude:   lat,
			Longitude:  lon,
			RecordedAt: ts,
			Details:    pt.TextAt("name").Or(""),
		})
	}
	return points, nil
}

func mapEvents(n *trpxml.Node) []Event {
	nodes := n.All("event")
	events := make([]Event, 0, len(nodes))
	for _, e := range nodes {
		events = append(events, Event{
			Type:        e.TextAt("type"),
			Timestamp:   e.TextAt("timestamp"),
			Description: e.TextAt("description"),
		})
	}
	return events
}

func mapMetrics(n *trpxml.Node) []Metric {
	nodes := n.All("metric")
	metrics := make([]Metric, 0, len(nodes))
	for _, m := range nodes {
		metrics = append(metrics, Metric{
			RSRP:       optional.Map(m.TextAt("rsrp"), parseFloat),
			SINR:       optional.Map(m.TextAt("sinr"), parseFloat),
			Throughput: optional.Map(m.TextAt("throughput"), parseFloat),
			Timestamp:  m.TextAt("timestamp"),
		})
	}
	return metrics
}

func requiredFloat(index int, field string, v optional.Value[string]) (float64, error) {
	raw, ok := v.Get()
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, &FieldExtractionError{Index: index, Field: field}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &FieldExtractionError{Index: index, Field: field, Err: err}
	}
	return f, nil
}

func parseTime(raw string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func firstOf(values ...optional.Value[string]) optional.Value[string] {
	for _, v := range values {
		if v.Present() {
			return v
		}
	}
	return optional.None[string]()
}
