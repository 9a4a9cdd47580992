// Package testutil builds TRP fixtures for tests across packages.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// TrackPoint is one fixture sample for positions/wptrack.xml.
type TrackPoint struct {
	Lat, Lon string
	Time     string
	Name     string
}

// WriteArchive writes a zip at path containing files (slash-separated
// member name to content). Members are written in sorted order.
func WriteArchive(tb testing.TB, path string, files map[string]string) string {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			tb.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			tb.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("zip close: %v", err)
	}
	return path
}

// ValidFiles returns a complete TRP member set with the given track points
// and events.
func ValidFiles(points []TrackPoint, events int) map[string]string {
	return map[string]string{
		"trp/content.xml":           ContentXML(events),
		"trp/route.xml":             `<routes><route id="1"/><route id="2"/></routes>`,
		"trp/positions/wptrack.xml": TrackXML(points),
		"trp/logs/device.log":       "modem attached\n",
	}
}

// ContentXML renders a content.xml with metadata, n events and one metric.
func ContentXML(events int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<content>
  <metadata>
    <startTime>2024-05-01T08:00:00Z</startTime>
    <stopTime>2024-05-01T09:00:00Z</stopTime>
    <status><id>2</id><value>Completed</value></status>
    <creator><userName>jdoe</userName><isAdmin>true</isAdmin></creator>
  </metadata>
  <events>
`)
	for i := 0; i < events; i++ {
		fmt.Fprintf(&b, "    <event><type>Call Drop</type><timestamp>2024-05-01T08:%02d:00Z</timestamp><description>event %d</description></event>\n", i, i)
	}
	b.WriteString(`  </events>
  <metrics>
    <metric><rsrp>-95.5</rsrp><sinr>12.1</sinr><throughput>48.2</throughput><timestamp>2024-05-01T08:00:05Z</timestamp></metric>
  </metrics>
</content>
`)
	return b.String()
}

// TrackXML renders a GPX track. Empty Lat/Lon/Time fields are omitted so
// tests can build invalid points.
func TrackXML(points []TrackPoint) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="fixture"><trk><trkseg>
`)
	for _, p := range points {
		b.WriteString("  <trkpt")
		if p.Lat != "" {
			fmt.Fprintf(&b, ` lat="%s"`, p.Lat)
		}
		if p.Lon != "" {
			fmt.Fprintf(&b, ` lon="%s"`, p.Lon)
		}
		b.WriteString(">")
		if p.Time != "" {
			fmt.Fprintf(&b, "<time>%s</time>", p.Time)
		}
		if p.Name != "" {
			fmt.Fprintf(&b, "<name>%s</name>", p.Name)
		}
		b.WriteString("</trkpt>\n")
	}
	b.WriteString("</trkseg></trk></gpx>\n")
	return b.String()
}

// ThreePoints is the canonical three-sample track used across tests.
func ThreePoints() []TrackPoint {
	return []TrackPoint{
		{Lat: "-6.2000", Lon: "106.8166", Time: "2024-05-01T08:00:00Z", Name: "start"},
		{Lat: "-6.2100", Lon: "106.8200", Time: "2024-05-01T08:05:00Z"},
		{Lat: "-6.1900", Lon: "106.8100", Time: "2024-05-01T08:10:00Z", Name: "end"},
	}
}
