package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"backend-trpreport/internal/archive"
	"backend-trpreport/internal/dataset"
	"backend-trpreport/internal/report"
	"backend-trpreport/internal/session"
	"backend-trpreport/internal/trpxml"

	"github.com/spf13/cobra"
)

type inspectSummary struct {
	Archive      string  `json:"archive"`
	Fingerprint  string  `json:"fingerprint"`
	User         string  `json:"user"`
	StartTime    string  `json:"start_time"`
	StopTime     string  `json:"stop_time"`
	RoutePoints  int     `json:"route_points"`
	Events       int     `json:"events"`
	Metrics      int     `json:"metrics"`
	Logs         int     `json:"logs"`
	RouteEntries int     `json:"route_entries"`
	DistanceKm   float64 `json:"distance_km"`
}

func newInspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Decode an archive offline and print what an upload would store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := inspectArchive(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Fprintf(out, "Archive:       %s\n", summary.Archive)
			fmt.Fprintf(out, "Fingerprint:   %s\n", summary.Fingerprint)
			fmt.Fprintf(out, "User:          %s\n", summary.User)
			fmt.Fprintf(out, "Start Time:    %s\n", summary.StartTime)
			fmt.Fprintf(out, "End Time:      %s\n", summary.StopTime)
			fmt.Fprintf(out, "Route points:  %d\n", summary.RoutePoints)
			fmt.Fprintf(out, "Events:        %d\n", summary.Events)
			fmt.Fprintf(out, "Metrics:       %d\n", summary.Metrics)
			fmt.Fprintf(out, "Logs:          %d\n", summary.Logs)
			fmt.Fprintf(out, "Route entries: %d\n", summary.RouteEntries)
			fmt.Fprintf(out, "Distance:      %.2f km\n", summary.DistanceKm)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func inspectArchive(cmd *cobra.Command, path string) (inspectSummary, error) {
	scratch, err := os.MkdirTemp("", "trpctl-*")
	if err != nil {
		return inspectSummary{}, err
	}
	defer os.RemoveAll(scratch)

	root, err := archive.Extract(path, scratch)
	if err != nil {
		return inspectSummary{}, err
	}
	tree, err := archive.Validate(root)
	if err != nil {
		return inspectSummary{}, err
	}
	docs, err := trpxml.DecodeAll(cmd.Context(), tree.Content, tree.Route, tree.Positions)
	if err != nil {
		return inspectSummary{}, err
	}
	ds, err := dataset.Map(docs[0], docs[1], docs[2])
	if err != nil {
		return inspectSummary{}, err
	}
	if ds.Logs, err = dataset.CollectLogs(tree.Logs); err != nil {
		return inspectSummary{}, err
	}
	fp, err := report.Fingerprint(path)
	if err != nil {
		return inspectSummary{}, err
	}

	meta, _ := ds.Metadata.Get()
	return inspectSummary{
		Archive:      filepath.Base(path),
		Fingerprint:  fp,
		User:         meta.UserName.Or("N/A"),
		StartTime:    meta.StartTime.Or("N/A"),
		StopTime:     meta.StopTime.Or("N/A"),
		RoutePoints:  len(ds.RoutePoints),
		Events:       len(ds.Events),
		Metrics:      len(ds.Metrics),
		Logs:         len(ds.Logs),
		RouteEntries: ds.RouteEntries,
		DistanceKm:   session.TrackKm(ds.RoutePoints),
	}, nil
}
