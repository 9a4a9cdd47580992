package main

import (
	"fmt"
	"text/tabwriter"

	"backend-trpreport/internal/report"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newReportsCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List generated report decks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = loadConfig().OutputDir
			}
			files, err := report.ListDecks(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "No reports in %s\n", dir)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tCREATED")
			for _, f := range files {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.SizeHuman, humanize.Time(f.CreatedAt))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "report directory (default OUTPUT_DIR)")
	return cmd
}
