package main

import (
	"fmt"
	"os"

	"backend-trpreport/internal/config"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var loadConfig = config.Load

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trpctl",
		Short:         "Inspect TRP drive-test archives and generated reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}
	root.AddCommand(newInspectCmd())
	root.AddCommand(newReportsCmd())
	root.AddCommand(newTokenCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
