// Command screenlog records every display to rolling MP4 files and logs the
// text of the focused window.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
}

func main() {
	os.Exit(submain(context.Background()))
}

func submain(ctx context.Context) int {
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("screenlog command failed", "error", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "screenlog",
		Short:         "Screen recorder with focused-window OCR",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts.configPath)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newDisplaysCmd())
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newOCRServeCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}
