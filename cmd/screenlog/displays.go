package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/screenlog/internal/screen"
)

func newDisplaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "displays",
		Short: "List connected displays and their scale factors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := screen.NewDisplays()
			monitors, err := d.Enumerate()
			if err != nil {
				return err
			}
			scales, _ := d.ScaleFactors(cmd.Context())
			return printDisplays(cmd, monitors, scales)
		},
	}
}

func printDisplays(cmd *cobra.Command, monitors []screen.Monitor, scales []float64) error {
	out := cmd.OutOrStdout()
	for i, m := range monitors {
		scale := 1.0
		if i < len(scales) {
			scale = scales[i]
		}
		if _, err := fmt.Fprintf(out, "%s scale=%g\n", m, scale); err != nil {
			return err
		}
	}
	return nil
}
