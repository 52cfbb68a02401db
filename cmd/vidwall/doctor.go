package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidwall/vidwall/internal/diag"
)

func newDoctorCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that this machine can run the wallpaper",
		Long: `Doctor runs a series of environment checks: GStreamer core and the
pipeline elements playback needs, VA-API decode support, the GPU, and
the Wayland session variables. Optional checks may fail without
preventing playback, required ones may not.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, ok := diag.RunChecks(diag.DefaultChecks())
			if jsonOut {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
				if !ok {
					return errors.New("required checks failed")
				}
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.OK {
					status = "warn"
					if r.Required {
						status = "FAIL"
					}
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows))
			if !ok {
				return errors.New("required checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}
