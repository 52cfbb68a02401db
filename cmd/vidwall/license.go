package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLicenseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "license",
		Short: "Print license information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "vidwall is licensed under the GNU Affero General Public License v3.0 (AGPL-3.0-only).")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Source code: https://github.com/vidwall/vidwall")
			return nil
		},
	}
}
