package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vidwall/vidwall/internal/probe"
)

func newProbeCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect an MP4 file without playing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := probe.File(args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, info)
			}

			container := info.Container
			if info.Brand != "" {
				container = fmt.Sprintf("%s (%s)", info.Container, info.Brand)
			}
			audio := "none"
			if info.HasAudio {
				audio = info.AudioCodec
				if audio == "" {
					audio = "present"
				}
			}
			rows := [][2]string{
				{"file", info.Path},
				{"container", container},
				{"video codec", info.VideoCodec},
				{"dimensions", fmt.Sprintf("%dx%d", info.Width, info.Height)},
				{"duration", fmt.Sprintf("%.2fs", info.DurationSeconds)},
				{"frames", strconv.Itoa(info.FrameCount)},
				{"avg fps", fmt.Sprintf("%.2f", info.AvgFPS)},
				{"audio", audio},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKV(rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}
