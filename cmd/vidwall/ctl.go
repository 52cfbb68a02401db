package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidwall/vidwall/internal/ipc"
)

func newCtlCommand(ctx *cliContext) *cobra.Command {
	ctlCmd := &cobra.Command{
		Use:   "ctl",
		Short: "Control a running daemon",
	}

	ctlCmd.AddCommand(
		newStatusCommand(ctx),
		newPauseCommand(ctx),
		newResumeCommand(ctx),
		newToggleCommand(ctx),
		newMuteCommand(ctx),
		newUnmuteCommand(ctx),
		newVolumeCommand(ctx),
		newReloadCommand(ctx),
		newStopCommand(ctx),
	)
	return ctlCmd
}

func dialDaemon(ctx *cliContext) (*ipc.Client, error) {
	path := ctx.socketPath()
	client, err := ipc.Dial(path)
	if err != nil {
		return nil, fmt.Errorf("no daemon reachable at %s, is vidwall run active? (%w)", path, err)
	}
	return client, nil
}

func newStatusCommand(ctx *cliContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show playback state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			st, err := client.Status()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, st)
			}

			decode := "software"
			if st.Hardware {
				decode = "va-api"
			}
			fps := "uncapped"
			if st.FPSCap > 0 {
				fps = strconv.Itoa(st.FPSCap)
			}
			audio := "disabled"
			if st.AudioEnabled {
				audio = fmt.Sprintf("volume %.2f", st.Volume)
			}
			paused := "no"
			switch {
			case st.Paused && !st.UserPaused:
				paused = "yes (window rule)"
			case st.Paused:
				paused = "yes"
			}
			windows := fmt.Sprintf("%d tracked, %d fullscreen holds, %d window holds",
				st.TrackedWindows, st.FullscreenHolds, st.WindowHolds)

			rows := [][2]string{
				{"instance", st.InstanceID},
				{"pid", strconv.Itoa(st.PID)},
				{"version", st.Version},
				{"uptime", (time.Duration(st.UptimeSeconds) * time.Second).String()},
				{"file", st.File},
				{"output", fmt.Sprintf("%dx%d", st.Width, st.Height)},
				{"decode", decode},
				{"fps cap", fps},
				{"paused", paused},
				{"muted", strconv.FormatBool(st.Muted)},
				{"audio", audio},
				{"windows", windows},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKV(rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newPauseCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause playback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Pause(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Playback paused")
			return nil
		},
	}
}

func newResumeCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume playback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Resume()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if resp.Paused {
				fmt.Fprintln(out, "User pause cleared, a window rule still holds playback")
			} else {
				fmt.Fprintln(out, "Playback resumed")
			}
			return nil
		},
	}
}

func newToggleCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle the user pause",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Toggle()
			if err != nil {
				return err
			}
			state := "resumed"
			if resp.Paused {
				state = "paused"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Playback %s\n", state)
			return nil
		},
	}
}

func newMuteCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mute",
		Short: "Mute audio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Mute(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Audio muted")
			return nil
		},
	}
}

func newUnmuteCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unmute",
		Short: "Unmute audio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Unmute()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if resp.Muted {
				fmt.Fprintln(out, "User mute cleared, a window rule still mutes audio")
			} else {
				fmt.Fprintln(out, "Audio unmuted")
			}
			return nil
		},
	}
}

func newVolumeCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "volume <value>",
		Short: "Set audio volume between 0.0 and 1.0",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("volume must be a number between 0 and 1, got %q", args[0])
			}

			client, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.SetVolume(v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Volume set to %.2f\n", resp.Volume)
			return nil
		},
	}
}

func newReloadCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reread the config file and apply it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Reload()
			if err != nil {
				return err
			}
			if !resp.Accepted {
				return fmt.Errorf("reload refused: %s", resp.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration reloaded")
			return nil
		},
	}
}

func newStopCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Stop(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopping")
			return nil
		},
	}
}
