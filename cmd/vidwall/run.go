package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vidwall/vidwall/internal/app"
	"github.com/vidwall/vidwall/internal/logging"
)

func newRunCommand(ctx *cliContext) *cobra.Command {
	var (
		file              string
		audio             bool
		volume            float64
		muteOnWindow      bool
		pauseOnWindow     bool
		noPauseFullscreen bool
		fpsCap            int
		noFallbackGuard   bool
		software          bool
		watch             bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the wallpaper daemon",
		Long: "Run plays a video in a loop as the desktop background on any\n" +
			"compositor implementing zwlr_layer_shell_v1 (Sway, Hyprland, river,\n" +
			"labwc, ...). Decoding runs in GStreamer threads, frames are uploaded\n" +
			"straight from the mapped buffer to a GPU texture, and VA-API hardware\n" +
			"decoding is used automatically when available.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("file") {
				cfg.Video.File = file
			}
			if flags.Changed("audio") {
				cfg.Audio.Enabled = audio
			}
			if flags.Changed("volume") {
				cfg.Audio.Volume = volume
			}
			if flags.Changed("mute-on-window") {
				cfg.Behavior.MuteOnWindow = muteOnWindow
			}
			if flags.Changed("pause-on-window") {
				cfg.Behavior.PauseOnWindow = pauseOnWindow
			}
			if flags.Changed("no-pause-on-fullscreen") {
				cfg.Behavior.PauseOnFullscreen = !noPauseFullscreen
			}
			if flags.Changed("fps") {
				cfg.Video.FPSCap = fpsCap
			}
			if flags.Changed("no-fallback-guard") {
				cfg.Behavior.FallbackGuard = !noFallbackGuard
			}
			if flags.Changed("software") {
				cfg.Video.Software = software
			}
			if flags.Changed("watch") {
				cfg.Behavior.Watch = watch
			}

			if strings.TrimSpace(cfg.Video.File) == "" {
				return errors.New("a video file is required, pass --file or set video.file in the config")
			}
			if err := cfg.Validate(true); err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.Bootstrap(app.Options{
				Config:     cfg,
				ConfigPath: cfgPath,
				Version:    version,
			})
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Run(runCtx)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the video file")
	cmd.Flags().BoolVarP(&audio, "audio", "a", false, "Enable audio playback")
	cmd.Flags().Float64Var(&volume, "volume", 1.0, "Audio volume, 0.0 to 1.0")
	cmd.Flags().BoolVar(&muteOnWindow, "mute-on-window", false, "Mute while any window is focused or maximized")
	cmd.Flags().BoolVar(&pauseOnWindow, "pause-on-window", false, "Pause while any window is focused or maximized")
	cmd.Flags().BoolVar(&noPauseFullscreen, "no-pause-on-fullscreen", false, "Keep playing under fullscreen windows")
	cmd.Flags().IntVar(&fpsCap, "fps", 0, "Frame rate limit, drops frames to hit it")
	cmd.Flags().BoolVar(&noFallbackGuard, "no-fallback-guard", false, "Allow software decoding above 1920x1080")
	cmd.Flags().BoolVar(&software, "software", false, "Force software decoding")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload when the config file changes")
	return cmd
}
