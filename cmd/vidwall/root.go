package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vidwall/vidwall/internal/config"
)

// cliContext carries the global flag values into the subcommands.
type cliContext struct {
	configFlag    *string
	socketFlag    *string
	logLevelFlag  *string
	logFormatFlag *string
}

// loadConfig reads the configuration honoring --config and folds the
// global logging flags in. The returned path is the file actually read,
// empty when only defaults apply.
func (c *cliContext) loadConfig() (*config.Config, string, error) {
	path := strings.TrimSpace(*c.configFlag)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		if def := config.DefaultPath(); fileExists(def) {
			path = def
		}
	}
	if v := strings.TrimSpace(*c.socketFlag); v != "" {
		cfg.Daemon.Socket = v
	}
	if v := strings.TrimSpace(*c.logLevelFlag); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(*c.logFormatFlag); v != "" {
		cfg.Log.Format = v
	}
	return cfg, path, nil
}

// socketPath resolves the control socket for client commands: the
// --socket flag wins, then the config file, then the runtime default.
func (c *cliContext) socketPath() string {
	if v := strings.TrimSpace(*c.socketFlag); v != "" {
		return v
	}
	cfg, _, err := c.loadConfig()
	if err != nil {
		return config.DefaultSocketPath()
	}
	return cfg.SocketPath()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newRootCommand() *cobra.Command {
	var configFlag, socketFlag, logLevelFlag, logFormatFlag string

	ctx := &cliContext{
		configFlag:    &configFlag,
		socketFlag:    &socketFlag,
		logLevelFlag:  &logLevelFlag,
		logFormatFlag: &logFormatFlag,
	}

	rootCmd := &cobra.Command{
		Use:           "vidwall",
		Short:         "Looping video wallpaper daemon for wlroots compositors",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Control socket path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format (console, json, auto)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newCtlCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand())
	rootCmd.AddCommand(newProbeCommand())
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newLicenseCommand())

	return rootCmd
}
