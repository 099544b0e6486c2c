package main

import (
	"os"

	"github.com/hoshinonyaruko/snake-desktop/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	port       string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("snake-desktop failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "snake-desktop",
		Short:         "Snake on a 25x25 grid",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			return run("")
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.json", "path of the JSON config file, created with defaults if missing")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "overrides log_level from the config file")

	windowCmd := &cobra.Command{
		Use:   "window",
		Short: "play in a desktop window",
		RunE: func(c *cobra.Command, args []string) error {
			return run(config.SurfaceWindow)
		},
	}
	terminalCmd := &cobra.Command{
		Use:   "terminal",
		Short: "play in the terminal",
		RunE: func(c *cobra.Command, args []string) error {
			return run(config.SurfaceTerminal)
		},
	}
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "play over HTTP: /update-direction, /render-map, /state, /ws, /acknowledge, /metrics",
		RunE: func(c *cobra.Command, args []string) error {
			return run(config.SurfaceHTTP)
		},
	}
	serveCmd.Flags().StringVar(&port, "port", "", "overrides port from the config file")

	rootCmd.AddCommand(windowCmd, terminalCmd, serveCmd)
	return rootCmd
}
