package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/readiness-agent/internal/server"
)

var (
	servePort       int
	serveConfigPath string
	serveNoPoller   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and background poller",
	Long:  `Start an HTTP server exposing the processing triggers and, unless disabled, the background poller that sweeps unsent assessments.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to JSON config file")
	serveCmd.Flags().BoolVar(&serveNoPoller, "no-poller", false, "Do not start the background poller")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer a.close()

	runner := a.runner()
	if !serveNoPoller {
		runner.Start(context.Background())
	}
	defer runner.Stop()

	srv := server.New(server.Config{Port: cfg.Port}, a.processor, runner)
	return srv.Start()
}
