package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"ddspy/internal/app"
	"ddspy/internal/config"
	"ddspy/internal/simbus"
)

var rootCmd = &cobra.Command{
	Use:   "ddspy [command]",
	Short: "ddspy: interactive bus inspection console",
	Long:  `ddspy discovers participants on a pub-sub domain, streams their distributed log and state topics, and adjusts their logging verbosity remotely.`,
}

var (
	flagDomain   int
	flagInterval int
	configPath   string
	logFilePath  string
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&flagDomain, "domain", "d", 1, "Domain to inspect")
	rootCmd.PersistentFlags().IntVarP(&flagInterval, "interval", "i", 10, "Discovery refresh interval in seconds")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file")
	rootCmd.PersistentFlags().StringVar(&logFilePath, "log-file", "", "Diagnostic log file (default: discard)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("domain") {
		cfg.Domain = flagDomain
	}
	if cmd.Flags().Changed("interval") {
		cfg.RefreshInterval = time.Duration(flagInterval) * time.Second
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = logFilePath
	}
	return cfg, nil
}

// newConsole builds the shared controller: config, diagnostics logger, bus
// attachment, and (optionally) a fleet of simulated peers for live traffic.
func newConsole(cmd *cobra.Command, withPeers bool) (*app.Console, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	hub := simbus.NewHub()
	var stopPeers func()
	if withPeers {
		stopPeers, err = startDemoFleet(hub, cfg, logger)
		if err != nil {
			logger.Sync()
			return nil, nil, err
		}
	}

	conn := hub.Connect(cfg.Domain, simbus.ParticipantConfig{
		Name:    "ddspy console",
		Address: "local",
	})
	console := app.New(app.Options{Config: cfg, Conn: conn, Log: logger})

	cleanup := func() {
		console.Close()
		if stopPeers != nil {
			stopPeers()
		}
		logger.Sync()
	}
	return console, cleanup, nil
}
