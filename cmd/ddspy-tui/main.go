package main

import (
	"flag"
	"log"

	"ddspy/internal/app"
	"ddspy/internal/config"
	"ddspy/internal/simbus"
	"ddspy/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := app.NewLogger(cfg.LogFile)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer logger.Sync()

	hub := simbus.NewHub()
	conn := hub.Connect(cfg.Domain, simbus.ParticipantConfig{
		Name:    "ddspy console",
		Address: "local",
	})
	console := app.New(app.Options{Config: cfg, Conn: conn, Log: logger})
	defer console.Close()

	if err := tui.Run(console); err != nil {
		log.Fatalf("tui exited with error: %v", err)
	}
}
