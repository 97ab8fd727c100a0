package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ddspy/internal/app"
	"ddspy/internal/bus"
	"ddspy/internal/config"
	"ddspy/internal/demo"
	"ddspy/internal/distlog"
	"ddspy/internal/simbus"
)

func init() {
	rootCmd.AddCommand(cmdDemo)
}

var cmdDemo = &cobra.Command{
	Use:   "demo",
	Short: "Run simulated peers in the foreground",
	Long:  `Runs a small fleet of simulated peers that publish log and state records and answer verbosity commands. Useful for exercising the console without a real bus. Stops on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := app.NewLogger(cfg.LogFile)
		if err != nil {
			return err
		}
		defer logger.Sync()

		hub := simbus.NewHub()
		stop, err := startDemoFleet(hub, cfg, logger)
		if err != nil {
			return err
		}
		defer stop()

		fmt.Fprintln(os.Stdout, "Started simulated peers")
		runSpin := spinner.New(spinner.CharSets[21], 120*time.Millisecond, spinner.WithWriter(os.Stdout))
		runSpin.Suffix = " Running..."
		runSpin.Start()

		sigc := make(chan os.Signal, 2)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		<-sigc
		runSpin.Stop()
		return nil
	},
}

// fleet describes the fixed set of simulated peers.
var fleet = []struct {
	identity bus.Identity
	name     string
	address  string
	level    distlog.Level
}{
	{bus.Identity{HostID: 0x0a000101, AppID: 4801}, "sensor-frontend", "10.0.1.1", distlog.Info},
	{bus.Identity{HostID: 0x0a000102, AppID: 4802}, "tracker", "10.0.1.2", distlog.Warning},
	{bus.Identity{HostID: 0x0a000203, AppID: 4911}, "recorder", "10.0.2.3", distlog.Error},
}

// startDemoFleet attaches the simulated peers to the hub and starts their
// heartbeat/command loops. The returned stop function tears them all down.
func startDemoFleet(hub *simbus.Hub, cfg config.Config, logger *zap.Logger) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	peers := make([]*demo.Peer, 0, len(fleet))
	stop := func() {
		cancel()
		for _, p := range peers {
			p.Close()
		}
	}
	for _, member := range fleet {
		p, err := demo.NewPeer(demo.PeerOptions{
			Hub:      hub,
			Domain:   cfg.Domain,
			Identity: member.identity,
			Name:     member.name,
			Address:  member.address,
			Level:    member.level,
			Topics: demo.Topics{
				Log:             cfg.LogTopic,
				State:           cfg.StateTopic,
				CommandRequest:  cfg.CommandRequestTopic,
				CommandResponse: cfg.CommandResponseTopic,
			},
			Log: logger.Named(member.name),
		})
		if err != nil {
			stop()
			return nil, fmt.Errorf("start peer %s: %w", member.name, err)
		}
		peers = append(peers, p)
		go p.Run(ctx, nil, 2*time.Second)
	}
	return stop, nil
}
