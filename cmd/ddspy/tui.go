package main

import (
	"fmt"

	"ddspy/internal/tui"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdTUI)
}

var tuiWithPeers bool

func init() {
	cmdTUI.Flags().BoolVar(&tuiWithPeers, "demo", false, "Attach simulated peers so the console has live traffic")
}

var cmdTUI = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive console",
	RunE: func(cmd *cobra.Command, args []string) error {
		console, cleanup, err := newConsole(cmd, tuiWithPeers)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := tui.Run(console); err != nil {
			return fmt.Errorf("tui exited with error: %w", err)
		}
		return nil
	},
}
