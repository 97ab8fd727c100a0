package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdPeers)
}

var peersWithDemo bool

func init() {
	cmdPeers.Flags().BoolVar(&peersWithDemo, "demo", false, "Attach simulated peers before listing")
}

var cmdPeers = &cobra.Command{
	Use:   "peers",
	Short: "Print the discovered participants and their endpoints",
	Long:  `Attaches to the domain, replays the current discovery knowledge, and prints the participant/endpoint table to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		console, cleanup, err := newConsole(cmd, peersWithDemo)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := console.Refresh(); err != nil {
			return fmt.Errorf("discovery refresh failed: %w", err)
		}

		rows := console.Participants()
		if len(rows) == 0 {
			fmt.Fprintln(os.Stdout, "No participants discovered")
			return nil
		}
		for _, row := range rows {
			name := row.Name
			if name == "" {
				name = "-"
			}
			fmt.Fprintf(os.Stdout, "[%s] name=%s addr=%s endpoints=%d\n",
				row.Identity, name, row.Address, row.Endpoints)
			for _, ep := range console.Endpoints(row.Identity) {
				fmt.Fprintf(os.Stdout, "  %-6s %s type=%s %s\n",
					ep.Direction, ep.Topic, ep.TypeName, ep.QoS)
			}
		}
		return nil
	},
}
