package cli

import (
	"context"

	"github.com/keybeat-app/keybeat/internal/daemon"
	"github.com/spf13/cobra"
)

func init() {
	relayCmd.Flags().StringVar(&relayListen, "listen", "", "Address to listen on (overrides config)")
	relayCmd.Flags().StringVar(&relayToken, "token", "", "Bearer token clients must present (overrides config)")
	rootCmd.AddCommand(relayCmd)
}

var (
	relayListen string
	relayToken  string
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Start a replica relay server",
	Long: `Start the relay that hosts replica rows for multi-device sync.
Point the [sync] section of every device at this server.`,
	RunE: runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}

	if relayListen != "" {
		cfg.Relay.Listen = relayListen
	}
	if relayToken != "" {
		cfg.Relay.Token = relayToken
	}

	return daemon.ServeRelay(context.Background(), cfg)
}
