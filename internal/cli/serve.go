package cli

import (
	"context"

	"github.com/keybeat-app/keybeat/internal/daemon"
	"github.com/spf13/cobra"
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Keybeat daemon",
	Long:  `Start the keystroke statistics daemon with its local API at localhost:7399.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	d.Server.SetVersion(rootCmd.Version)

	// Override config from flags
	if serveListen != "" {
		d.Config.Daemon.Listen = serveListen
	}

	return d.Serve(context.Background())
}
