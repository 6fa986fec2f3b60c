package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Trigger a reconciliation pass with the relay",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	if err := c.post("/v1/sync", nil, nil); err != nil {
		return err
	}

	fmt.Println("Sync started. Check 'keybeat devices' once it finishes.")
	return nil
}
