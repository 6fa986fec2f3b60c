package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	sendCmd.Flags().IntVar(&sendCount, "count", 1, "Number of synthetic events to inject")
	rootCmd.AddCommand(sendCmd)
}

var sendCount int

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Inject synthetic keystroke events",
	Long: `Inject synthetic events into the running daemon. Useful for trying out
notifications, goals and the live stream without typing for an hour.`,
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var out struct {
		Accepted int `json:"accepted"`
		Dropped  int `json:"dropped"`
	}
	in := map[string]interface{}{"count": sendCount}
	if err := c.post("/v1/events", in, &out); err != nil {
		return err
	}

	fmt.Printf("Accepted %d event(s), dropped %d\n", out.Accepted, out.Dropped)
	return nil
}
