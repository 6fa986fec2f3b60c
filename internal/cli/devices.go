package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the devices known to the relay",
	RunE:  runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var out struct {
		Devices []struct {
			DeviceID    string    `json:"device_id"`
			DeviceName  string    `json:"device_name"`
			Total       int64     `json:"total_keystrokes"`
			Streak      int       `json:"streak_days"`
			Level       int       `json:"user_level"`
			LastUpdated time.Time `json:"last_updated"`
		} `json:"devices"`
	}
	if err := c.get("/v1/devices", &out); err != nil {
		return err
	}

	if len(out.Devices) == 0 {
		fmt.Println("No devices yet. Run 'keybeat sync' so this device registers itself.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tID\tKEYSTROKES\tSTREAK\tLEVEL\tLAST SEEN")
	for _, d := range out.Devices {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			d.DeviceName, shortID(d.DeviceID), d.Total, d.Streak, d.Level,
			d.LastUpdated.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

// shortID trims a uuid to its first group for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
