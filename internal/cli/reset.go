package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all statistics and start over",
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		fmt.Print("This erases all keystroke statistics, XP and achievements. Type 'yes' to continue: ")
		scanner := newLineScanner(os.Stdin)
		if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	if err := c.post("/v1/reset", map[string]interface{}{"confirm": true}, nil); err != nil {
		return err
	}

	fmt.Println("Statistics reset.")
	return nil
}
