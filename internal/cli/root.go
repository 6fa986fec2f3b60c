// Package cli implements the keybeat command-line interface using Cobra.
// Read commands are thin clients of the running daemon's local API; serve
// and relay start servers in the foreground.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "keybeat",
	Short: "Keybeat tracks your keystrokes, locally",
	Long: `Keybeat counts your keystrokes and turns them into streaks, levels,
achievements and challenges. Everything stays on your machine unless
you point the [sync] config section at a relay for multi-device sync.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
