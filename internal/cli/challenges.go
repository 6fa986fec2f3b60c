package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(challengesCmd)
}

var challengesCmd = &cobra.Command{
	Use:   "challenges",
	Short: "Show active daily and weekly challenges",
	RunE:  runChallenges,
}

func runChallenges(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var out struct {
		Challenges []domain.Challenge `json:"challenges"`
	}
	if err := c.get("/v1/challenges", &out); err != nil {
		return err
	}

	if len(out.Challenges) == 0 {
		fmt.Println("No active challenges. The daemon rolls new ones each day.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHALLENGE\tTYPE\tPROGRESS\tENDS\tXP\tSTATUS")
	for _, ch := range out.Challenges {
		status := "open"
		if ch.Completed {
			status = "done"
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%d\t%s\n",
			ch.Title, ch.Type, ch.Progress, ch.Target, ch.EndDate, ch.RewardXP, status)
	}
	return w.Flush()
}
