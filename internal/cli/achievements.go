package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/keybeat-app/keybeat/internal/app/engagement"
	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(achievementsCmd)
}

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "Show unlocked and still-locked achievements",
	RunE:  runAchievements,
}

func runAchievements(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var out struct {
		Achievements []domain.Achievement `json:"achievements"`
	}
	if err := c.get("/v1/achievements", &out); err != nil {
		return err
	}

	unlocked := make(map[string]domain.Achievement, len(out.Achievements))
	for _, a := range out.Achievements {
		unlocked[a.ID] = a
	}

	defs := engagement.AllAchievements()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACHIEVEMENT\tCATEGORY\tXP\tUNLOCKED")
	for _, def := range defs {
		when := "-"
		if a, ok := unlocked[def.ID]; ok {
			when = a.UnlockedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s %s\t%s\t%d\t%s\n", def.Icon, def.Name, def.Category, def.RewardXP, when)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d of %d unlocked\n", len(unlocked), len(defs))
	return nil
}
