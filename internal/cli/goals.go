package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/spf13/cobra"
)

func init() {
	goalsAddCmd.Flags().StringVar(&goalName, "name", "", "Goal name (required)")
	goalsAddCmd.Flags().StringVar(&goalDescription, "description", "", "Optional description")
	goalsAddCmd.Flags().StringVar(&goalType, "type", "total", "Goal type: total, streak or daily")
	goalsAddCmd.Flags().Int64Var(&goalTarget, "target", 0, "Target value (required)")
	goalsAddCmd.Flags().StringVar(&goalDue, "due", "", "Target date (YYYY-MM-DD)")

	goalsCmd.AddCommand(goalsListCmd, goalsAddCmd, goalsSetDailyCmd, goalsSetWeeklyCmd)
	rootCmd.AddCommand(goalsCmd)
}

var (
	goalName        string
	goalDescription string
	goalType        string
	goalTarget      int64
	goalDue         string
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage personal goals and targets",
	RunE:  runGoalsList, // bare 'keybeat goals' lists
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals",
	RunE:  runGoalsList,
}

var goalsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a goal",
	RunE:  runGoalsAdd,
}

var goalsSetDailyCmd = &cobra.Command{
	Use:   "set-daily TARGET",
	Short: "Set the daily keystroke goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalsSetDaily,
}

var goalsSetWeeklyCmd = &cobra.Command{
	Use:   "set-weekly TARGET",
	Short: "Set the weekly keystroke goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalsSetWeekly,
}

func runGoalsList(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var out struct {
		Goals []domain.Goal `json:"goals"`
	}
	if err := c.get("/v1/goals", &out); err != nil {
		return err
	}

	if len(out.Goals) == 0 {
		fmt.Println("No goals yet. Add one with 'keybeat goals add --name <name> --target <n>'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tPROGRESS\tDUE\tSTATUS")
	for _, g := range out.Goals {
		due := g.TargetDate
		if due == "" {
			due = "-"
		}
		status := "open"
		if g.Completed {
			status = "done"
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n", g.Name, g.Type, g.Current, g.Target, due, status)
	}
	return w.Flush()
}

func runGoalsAdd(cmd *cobra.Command, args []string) error {
	if goalName == "" || goalTarget <= 0 {
		return fmt.Errorf("a goal needs --name and a positive --target")
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var g domain.Goal
	in := map[string]interface{}{
		"name":        goalName,
		"description": goalDescription,
		"type":        goalType,
		"target":      goalTarget,
		"target_date": goalDue,
	}
	if err := c.post("/v1/goals", in, &g); err != nil {
		return err
	}

	fmt.Printf("Added goal %q (%s, target %d)\n", g.Name, g.Type, g.Target)
	return nil
}

func runGoalsSetDaily(cmd *cobra.Command, args []string) error {
	return setGoalSetting("daily_goal", "Daily", args[0])
}

func runGoalsSetWeekly(cmd *cobra.Command, args []string) error {
	return setGoalSetting("weekly_goal", "Weekly", args[0])
}

func setGoalSetting(field, label, raw string) error {
	target, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("target must be a number: %q", raw)
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	if err := c.put("/v1/settings", map[string]interface{}{field: target}, nil); err != nil {
		return err
	}

	fmt.Printf("%s goal set to %d keystrokes.\n", label, target)
	return nil
}
