package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/spf13/cobra"
)

func init() {
	statsCmd.Flags().BoolVar(&statsWatch, "watch", false, "Stream live updates instead of a one-shot snapshot")
	rootCmd.AddCommand(statsCmd)
}

var statsWatch bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show keystroke statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	if statsWatch {
		return watchStats(cmd.Context(), c)
	}

	var s domain.Stats
	if err := c.get("/v1/stats", &s); err != nil {
		return err
	}

	today := s.Daily[domain.DayKeyOf(time.Now())]
	fmt.Printf("Total keystrokes:  %d\n", s.Total)
	fmt.Printf("Session:           %d\n", s.Session)
	fmt.Print("Today:             ")
	if s.DailyGoal > 0 {
		fmt.Printf("%d  (%d%% of %d)\n", today, today*100/s.DailyGoal, s.DailyGoal)
	} else {
		fmt.Printf("%d\n", today)
	}
	fmt.Printf("Streak:            %d day(s), longest %d\n", s.CurrentStreak, s.LongestStreak)
	fmt.Printf("Level:             %d  (%d XP)\n", s.Level, s.XP)
	if s.PersonalityType != "" {
		fmt.Printf("Personality:       %s\n", s.PersonalityType)
	}
	fmt.Printf("Achievements:      %d unlocked\n", len(s.Achievements))
	return nil
}

// watchStats follows the daemon's NDJSON live stream until interrupted.
func watchStats(ctx context.Context, c *apiClient) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.base+"/v1/live", nil)
	if err != nil {
		return err
	}

	// The stream runs until interrupted, so no client timeout here.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s (start it with 'keybeat serve'): %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var ev struct {
			Type         string               `json:"type"`
			Stats        *domain.LiveUpdate   `json:"stats"`
			Notification *domain.Notification `json:"notification"`
		}
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				fmt.Println()
				return nil
			}
			return err
		}

		switch {
		case ev.Type == "stats" && ev.Stats != nil:
			u := ev.Stats
			fmt.Printf("\r%d total | %d today | streak %d | level %d (%d XP)    ",
				u.Total, u.Today, u.CurrentStreak, u.Level, u.XP)
		case ev.Type == "notification" && ev.Notification != nil:
			fmt.Printf("\n%s: %s\n", ev.Notification.Title, ev.Notification.Body)
		}
	}
}
