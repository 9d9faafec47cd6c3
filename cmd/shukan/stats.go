package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/progression"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show level, currencies and today's totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			a, err := e.Analytics(ctx)
			if err != nil {
				return err
			}
			f, err := outputFormatter(cmd)
			if err != nil {
				return err
			}
			text, err := f.Analytics(a)
			return render(cmd, text, err)
		})
	},
}

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Show the completion grid for recent days",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := weekDays(cmd)
		if err != nil {
			return err
		}
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			w, err := e.Week(ctx, days)
			if err != nil {
				return err
			}
			f, err := outputFormatter(cmd)
			if err != nil {
				return err
			}
			text, err := f.Week(w)
			return render(cmd, text, err)
		})
	},
}

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "List unlocked achievements",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			stats, err := e.Stats(ctx)
			if err != nil {
				return err
			}
			f, err := outputFormatter(cmd)
			if err != nil {
				return err
			}
			text, err := f.Achievements(sortedUnlocks(stats.Achievements))
			return render(cmd, text, err)
		})
	},
}

func weekDays(cmd *cobra.Command) (int, error) {
	days, err := cmd.Flags().GetInt("days")
	if err != nil {
		return 0, err
	}
	if days < 1 || days > engine.MaxWeekDays {
		return 0, fmt.Errorf("--days must be between 1 and %d", engine.MaxWeekDays)
	}
	return days, nil
}

// sortedUnlocks orders by unlock date, then ID.
func sortedUnlocks(m map[string]progression.Unlock) []progression.Unlock {
	out := make([]progression.Unlock, 0, len(m))
	for _, u := range m {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func init() {
	weekCmd.Flags().Int("days", 7, "number of days to show")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(weekCmd)
	rootCmd.AddCommand(achievementsCmd)
}
