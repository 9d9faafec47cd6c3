package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/progression"

	"github.com/spf13/cobra"
)

var questCmd = &cobra.Command{
	Use:   "quest",
	Short: "Daily quests",
}

var questLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Show today's quest board",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			board, err := e.Quests(ctx)
			if err != nil {
				return err
			}
			f, err := outputFormatter(cmd)
			if err != nil {
				return err
			}
			text, err := f.Quests(board)
			return render(cmd, text, err)
		})
	},
}

var questClaimCmd = &cobra.Command{
	Use:   "claim <quest-id>",
	Short: "Claim a finished quest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			claim, err := e.ClaimQuest(ctx, args[0])
			if err != nil {
				return err
			}
			if !claim.Claimed {
				fmt.Fprintf(cmd.OutOrStdout(), "Quest %s is not ready or was already claimed.\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Claimed %s: %s\n", claim.QuestID, claim.Grant)
			return nil
		})
	},
}

var rewardCmd = &cobra.Command{
	Use:   "reward",
	Short: "Rewards rolled after focus sessions",
}

var rewardLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List rewards waiting to be claimed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			pending, err := e.PendingRewards(ctx)
			if err != nil {
				return err
			}
			f, err := outputFormatter(cmd)
			if err != nil {
				return err
			}
			text, err := f.Rewards(pending)
			return render(cmd, text, err)
		})
	},
}

var rewardClaimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the oldest pending reward",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			reward, ok, err := e.ClaimReward(ctx)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No rewards waiting.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Claimed: %s\n", describeReward(reward))
			return nil
		})
	},
}

func describeReward(r progression.Reward) string {
	switch r.Kind {
	case progression.RewardGems:
		return fmt.Sprintf("+%d gems", r.Amount)
	case progression.RewardShield:
		return "+1 streak shield"
	case progression.RewardAccent:
		return "accent " + r.Accent
	default:
		return r.Text
	}
}

func init() {
	questCmd.AddCommand(questLsCmd)
	questCmd.AddCommand(questClaimCmd)
	rootCmd.AddCommand(questCmd)

	rewardCmd.AddCommand(rewardLsCmd)
	rewardCmd.AddCommand(rewardClaimCmd)
	rootCmd.AddCommand(rewardCmd)
}
