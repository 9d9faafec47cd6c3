package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/routine"

	"github.com/spf13/cobra"
)

var routineCmd = &cobra.Command{
	Use:     "routine",
	Aliases: []string{"r"},
	Short:   "Manage routines",
}

var routineAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a routine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := fieldsFromFlags(cmd)
		title := args[0]
		fields.Title = &title

		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			created, err := e.AddRoutine(ctx, fields)
			if err != nil {
				return err
			}
			f, err := outputFormatter(cmd)
			if err != nil {
				return err
			}
			text, err := f.Routines([]routine.Routine{created})
			return render(cmd, text, err)
		})
	},
}

var routineLsCmd = &cobra.Command{
	Use:   "ls [query]",
	Short: "List routines, optionally filtered by title",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			list, err := e.Routines(ctx, query)
			if err != nil {
				return err
			}
			f, err := outputFormatter(cmd)
			if err != nil {
				return err
			}
			text, err := f.Routines(list)
			return render(cmd, text, err)
		})
	},
}

var routineEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a routine's title, emoji, time or duration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := fieldsFromFlags(cmd)
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			fields.Title = &title
		}
		if fields == (routine.Fields{}) {
			return fmt.Errorf("nothing to change: pass --title, --emoji, --time or --minutes")
		}

		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			edited, err := e.EditRoutine(ctx, args[0], fields)
			if err != nil {
				return err
			}
			f, err := outputFormatter(cmd)
			if err != nil {
				return err
			}
			text, err := f.Routines([]routine.Routine{edited})
			return render(cmd, text, err)
		})
	},
}

var routineRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a routine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			if err := e.RemoveRoutine(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s\n", args[0])
			return nil
		})
	},
}

var routineShieldCmd = &cobra.Command{
	Use:   "shield <id>",
	Short: "Spend a streak shield on a routine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			shielded, err := e.UseShield(ctx, args[0])
			if err != nil {
				return err
			}
			f, err := outputFormatter(cmd)
			if err != nil {
				return err
			}
			text, err := f.Routines([]routine.Routine{shielded})
			return render(cmd, text, err)
		})
	},
}

// fieldsFromFlags collects only the flags the user actually set.
func fieldsFromFlags(cmd *cobra.Command) routine.Fields {
	var fields routine.Fields
	flags := cmd.Flags()
	if flags.Changed("emoji") {
		emoji, _ := flags.GetString("emoji")
		fields.Emoji = &emoji
	}
	if flags.Changed("time") {
		at, _ := flags.GetString("time")
		fields.ScheduledTime = &at
	}
	if flags.Changed("minutes") {
		minutes, _ := flags.GetInt("minutes")
		fields.DurationMinutes = &minutes
	}
	return fields
}

func addRoutineFlags(cmd *cobra.Command) {
	cmd.Flags().String("emoji", "", "emoji shown next to the title")
	cmd.Flags().String("time", "", "scheduled time of day, HH:MM")
	cmd.Flags().Int("minutes", 0, "focus session length in minutes")
}

func init() {
	addRoutineFlags(routineAddCmd)
	addRoutineFlags(routineEditCmd)
	routineEditCmd.Flags().String("title", "", "new title")

	routineCmd.AddCommand(routineAddCmd)
	routineCmd.AddCommand(routineLsCmd)
	routineCmd.AddCommand(routineEditCmd)
	routineCmd.AddCommand(routineRmCmd)
	routineCmd.AddCommand(routineShieldCmd)
	rootCmd.AddCommand(routineCmd)
}
