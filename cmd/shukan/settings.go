package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/profile"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change display settings",
	Long:  `Without flags, prints the current settings. --accent, --sound and --reduced-motion change them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch profile.SettingsPatch
		flags := cmd.Flags()
		if flags.Changed("accent") {
			accent, _ := flags.GetString("accent")
			patch.Accent = &accent
		}
		if flags.Changed("sound") {
			sound, _ := flags.GetBool("sound")
			patch.Sound = &sound
		}
		if flags.Changed("reduced-motion") {
			reduced, _ := flags.GetBool("reduced-motion")
			patch.ReducedMotion = &reduced
		}

		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			var (
				s   profile.Settings
				err error
			)
			if patch == (profile.SettingsPatch{}) {
				s, err = e.Settings(ctx)
			} else {
				s, err = e.UpdateSettings(ctx, patch)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "accent:         %s\n", s.Accent)
			fmt.Fprintf(out, "sound:          %t\n", s.Sound)
			fmt.Fprintf(out, "reduced motion: %t\n", s.ReducedMotion)
			return nil
		})
	},
}

func init() {
	settingsCmd.Flags().String("accent", "", "accent colour as #rgb or #rrggbb")
	settingsCmd.Flags().Bool("sound", true, "play completion sounds")
	settingsCmd.Flags().Bool("reduced-motion", false, "reduce celebration animations")
	rootCmd.AddCommand(settingsCmd)
}
