package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	settingsName      string
	settingsPrecision int
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change display settings",
	Long:  `Without flags, prints the current settings. With --name or --precision, updates and saves them.`,
	RunE:  runSettings,
}

func init() {
	settingsCmd.Flags().StringVar(&settingsName, "name", "", "Display name")
	settingsCmd.Flags().IntVar(&settingsPrecision, "precision", 0, "Decimal places shown in reports (0-6)")
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, envOptions{}, func(ctx context.Context, env *appEnv) error {
		settings := env.orch.LoadSettings(ctx)

		changed := false
		if cmd.Flags().Changed("name") {
			settings.DisplayName = settingsName
			changed = true
		}
		if cmd.Flags().Changed("precision") {
			settings.DecimalPrecision = settingsPrecision
			changed = true
		}

		if changed {
			if err := env.orch.SaveSettings(ctx, settings); err != nil {
				return err
			}
			fmt.Println("Settings saved")
		}

		fmt.Printf("Display name:      %s\n", settings.DisplayName)
		fmt.Printf("Decimal precision: %d\n", settings.DecimalPrecision)
		return nil
	})
}
