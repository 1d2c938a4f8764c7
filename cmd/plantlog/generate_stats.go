package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/plantlog/internal/config"
	"github.com/jgoulah/plantlog/internal/publisher"
)

var generateStatsCmd = &cobra.Command{
	Use:   "generate-stats",
	Short: "Generate statistics in Home Assistant from backfilled states",
	Long:  `Calls AppDaemon endpoint to compile statistics from the backfilled daily net-flow states. Run this after publishing to populate the Energy dashboard.`,
	RunE:  runGenerateStats,
}

func init() {
	rootCmd.AddCommand(generateStatsCmd)
}

func runGenerateStats(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Generate Statistics started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	return withEnv(cmd, envOptions{}, func(ctx context.Context, env *appEnv) error {
		cfg := env.cfg
		if !cfg.HomeAssistant.Enabled {
			return fmt.Errorf("Home Assistant is not enabled in config")
		}

		// MQTT is not needed for statistics
		pub, err := publisher.New(config.MQTTConfig{}, cfg.GetTopicPrefix(), cfg.HomeAssistant, env.logger)
		if err != nil {
			return fmt.Errorf("creating publisher: %w", err)
		}
		defer pub.Close()

		ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		fmt.Printf("Generating statistics for %s...\n", cfg.HomeAssistant.EntityID)
		result, err := pub.GenerateStatistics(ctx)
		if err != nil {
			return err
		}

		fmt.Println("✓ Statistics generated")
		for k, v := range result {
			fmt.Printf("  %s: %v\n", k, v)
		}
		return nil
	})
}
