package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/plantlog/internal/calc"
	"github.com/jgoulah/plantlog/internal/publisher"
	"github.com/jgoulah/plantlog/pkg/models"
)

var (
	publishSince string
	publishUntil string
	publishLimit int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish day summaries to MQTT and Home Assistant",
	Long:  `Reads saved days from the local log and publishes each day's summary to the configured MQTT broker and Home Assistant backfill endpoint.`,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishSince, "since", "", "Only publish days since this date (YYYY-MM-DD or relative like 7d)")
	publishCmd.Flags().StringVar(&publishUntil, "until", "", "Only publish days until this date (YYYY-MM-DD)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of days to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	var sinceDate, untilDate *time.Time
	if publishSince != "" {
		since, err := parseDate(publishSince)
		if err != nil {
			return fmt.Errorf("parsing --since date: %w", err)
		}
		sinceDate = &since
	}
	if publishUntil != "" {
		until, err := parseDate(publishUntil)
		if err != nil {
			return fmt.Errorf("parsing --until date: %w", err)
		}
		untilDate = &until
	}

	return withEnv(cmd, envOptions{}, func(ctx context.Context, env *appEnv) error {
		cfg := env.cfg
		if !cfg.MQTT.Enabled && !cfg.HomeAssistant.Enabled {
			return publisher.ErrNoTargets
		}

		pub, err := publisher.New(cfg.MQTT, cfg.GetTopicPrefix(), cfg.HomeAssistant, env.logger)
		if err != nil {
			return fmt.Errorf("creating publisher: %w", err)
		}
		defer pub.Close()

		dates, err := env.local.Dates(ctx)
		if err != nil {
			return fmt.Errorf("listing days: %w", err)
		}
		dates = filterDates(dates, sinceDate, untilDate)

		if len(dates) == 0 {
			fmt.Println("No days in date range")
			return nil
		}

		if publishLimit > 0 && len(dates) > publishLimit {
			dates = dates[:publishLimit]
			fmt.Printf("Limiting to %d days (--limit flag)\n", publishLimit)
		}

		fmt.Printf("Publishing %d days...\n", len(dates))
		published := 0
		for i, dateKey := range dates {
			summary := calc.Summarize(env.local.LoadDay(ctx, dateKey))
			fmt.Printf("[%d/%d] Publishing %s (%.2f MWh net flow)... ", i+1, len(dates), dateKey, summary.ExportVal)
			if err := pub.Publish(summary); err != nil {
				fmt.Printf("FAILED: %v\n", err)
				continue
			}
			fmt.Printf("✓\n")
			published++
		}

		fmt.Printf("\nTotal days published: %d/%d\n", published, len(dates))
		return nil
	})
}

// filterDates keeps the sorted date keys within [since, until]
func filterDates(dates []string, since, until *time.Time) []string {
	if since == nil && until == nil {
		return dates
	}
	var out []string
	for _, d := range dates {
		t, err := models.ParseDateKey(d)
		if err != nil {
			continue
		}
		if since != nil && t.Before(*since) {
			continue
		}
		if until != nil && t.After(*until) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// parseDate parses a date string in either YYYY-MM-DD format or relative format (e.g., "7d")
func parseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, dateStr)
	if err == nil {
		return t, nil
	}

	// Relative format, e.g. "7d" for 7 days ago at midnight UTC
	if len(dateStr) > 1 && dateStr[len(dateStr)-1] == 'd' {
		daysStr := dateStr[:len(dateStr)-1]
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err == nil {
			now := time.Now().UTC()
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			return midnight.AddDate(0, 0, -days), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD or Nd for N days ago)", dateStr)
}
