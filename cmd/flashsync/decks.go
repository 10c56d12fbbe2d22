package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewDecksCmd lists known decks and their per-deck study stats.
func NewDecksCmd(getApp func() (*App, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decks",
		Short: "List decks and their study statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			decks, err := app.Client.Decks(ctx)
			if err != nil {
				return fmt.Errorf("failed to list decks: %w", err)
			}
			if len(decks) == 0 {
				fmt.Println("No decks yet. Run `flashsync sync` to upload some.")
				return nil
			}

			for _, d := range decks {
				stats, err := app.Client.DeckStats(ctx, d.Path)
				if err != nil {
					return fmt.Errorf("failed to load stats for deck %s: %w", d.Path, err)
				}
				fmt.Printf("%-30s %3d cards  new:%-3d learning:%-3d review:%-3d relearning:%-3d  retention:%.0f%%\n",
					d.Path, stats.TotalCards, stats.NewCount, stats.LearningCount,
					stats.ReviewCount, stats.RelearningCount, stats.RetentionEstimate*100)
			}
			return nil
		},
	}
	return cmd
}
