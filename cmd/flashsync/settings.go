package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// NewSettingsCmd groups the global/per-deck settings subcommands.
func NewSettingsCmd(getApp func() (*App, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View and change scheduling settings",
	}

	cmd.AddCommand(newSettingsShowCmd(getApp))
	cmd.AddCommand(newSettingsSetGlobalCmd(getApp))
	cmd.AddCommand(newSettingsSetDeckCmd(getApp))
	cmd.AddCommand(newSettingsDeleteDeckCmd(getApp))
	return cmd
}

func newSettingsShowCmd(getApp func() (*App, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show global and per-deck settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Client.GetSettings(context.Background())
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			g := result.Global
			fmt.Printf("global: algorithm=%s new_limit=%d review_limit=%d reset_hour=%d fuzzy_threshold=%.2f\n",
				g.Algorithm, g.DailyNewLimit, g.DailyReviewLimit, g.DailyResetHour, g.FuzzyThreshold)

			for _, d := range result.Decks {
				fmt.Printf("deck %s:%s\n", d.DeckPath, describeOverrides(d))
			}
			return nil
		},
	}
}

func describeOverrides(d domain.DeckSettings) string {
	out := ""
	if d.Algorithm != nil {
		out += fmt.Sprintf(" algorithm=%s", *d.Algorithm)
	}
	if d.DailyNewLimit != nil {
		out += fmt.Sprintf(" new_limit=%d", *d.DailyNewLimit)
	}
	if d.DailyReviewLimit != nil {
		out += fmt.Sprintf(" review_limit=%d", *d.DailyReviewLimit)
	}
	if d.FuzzyThreshold != nil {
		out += fmt.Sprintf(" fuzzy_threshold=%.2f", *d.FuzzyThreshold)
	}
	if out == "" {
		return " (no overrides)"
	}
	return out
}

func newSettingsSetGlobalCmd(getApp func() (*App, error)) *cobra.Command {
	var algorithm string
	var newLimit, reviewLimit, resetHour int
	var fuzzyThreshold float64

	cmd := &cobra.Command{
		Use:   "set-global",
		Short: "Overwrite the global settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			defer app.Close()

			current, err := app.Client.GetSettings(context.Background())
			if err != nil {
				return fmt.Errorf("failed to load current settings: %w", err)
			}
			g := current.Global

			if cmd.Flags().Changed("algorithm") {
				g.Algorithm = algorithm
			}
			if cmd.Flags().Changed("new-limit") {
				g.DailyNewLimit = newLimit
			}
			if cmd.Flags().Changed("review-limit") {
				g.DailyReviewLimit = reviewLimit
			}
			if cmd.Flags().Changed("reset-hour") {
				g.DailyResetHour = resetHour
			}
			if cmd.Flags().Changed("fuzzy-threshold") {
				g.FuzzyThreshold = fuzzyThreshold
			}

			if _, err := app.Client.PutGlobalSettings(context.Background(), g); err != nil {
				return fmt.Errorf("failed to save global settings: %w", err)
			}
			fmt.Println("Global settings updated.")
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "", "scheduling algorithm (sm2, fsrs)")
	cmd.Flags().IntVar(&newLimit, "new-limit", 0, "daily new card limit")
	cmd.Flags().IntVar(&reviewLimit, "review-limit", 0, "daily review limit")
	cmd.Flags().IntVar(&resetHour, "reset-hour", 0, "hour of day (0-23) the daily queue resets")
	cmd.Flags().Float64Var(&fuzzyThreshold, "fuzzy-threshold", 0, "fuzzy match similarity threshold (0-1)")
	return cmd
}

func newSettingsSetDeckCmd(getApp func() (*App, error)) *cobra.Command {
	var algorithm string
	var newLimit, reviewLimit int

	cmd := &cobra.Command{
		Use:   "set-deck [deck-path]",
		Short: "Override settings for one deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			defer app.Close()

			deckPath := args[0]
			var override domain.DeckSettings
			if cmd.Flags().Changed("algorithm") {
				override.Algorithm = &algorithm
			}
			if cmd.Flags().Changed("new-limit") {
				override.DailyNewLimit = &newLimit
			}
			if cmd.Flags().Changed("review-limit") {
				override.DailyReviewLimit = &reviewLimit
			}

			if _, err := app.Client.PutDeckSettings(context.Background(), deckPath, override); err != nil {
				return fmt.Errorf("failed to save deck settings: %w", err)
			}
			fmt.Printf("Deck %s settings updated.\n", deckPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "", "scheduling algorithm override (sm2, fsrs)")
	cmd.Flags().IntVar(&newLimit, "new-limit", 0, "daily new card limit override")
	cmd.Flags().IntVar(&reviewLimit, "review-limit", 0, "daily review limit override")
	return cmd
}

func newSettingsDeleteDeckCmd(getApp func() (*App, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-deck [deck-path]",
		Short: "Remove a deck's settings override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			defer app.Close()

			deleted, err := app.Client.DeleteDeckSettings(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete deck settings: %w", err)
			}
			if deleted {
				fmt.Printf("Deck %s now uses global settings.\n", args[0])
			} else {
				fmt.Printf("Deck %s had no override.\n", args[0])
			}
			return nil
		},
	}
}
