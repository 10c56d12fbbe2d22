package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/justinlyon12/flashsync/internal/domain"
	"github.com/justinlyon12/flashsync/internal/matching"
	"github.com/justinlyon12/flashsync/internal/queue"
	"github.com/justinlyon12/flashsync/internal/scheduler"
)

// NewStudyCmd studies the due/new cards for a deck (or every deck)
// entirely against the local store — no network round trip per card.
func NewStudyCmd(getApp func() (*App, error)) *cobra.Command {
	var deckPath string

	cmd := &cobra.Command{
		Use:   "study",
		Short: "Start a study session against the local card queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return runStudy(app, deckPath)
		},
	}

	cmd.Flags().StringVar(&deckPath, "deck", "", "study only this deck (default: all decks)")
	return cmd
}

func runStudy(app *App, deckPath string) error {
	global, err := app.LocalStore.GetGlobalSettings()
	if err != nil {
		return fmt.Errorf("failed to load global settings: %w", err)
	}
	var deckSettings *domain.DeckSettings
	if deckPath != "" {
		deckSettings, err = app.LocalStore.GetDeckSettings(deckPath)
		if err != nil {
			return fmt.Errorf("failed to load deck settings: %w", err)
		}
	}
	eff := domain.Effective(global, deckSettings)

	algo, err := scheduler.ByName(eff.Algorithm)
	if err != nil {
		return fmt.Errorf("failed to select scheduler: %w", err)
	}

	cards, err := loadCards(app, deckPath)
	if err != nil {
		return err
	}

	newCards, dueCards, err := partitionCards(app, cards, eff)
	if err != nil {
		return err
	}

	built := queue.Build(newCards, dueCards, eff.DailyNewLimit, eff.DailyReviewLimit)
	session := append(append([]domain.Card{}, built.NewCards...), built.ReviewCards...)

	if len(session) == 0 {
		fmt.Println("Nothing due. Come back later!")
		return nil
	}

	fmt.Printf("Studying %d card(s) (%d new, %d review; %d new and %d review remain beyond today's limit)\n",
		len(session), len(built.NewCards), len(built.ReviewCards), built.NewRemain, built.ReviewRemain)

	scanner := bufio.NewScanner(os.Stdin)
	reviewed := 0

	for _, card := range session {
		fmt.Print("\n" + strings.Repeat("-", 60) + "\n")
		fmt.Printf("Q: %s\n", card.Question)

		var typedAnswer *string
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "q" || answer == "quit" {
			fmt.Println("Ending session early.")
			break
		}
		if answer != "" {
			typedAnswer = &answer
		}

		fmt.Printf("A: %s\n", card.Answer)

		var wasCorrect *bool
		if typedAnswer != nil {
			result := matching.Compare(*typedAnswer, card.Answer, eff.MatchMode, eff.FuzzyThreshold)
			wasCorrect = &result.IsCorrect
			if result.IsCorrect {
				fmt.Println("Correct.")
			} else {
				fmt.Printf("Not quite (similarity %.2f).\n", result.Similarity)
			}
		}

		rating, quit := promptRating(scanner)
		if quit {
			fmt.Println("Ending session early.")
			break
		}

		if err := recordReview(app, algo, card, rating, eff, typedAnswer, wasCorrect); err != nil {
			return err
		}
		reviewed++
	}

	fmt.Printf("\nSession complete. %d card(s) reviewed.\n", reviewed)
	return nil
}

func promptRating(scanner *bufio.Scanner) (domain.Rating, bool) {
	for {
		fmt.Print("Rate yourself (1=Again, 2=Hard, 3=Good, 4=Easy, q=quit): ")
		if !scanner.Scan() {
			return domain.Again, true
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "q" || input == "quit" {
			return domain.Again, true
		}
		rating, err := domain.ParseRating(input)
		if err != nil {
			fmt.Println(err)
			continue
		}
		return rating, false
	}
}

func loadCards(app *App, deckPath string) ([]domain.Card, error) {
	if deckPath != "" {
		return app.LocalStore.GetCardsByDeck(deckPath)
	}
	return app.LocalStore.GetAllCards()
}

func partitionCards(app *App, cards []domain.Card, eff domain.EffectiveSettings) (newCards, dueCards []domain.Card, err error) {
	today := queue.Today(time.Now(), eff.DailyResetHour)
	cutoff := today.Add(24 * time.Hour)

	for _, card := range cards {
		state, err := app.LocalStore.GetCardState(card.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load state for card %d: %w", card.ID, err)
		}
		switch {
		case state.Status == domain.StatusNew:
			newCards = append(newCards, card)
		case state.DueDate != nil && state.DueDate.Before(cutoff):
			dueCards = append(dueCards, card)
		}
	}
	return newCards, dueCards, nil
}

func recordReview(app *App, algo scheduler.Algorithm, card domain.Card, rating domain.Rating, eff domain.EffectiveSettings, typedAnswer *string, wasCorrect *bool) error {
	prevState, err := app.LocalStore.GetCardState(card.ID)
	if err != nil {
		return fmt.Errorf("failed to load state for card %d: %w", card.ID, err)
	}

	now := time.Now()
	nextState, _ := algo.Schedule(prevState, rating, now)
	if err := app.LocalStore.SaveCardState(nextState); err != nil {
		return fmt.Errorf("failed to save card state: %w", err)
	}

	answerMode := domain.SelfGrade
	if typedAnswer != nil {
		answerMode = domain.TypedAnswer
	}

	event := domain.ReviewEvent{
		CardID:         card.ID,
		ReviewedAt:     now,
		Rating:         rating,
		RatingScale:    eff.RatingScale,
		AnswerMode:     answerMode,
		TypedAnswer:    typedAnswer,
		WasCorrect:     wasCorrect,
		IntervalBefore: prevState.IntervalDays,
		IntervalAfter:  nextState.IntervalDays,
		EaseBefore:     prevState.EaseFactor,
		EaseAfter:      nextState.EaseFactor,
		Algorithm:      algo.Name(),
	}
	if device, err := app.LocalStore.GetLocalDevice(); err == nil && device != nil {
		event.DeviceID = device.DeviceID
	}

	if _, err := app.LocalStore.InsertPendingReview(event); err != nil {
		return fmt.Errorf("failed to record review: %w", err)
	}
	return app.LocalStore.IncrementPendingChanges()
}
