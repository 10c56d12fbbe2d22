package deckfile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// OverrideFileName is the per-deck settings override file LoadOverrides
// recognizes in every directory below the root it walks.
const OverrideFileName = "deck.yaml"

// overrideDoc mirrors domain.DeckSettings' optional fields in YAML form;
// an absent key leaves the corresponding pointer nil, so a deck.yaml only
// needs to name the fields it overrides.
type overrideDoc struct {
	Algorithm        *string  `yaml:"algorithm"`
	RatingScale      *int     `yaml:"rating_scale"`
	MatchMode        *string  `yaml:"match_mode"`
	FuzzyThreshold   *float64 `yaml:"fuzzy_threshold"`
	DailyNewLimit    *int     `yaml:"daily_new_limit"`
	DailyReviewLimit *int     `yaml:"daily_review_limit"`
}

// LoadOverrides walks root for deck.yaml files and returns each one's
// parsed settings keyed by the deck path a markdown file in the same
// directory would resolve to via DeckPathForFile.
func LoadOverrides(root string) (map[string]domain.DeckSettings, error) {
	overrides := make(map[string]domain.DeckSettings)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != OverrideFileName {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("deckfile: read %s: %w", path, err)
		}
		var doc overrideDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("deckfile: parse %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return fmt.Errorf("deckfile: relative dir for %s: %w", path, err)
		}
		if rel == "." {
			// Loose markdown files directly under root each get their own
			// stem-derived deck path (DeckPathForFile), so there is no
			// single deck a root-level deck.yaml could apply to.
			return nil
		}
		deckPath := DeckPathForFile(filepath.Join(rel, "placeholder.md"))

		settings := domain.DeckSettings{
			DeckPath: deckPath, Algorithm: doc.Algorithm, FuzzyThreshold: doc.FuzzyThreshold,
			DailyNewLimit: doc.DailyNewLimit, DailyReviewLimit: doc.DailyReviewLimit,
		}
		if doc.RatingScale != nil {
			v := domain.RatingScale(*doc.RatingScale)
			settings.RatingScale = &v
		}
		if doc.MatchMode != nil {
			mode, err := domain.ParseMatchMode(*doc.MatchMode)
			if err != nil {
				return fmt.Errorf("deckfile: %s: %w", path, err)
			}
			settings.MatchMode = &mode
		}

		overrides[deckPath] = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return overrides, nil
}
