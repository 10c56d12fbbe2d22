package serverstore

import "time"

// OrphanedCard is a card known to the server for a device but not
// referenced in the device's most recent upload, spec.md §4.6.
type OrphanedCard struct {
	ID              int64
	QuestionPreview string
}

// Device is one registered client, spec.md §6 device/register.
type Device struct {
	DeviceID     string
	Token        string
	Name         string
	RegisteredAt time.Time
	LastSeenAt   *time.Time
}

// DeckStats aggregates a deck's cards by scheduling status, supplementing
// the distilled spec with the stats endpoint named in SPEC_FULL.md §14.
type DeckStats struct {
	DeckPath          string
	TotalCards        int
	NewCount          int
	LearningCount     int
	ReviewCount       int
	RelearningCount   int
	RetentionEstimate float64
}
