package progression

import "github.com/dukerupert/pixelquest/internal/model"

const (
	onFireStreak   = 3
	streakSegments = 8
)

// CardStatus summarises a resolution for display on a given day.
type CardStatus struct {
	CompletedToday bool `json:"completed_today"`
	OnFire         bool `json:"on_fire"`
	// FilledSegments is how many of the eight streak bar segments are lit.
	FilledSegments int `json:"filled_segments"`
}

// ComputeStatus derives the card status of r as seen on today.
func ComputeStatus(r model.Resolution, today model.Date) CardStatus {
	return CardStatus{
		CompletedToday: r.LastCompletedDate != nil && *r.LastCompletedDate == today,
		OnFire:         r.Streak >= onFireStreak,
		FilledSegments: r.Streak % streakSegments,
	}
}
