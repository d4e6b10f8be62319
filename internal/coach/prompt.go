package coach

import (
	"fmt"
	"strings"

	"github.com/dukerupert/pixelquest/internal/model"
)

const (
	emptyReplyAdvice = "Keep pushing, Hero! Your quest has just begun."
	restingAdvice    = "The Pixel Master is resting. Keep grinding and check back later!"

	portraitPrompt = "A pixel art headshot of a wise, mystical retro-game wizard coach, " +
		"simple 8-bit aesthetic, vibrant colors, solid black background, centered portrait."
)

// BuildPrompt renders the advice request for u and their resolutions.
func BuildPrompt(u model.User, rs []model.Resolution) string {
	stats := make([]string, 0, len(rs))
	for _, r := range rs {
		stats = append(stats, fmt.Sprintf("%s (%s): Streak of %d days, %d total completions.",
			r.Title, r.Category, r.Streak, r.TotalCompletions))
	}
	summary := strings.Join(stats, "\n")
	if summary == "" {
		summary = "None yet."
	}

	var b strings.Builder
	b.WriteString(`You are the "2026 Pixel Master", a wise retro-gaming inspired life coach.` + "\n")
	b.WriteString("The year is 2026.\n")
	fmt.Fprintf(&b, "User: %s (Level %d)\n", u.Username, u.Level)
	b.WriteString("Resolutions:\n")
	b.WriteString(summary)
	b.WriteString("\n\n")
	b.WriteString(`Provide a short, encouraging, and witty "Pixel Master" advice (max 80 words).` + "\n")
	b.WriteString(`Use gaming metaphors like "level up", "boss fight", "HP", "Save Point", etc.` + "\n")
	b.WriteString("Be specific about their progress if they have any resolutions.\n")
	b.WriteString("Keep the tone light and fun. Format as a dialogue from a classic RPG.")
	return b.String()
}
