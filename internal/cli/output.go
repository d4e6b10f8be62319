package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/progression"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope for command output.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Success writes data as a JSON envelope, or calls text to render it.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

func printUser(w io.Writer, u model.User) {
	fmt.Fprintf(w, "%s  Level %d  %s %d/%d XP\n",
		u.Username, u.Level, xpBar(u.XP), u.XP, progression.XPPerLevel)
}

func xpBar(xp int) string {
	const width = 10
	filled := xp * width / progression.XPPerLevel
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func printResolution(w io.Writer, r model.Resolution, today model.Date) {
	st := progression.ComputeStatus(r, today)
	check := " "
	if st.CompletedToday {
		check = "x"
	}
	fire := ""
	if st.OnFire {
		fire = " (on fire)"
	}
	fmt.Fprintf(w, "[%s] %s  %-10s %s\n", check, r.ID, r.Category, r.Title)
	fmt.Fprintf(w, "    streak %d%s  %s  total %d\n",
		r.Streak, fire, streakBar(st.FilledSegments), r.TotalCompletions)
}

func streakBar(filled int) string {
	return strings.Repeat("=", filled) + strings.Repeat(".", 8-filled)
}
