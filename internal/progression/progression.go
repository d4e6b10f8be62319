// Package progression holds the streak and XP bookkeeping rules. Every
// function here is pure: callers load state, apply a transition, and persist
// the result.
package progression

import "github.com/dukerupert/pixelquest/internal/model"

const (
	// XPPerCompletion is awarded once per completion, never on undo.
	XPPerCompletion = 10
	// XPPerLevel is the XP threshold that wraps into one level.
	XPPerLevel = 100
)

// Kind tells which side of the toggle a transition took.
type Kind string

const (
	KindCompleted   Kind = "completed"
	KindUncompleted Kind = "uncompleted"
)

// Transition is the outcome of toggling one resolution on one date.
type Transition struct {
	Kind       Kind
	Resolution model.Resolution
	// XPAwarded is XPPerCompletion for a completion and 0 for an undo.
	XPAwarded int
}

// Toggle flips completion state for r on date. logExists reports whether a
// DailyLog is already recorded for (r.ID, date).
func Toggle(r model.Resolution, date model.Date, logExists bool) Transition {
	if logExists {
		return Transition{Kind: KindUncompleted, Resolution: Uncomplete(r)}
	}
	return Transition{Kind: KindCompleted, Resolution: Complete(r, date), XPAwarded: XPPerCompletion}
}

// Complete records a completion on date. The streak continues only when the
// previous completion was the day before date; any other history restarts it
// at 1.
func Complete(r model.Resolution, date model.Date) model.Resolution {
	r.TotalCompletions++
	yesterday := date.AddDays(-1)
	if r.LastCompletedDate != nil && *r.LastCompletedDate == yesterday {
		r.Streak++
	} else {
		r.Streak = 1
	}
	r.LastCompletedDate = date.Ptr()
	return r
}

// Uncomplete reverses one completion. Counters clamp at zero and the last
// completion date is forgotten.
func Uncomplete(r model.Resolution) model.Resolution {
	r.TotalCompletions = max(0, r.TotalCompletions-1)
	r.Streak = max(0, r.Streak-1)
	r.LastCompletedDate = nil
	return r
}

// AwardXP adds amount to the user's XP and rolls every full XPPerLevel into a
// level. It returns the updated user and the number of levels gained.
func AwardXP(u model.User, amount int) (model.User, int) {
	if amount <= 0 {
		return u, 0
	}
	u.XP += amount
	gained := 0
	for u.XP >= XPPerLevel {
		u.Level++
		u.XP -= XPPerLevel
		gained++
	}
	return u, gained
}

// XPToNextLevel returns how much XP the user still needs to level up.
func XPToNextLevel(u model.User) int {
	return XPPerLevel - u.XP
}
