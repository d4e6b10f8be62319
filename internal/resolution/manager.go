// Package resolution manages resolutions and routes every completion change
// through the progression rules.
package resolution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukerupert/pixelquest/internal/metrics"
	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/progression"
	"github.com/dukerupert/pixelquest/internal/store"
)

var (
	ErrNotFound        = errors.New("resolution not found")
	ErrInvalidTitle    = errors.New("title is required")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDate     = errors.New("invalid date")
	ErrUnknownUser     = errors.New("user not found")
)

// IsValidation reports whether err is a caller input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidTitle) || errors.Is(err, ErrInvalidCategory) || errors.Is(err, ErrInvalidDate)
}

// Notifier receives change notifications after a mutation commits.
type Notifier interface {
	Notify(entity, action, id string, extra map[string]any)
}

// Outcome describes the committed effect of a toggle.
type Outcome struct {
	Kind       progression.Kind `json:"kind"`
	Resolution model.Resolution `json:"resolution"`
	// User is the owner after any XP award.
	User         model.User `json:"user"`
	XPAwarded    int        `json:"xp_awarded"`
	LevelsGained int        `json:"levels_gained"`
}

// Manager serializes all mutations: the store is read, changed in memory,
// and written back inside one transaction per operation.
type Manager struct {
	mu       sync.Mutex
	db       *sql.DB
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewManager returns a Manager. notifier and m may be nil.
func NewManager(db *sql.DB, notifier Notifier, m *metrics.Metrics, logger *slog.Logger) *Manager {
	return &Manager{db: db, notifier: notifier, metrics: m, logger: logger}
}

func (m *Manager) notify(action, id string, extra map[string]any) {
	if m.notifier != nil {
		m.notifier.Notify("resolution", action, id, extra)
	}
}

func cleanInput(title, category string) (string, model.Category, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", ErrInvalidTitle
	}
	c, err := model.ParseCategory(strings.TrimSpace(category))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidCategory, err)
	}
	return title, c, nil
}

// Add creates a resolution for userID with no progress.
func (m *Manager) Add(ctx context.Context, userID, title, category string) (*model.Resolution, error) {
	title, c, err := cleanInput(title, category)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var created *model.Resolution
	err = store.WithTx(ctx, m.db, func(s store.Stores) error {
		owner, err := s.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if owner == nil {
			return ErrUnknownUser
		}
		created, err = s.Resolutions.Create(ctx, userID, title, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("resolution added", "resolution_id", created.ID, "user_id", userID, "category", c)
	m.notify("created", created.ID, nil)
	return created, nil
}

// Update overwrites title and category. Streak, totals and the last
// completion date are never touched.
func (m *Manager) Update(ctx context.Context, id, title, category string) (*model.Resolution, error) {
	title, c, err := cleanInput(title, category)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var updated *model.Resolution
	err = store.WithTx(ctx, m.db, func(s store.Stores) error {
		existing, err := s.Resolutions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		updated, err = s.Resolutions.UpdateDetails(ctx, id, title, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.notify("updated", id, nil)
	return updated, nil
}

// Delete removes a resolution and all of its daily logs. Deleting an
// unknown id is a no-op.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existed := false
	err := store.WithTx(ctx, m.db, func(s store.Stores) error {
		existing, err := s.Resolutions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}
		existed = true
		if err := s.Logs.DeleteByResolution(ctx, id); err != nil {
			return err
		}
		return s.Resolutions.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	if existed {
		m.logger.Info("resolution deleted", "resolution_id", id)
		m.notify("deleted", id, nil)
	}
	return nil
}

// Get returns one resolution or ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*model.Resolution, error) {
	r, err := store.NewResolutionStore(m.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

// History returns the completion log of one resolution, oldest date first.
func (m *Manager) History(ctx context.Context, id string) ([]model.DailyLog, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	logs, err := store.NewLogStore(m.db).ListByResolution(ctx, id)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []model.DailyLog{}
	}
	return logs, nil
}

// ListFor returns the user's resolutions in insertion order.
func (m *Manager) ListFor(ctx context.Context, userID string) ([]model.Resolution, error) {
	list, err := store.NewResolutionStore(m.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Resolution{}
	}
	return list, nil
}

// Toggle flips the completion of resolutionID on date. A completion records
// a daily log, advances the streak and awards XP to the owner; a second
// toggle on the same date removes the log and relaxes the counters but keeps
// the XP. The log, the resolution and the owner commit together or not at
// all. A resolution owned by someone other than userID is reported as
// ErrNotFound.
func (m *Manager) Toggle(ctx context.Context, resolutionID, userID string, date model.Date) (*Outcome, error) {
	if _, err := model.ParseDate(string(date)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out Outcome
	err := store.WithTx(ctx, m.db, func(s store.Stores) error {
		r, err := s.Resolutions.GetByID(ctx, resolutionID)
		if err != nil {
			return err
		}
		if r == nil || r.UserID != userID {
			return ErrNotFound
		}

		existing, err := s.Logs.Find(ctx, resolutionID, date)
		if err != nil {
			return err
		}

		t := progression.Toggle(*r, date, existing != nil)
		if existing != nil {
			err = s.Logs.Delete(ctx, existing.ID)
		} else {
			_, err = s.Logs.Create(ctx, resolutionID, userID, date)
		}
		if err != nil {
			return err
		}
		if err := s.Resolutions.UpdateProgress(ctx, t.Resolution); err != nil {
			return err
		}

		owner, err := s.Users.GetByID(ctx, r.UserID)
		if err != nil {
			return err
		}
		if owner == nil {
			return ErrUnknownUser
		}
		awarded, gained := progression.AwardXP(*owner, t.XPAwarded)
		if t.XPAwarded > 0 {
			if _, err := s.Users.UpdateProgress(ctx, awarded.ID, awarded.Level, awarded.XP); err != nil {
				return err
			}
		}

		out = Outcome{
			Kind:         t.Kind,
			Resolution:   t.Resolution,
			User:         awarded,
			XPAwarded:    t.XPAwarded,
			LevelsGained: gained,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.record(out, date)
	return &out, nil
}

func (m *Manager) record(out Outcome, date model.Date) {
	switch out.Kind {
	case progression.KindCompleted:
		m.metrics.ObserveCompletion()
	case progression.KindUncompleted:
		m.metrics.ObserveUndo()
	}
	m.metrics.ObserveLevelUps(out.LevelsGained)

	m.logger.Info("resolution toggled",
		"resolution_id", out.Resolution.ID,
		"kind", out.Kind,
		"date", date,
		"streak", out.Resolution.Streak,
		"total", out.Resolution.TotalCompletions,
	)
	m.notify(string(out.Kind), out.Resolution.ID, map[string]any{
		"date":              string(date),
		"streak":            out.Resolution.Streak,
		"total_completions": out.Resolution.TotalCompletions,
	})

	if out.LevelsGained > 0 {
		m.logger.Info("user leveled up", "user_id", out.User.ID, "level", out.User.Level)
		if m.notifier != nil {
			m.notifier.Notify("user", "leveled_up", out.User.ID, map[string]any{
				"level": out.User.Level,
				"xp":    out.User.XP,
			})
		}
	}
}
