// Package session tracks which user is currently logged in. The session
// holds a reference to the user row, so level and XP read through it are
// always current.
package session

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/store"
)

var ErrInvalidUsername = errors.New("username is required")

// Notifier receives session change notifications.
type Notifier interface {
	Notify(entity, action, id string, extra map[string]any)
}

type Manager struct {
	db       *sql.DB
	notifier Notifier
	logger   *slog.Logger
}

// NewManager returns a Manager. notifier may be nil.
func NewManager(db *sql.DB, notifier Notifier, logger *slog.Logger) *Manager {
	return &Manager{db: db, notifier: notifier, logger: logger}
}

// Login finds the user by exact username, creating one at level 1 with no
// XP if none exists, and makes it the current session. Usernames are
// trimmed but otherwise case-sensitive.
func (m *Manager) Login(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}

	var (
		user    *model.User
		created bool
	)
	err := store.WithTx(ctx, m.db, func(s store.Stores) error {
		var err error
		user, err = s.Users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if user == nil {
			user, err = s.Users.Create(ctx, username)
			if err != nil {
				return err
			}
			created = true
		}
		return s.Session.Set(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("logged in", "user_id", user.ID, "username", user.Username, "new_user", created)
	m.notify("login", user.ID)
	return user, nil
}

// Current returns the logged-in user, or nil when nobody is logged in.
func (m *Manager) Current(ctx context.Context) (*model.User, error) {
	s := store.New(m.db)
	sess, err := s.Session.Get(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	return s.Users.GetByID(ctx, sess.UserID)
}

// Logout clears the current session. The user and their data stay.
func (m *Manager) Logout(ctx context.Context) error {
	if err := store.NewSessionStore(m.db).Clear(ctx); err != nil {
		return err
	}
	m.logger.Info("logged out")
	m.notify("logout", "")
	return nil
}

func (m *Manager) notify(action, id string) {
	if m.notifier != nil {
		m.notifier.Notify("session", "changed", id, map[string]any{"action": action})
	}
}
