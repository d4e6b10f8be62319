package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/pixelquest/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every store can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Stores bundles the record stores bound to one connection or transaction.
type Stores struct {
	Users       *UserStore
	Resolutions *ResolutionStore
	Logs        *LogStore
	Session     *SessionStore
}

func New(db DBTX) Stores {
	return Stores{
		Users:       NewUserStore(db),
		Resolutions: NewResolutionStore(db),
		Logs:        NewLogStore(db),
		Session:     NewSessionStore(db),
	}
}

// WithTx runs fn against stores bound to a new transaction. The transaction
// commits only if fn returns nil.
func WithTx(ctx context.Context, db *sql.DB, fn func(Stores) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(New(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Collections is the full logical content of the record store.
type Collections struct {
	Users       []model.User       `json:"users"`
	Resolutions []model.Resolution `json:"resolutions"`
	Logs        []model.DailyLog   `json:"logs"`
	Session     *model.Session     `json:"session,omitempty"`
}

// LoadCollections reads every collection in full.
func LoadCollections(ctx context.Context, s Stores) (*Collections, error) {
	users, err := s.Users.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	resolutions, err := s.Resolutions.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := s.Logs.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.Session.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &Collections{Users: users, Resolutions: resolutions, Logs: logs, Session: sess}, nil
}

// ReplaceCollections overwrites every collection with c in one transaction.
// Foreign keys are checked at commit, so the collections may be written in
// dependency order without intermediate violations.
func ReplaceCollections(ctx context.Context, db *sql.DB, c *Collections) error {
	return WithTx(ctx, db, func(s Stores) error {
		if _, err := s.Users.db.ExecContext(ctx, `PRAGMA defer_foreign_keys = ON`); err != nil {
			return fmt.Errorf("defer foreign keys: %w", err)
		}
		if err := s.Session.Clear(ctx); err != nil {
			return err
		}
		if err := s.Users.SaveAll(ctx, c.Users); err != nil {
			return err
		}
		if err := s.Resolutions.SaveAll(ctx, c.Resolutions); err != nil {
			return err
		}
		if err := s.Logs.SaveAll(ctx, c.Logs); err != nil {
			return err
		}
		if c.Session != nil {
			if err := s.Session.Set(ctx, c.Session.UserID); err != nil {
				return err
			}
		}
		return nil
	})
}
