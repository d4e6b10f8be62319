package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/pixelquest/internal/database"
	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/resolution"
	"github.com/dukerupert/pixelquest/internal/session"
)

var errNotLoggedIn = errors.New("not logged in: run `pixelquest login <username>` first")

// app is the state one command invocation works with.
type app struct {
	opts        *RootOptions
	db          *sql.DB
	logger      *slog.Logger
	sessions    *session.Manager
	resolutions *resolution.Manager
	out         *OutputFormatter
}

func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	db, err := database.Open(opts.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger := slog.Default()
	return &app{
		opts:        opts,
		db:          db,
		logger:      logger,
		sessions:    session.NewManager(db, nil, logger.With("component", "session")),
		resolutions: resolution.NewManager(db, nil, nil, logger.With("component", "resolution")),
		out:         &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// currentUser returns the logged-in user or errNotLoggedIn.
func (a *app) currentUser(ctx context.Context) (*model.User, error) {
	u, err := a.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errNotLoggedIn
	}
	return u, nil
}

// withApp runs fn with an open app and closes it afterwards.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}
