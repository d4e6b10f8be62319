package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/google/uuid"
)

type UserStore struct {
	db DBTX
}

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Username, &u.Level, &u.XP, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, username, level, xp, created_at`

// Create inserts a new user at level 1 with no XP.
func (s *UserStore) Create(ctx context.Context, username string) (*model.User, error) {
	u := model.User{
		ID:        uuid.NewString(),
		Username:  username,
		Level:     1,
		XP:        0,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.insert(ctx, u); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, u.ID)
}

func (s *UserStore) insert(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userCols+`) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Level, u.XP, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// UpdateProgress stores a new level and XP for the user.
func (s *UserStore) UpdateProgress(ctx context.Context, id string, level, xp int) (*model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET level = ?, xp = ? WHERE id = ?`,
		level, xp, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user progress: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) LoadAll(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SaveAll replaces the whole users collection.
func (s *UserStore) SaveAll(ctx context.Context, users []model.User) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	for _, u := range users {
		if err := s.insert(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
