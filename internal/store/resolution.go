package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/google/uuid"
)

type ResolutionStore struct {
	db DBTX
}

func NewResolutionStore(db DBTX) *ResolutionStore {
	return &ResolutionStore{db: db}
}

func scanResolution(scanner interface{ Scan(...any) error }) (*model.Resolution, error) {
	var r model.Resolution
	var category string
	var lastCompleted sql.NullString

	err := scanner.Scan(
		&r.ID, &r.UserID, &r.Title, &category, &r.Streak,
		&lastCompleted, &r.TotalCompletions, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Category = model.Category(category)
	if lastCompleted.Valid {
		r.LastCompletedDate = model.Date(lastCompleted.String).Ptr()
	}
	return &r, nil
}

const resolutionCols = `id, user_id, title, category, streak, last_completed_date, total_completions, created_at`

func nullDate(d *model.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*d), Valid: true}
}

// Create inserts a fresh resolution with no progress.
func (s *ResolutionStore) Create(ctx context.Context, userID, title string, category model.Category) (*model.Resolution, error) {
	r := model.Resolution{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.insert(ctx, r); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, r.ID)
}

func (s *ResolutionStore) insert(ctx context.Context, r model.Resolution) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resolutions (`+resolutionCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Title, string(r.Category), r.Streak,
		nullDate(r.LastCompletedDate), r.TotalCompletions, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}

func (s *ResolutionStore) GetByID(ctx context.Context, id string) (*model.Resolution, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resolutionCols+` FROM resolutions WHERE id = ?`, id)
	r, err := scanResolution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get resolution: %w", err)
	}
	return r, nil
}

// ListByUser returns a user's resolutions in insertion order.
func (s *ResolutionStore) ListByUser(ctx context.Context, userID string) ([]model.Resolution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resolutionCols+` FROM resolutions WHERE user_id = ? ORDER BY rowid ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list resolutions by user: %w", err)
	}
	defer rows.Close()
	return collectResolutions(rows)
}

func collectResolutions(rows *sql.Rows) ([]model.Resolution, error) {
	var resolutions []model.Resolution
	for rows.Next() {
		r, err := scanResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		resolutions = append(resolutions, *r)
	}
	return resolutions, rows.Err()
}

// UpdateDetails overwrites title and category only.
func (s *ResolutionStore) UpdateDetails(ctx context.Context, id, title string, category model.Category) (*model.Resolution, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE resolutions SET title = ?, category = ? WHERE id = ?`,
		title, string(category), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update resolution: %w", err)
	}
	return s.GetByID(ctx, id)
}

// UpdateProgress overwrites the streak bookkeeping fields only.
func (s *ResolutionStore) UpdateProgress(ctx context.Context, r model.Resolution) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE resolutions SET streak = ?, last_completed_date = ?, total_completions = ? WHERE id = ?`,
		r.Streak, nullDate(r.LastCompletedDate), r.TotalCompletions, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update resolution progress: %w", err)
	}
	return nil
}

func (s *ResolutionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM resolutions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete resolution: %w", err)
	}
	return nil
}

func (s *ResolutionStore) LoadAll(ctx context.Context) ([]model.Resolution, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+resolutionCols+` FROM resolutions ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("load resolutions: %w", err)
	}
	defer rows.Close()
	return collectResolutions(rows)
}

// SaveAll replaces the whole resolutions collection. Logs of resolutions
// that disappear are removed by the cascade.
func (s *ResolutionStore) SaveAll(ctx context.Context, resolutions []model.Resolution) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resolutions`); err != nil {
		return fmt.Errorf("clear resolutions: %w", err)
	}
	for _, r := range resolutions {
		if err := s.insert(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
