package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/google/uuid"
)

type LogStore struct {
	db DBTX
}

func NewLogStore(db DBTX) *LogStore {
	return &LogStore{db: db}
}

func scanLog(scanner interface{ Scan(...any) error }) (*model.DailyLog, error) {
	var l model.DailyLog
	var date string
	if err := scanner.Scan(&l.ID, &l.ResolutionID, &l.UserID, &date); err != nil {
		return nil, err
	}
	l.Date = model.Date(date)
	return &l, nil
}

const logCols = `id, resolution_id, user_id, date`

func (s *LogStore) Create(ctx context.Context, resolutionID, userID string, date model.Date) (*model.DailyLog, error) {
	l := model.DailyLog{
		ID:           uuid.NewString(),
		ResolutionID: resolutionID,
		UserID:       userID,
		Date:         date,
	}
	if err := s.insert(ctx, l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *LogStore) insert(ctx context.Context, l model.DailyLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_logs (`+logCols+`) VALUES (?, ?, ?, ?)`,
		l.ID, l.ResolutionID, l.UserID, string(l.Date),
	)
	if err != nil {
		return fmt.Errorf("insert daily log: %w", err)
	}
	return nil
}

// Find returns the log for the (resolution, date) natural key, or nil.
func (s *LogStore) Find(ctx context.Context, resolutionID string, date model.Date) (*model.DailyLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+logCols+` FROM daily_logs WHERE resolution_id = ? AND date = ?`,
		resolutionID, string(date),
	)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find daily log: %w", err)
	}
	return l, nil
}

func (s *LogStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM daily_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete daily log: %w", err)
	}
	return nil
}

// DeleteByResolution removes every log of a resolution.
func (s *LogStore) DeleteByResolution(ctx context.Context, resolutionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM daily_logs WHERE resolution_id = ?`, resolutionID)
	if err != nil {
		return fmt.Errorf("delete daily logs by resolution: %w", err)
	}
	return nil
}

func (s *LogStore) ListByResolution(ctx context.Context, resolutionID string) ([]model.DailyLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logCols+` FROM daily_logs WHERE resolution_id = ? ORDER BY date ASC`,
		resolutionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list daily logs: %w", err)
	}
	defer rows.Close()
	return collectLogs(rows)
}

func collectLogs(rows *sql.Rows) ([]model.DailyLog, error) {
	var logs []model.DailyLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

func (s *LogStore) LoadAll(ctx context.Context) ([]model.DailyLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+logCols+` FROM daily_logs ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("load daily logs: %w", err)
	}
	defer rows.Close()
	return collectLogs(rows)
}

// SaveAll replaces the whole daily logs collection.
func (s *LogStore) SaveAll(ctx context.Context, logs []model.DailyLog) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM daily_logs`); err != nil {
		return fmt.Errorf("clear daily logs: %w", err)
	}
	for _, l := range logs {
		if err := s.insert(ctx, l); err != nil {
			return err
		}
	}
	return nil
}
