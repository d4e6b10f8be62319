// Package backup writes encrypted snapshots of the record store to a local
// directory and, when configured, to S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/store"
)

var (
	ErrPassphraseRequired = errors.New("backup passphrase is required")
	ErrBackupNotFound     = errors.New("backup not found")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration. Scheduled backups run every
// Interval when both Interval and Passphrase are set.
type Config struct {
	Dir        string
	S3         S3Config
	Interval   time.Duration
	Passphrase string
}

// State represents the backup manager state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateError   State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
	Remote     bool       `json:"remote"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

type Manager struct {
	mu       sync.RWMutex
	run      sync.Mutex
	cfg      Config
	status   Status
	callback StatusCallback
	logger   *slog.Logger

	db          *sql.DB
	backupStore *store.BackupStore
	client      s3Client

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. callback may be nil.
func NewManager(cfg Config, db *sql.DB, callback StatusCallback, logger *slog.Logger) *Manager {
	if cfg.Dir == "" {
		cfg.Dir = "backups"
	}
	m := &Manager{
		cfg:         cfg,
		db:          db,
		backupStore: store.NewBackupStore(db),
		callback:    callback,
		logger:      logger,
		status:      Status{State: StateIdle},
	}
	if cfg.S3.enabled() {
		m.client = newS3Client(cfg.S3)
		m.status.Remote = true
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled backup loop. It does nothing unless both an
// interval and a passphrase are configured.
func (m *Manager) Start(ctx context.Context) {
	if m.cfg.Interval <= 0 || m.cfg.Passphrase == "" {
		return
	}
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx, m.cfg.Passphrase); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the backup manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	s.Remote = m.client != nil
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// List returns recent backup records, newest first.
func (m *Manager) List(ctx context.Context, limit int) ([]model.Backup, error) {
	return m.backupStore.List(ctx, limit)
}

// RunNow snapshots every collection, encrypts it with passphrase, writes it
// to the backup directory and uploads it when S3 is configured.
func (m *Manager) RunNow(ctx context.Context, passphrase string) (*model.Backup, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	m.run.Lock()
	defer m.run.Unlock()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("pixelquest-%s-%s.json.enc", timestamp, uuid.NewString()[:8])
	path := filepath.Join(m.cfg.Dir, filename)

	record, err := m.backupStore.Create(ctx, filename, path)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	size, remote, err := m.write(ctx, record, path, passphrase)
	if err != nil {
		if uerr := m.backupStore.UpdateStatus(ctx, record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("mark backup failed", "backup_id", record.ID, "error", uerr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}

	if err := m.backupStore.UpdateCompleted(ctx, record.ID, size, remote); err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("complete backup record: %w", err)
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup complete", "backup_id", record.ID, "path", path, "size", size)

	return m.backupStore.GetByID(ctx, record.ID)
}

func (m *Manager) write(ctx context.Context, record *model.Backup, path, passphrase string) (int64, bool, error) {
	snap, err := Export(ctx, m.db)
	if err != nil {
		return 0, false, err
	}
	data, err := encodeSnapshot(snap, passphrase)
	if err != nil {
		return 0, false, err
	}

	if err := os.MkdirAll(m.cfg.Dir, 0700); err != nil {
		return 0, false, fmt.Errorf("create backup dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return 0, false, fmt.Errorf("write backup: %w", err)
	}

	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return int64(len(data)), false, nil
	}
	if err := m.backupStore.UpdateStatus(ctx, record.ID, model.BackupStatusUploading, ""); err != nil {
		return 0, false, err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(record.Filename),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return 0, false, fmt.Errorf("upload to s3: %w", err)
	}
	return int64(len(data)), true, nil
}

// Restore loads backup backupID, from the local copy when present and from
// S3 otherwise, and replaces every collection with its content.
func (m *Manager) Restore(ctx context.Context, backupID int64, passphrase string) error {
	record, err := m.backupStore.GetByID(ctx, backupID)
	if err != nil {
		return fmt.Errorf("get backup: %w", err)
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return ErrBackupNotFound
	}

	data, err := os.ReadFile(record.Location)
	if errors.Is(err, os.ErrNotExist) {
		data, err = m.download(ctx, record.Filename)
	}
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	return m.restore(ctx, data, passphrase)
}

// RestoreFile replaces every collection with the content of an encrypted
// backup file.
func (m *Manager) RestoreFile(ctx context.Context, path, passphrase string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	return m.restore(ctx, data, passphrase)
}

func (m *Manager) restore(ctx context.Context, data []byte, passphrase string) error {
	if passphrase == "" {
		return ErrPassphraseRequired
	}
	snap, err := decodeSnapshot(data, passphrase)
	if err != nil {
		return err
	}

	m.run.Lock()
	defer m.run.Unlock()

	if err := Import(ctx, m.db, snap); err != nil {
		return err
	}
	m.logger.Info("restore complete",
		"users", len(snap.Users),
		"resolutions", len(snap.Resolutions),
		"logs", len(snap.Logs),
	)
	return nil
}

func (m *Manager) download(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil, ErrBackupNotFound
	}
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}
