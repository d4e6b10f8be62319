package model

import "time"

// BackupStatus tracks a snapshot from creation to completion.
type BackupStatus string

const (
	BackupStatusPending   BackupStatus = "pending"
	BackupStatusUploading BackupStatus = "uploading"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// Backup records one encrypted snapshot. Location is the local file; Remote
// is set once the same bytes are stored in the bucket under Filename.
type Backup struct {
	ID           int64        `json:"id"`
	Filename     string       `json:"filename"`
	Location     string       `json:"location"`
	Remote       bool         `json:"remote"`
	SizeBytes    int64        `json:"size_bytes"`
	Status       BackupStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
