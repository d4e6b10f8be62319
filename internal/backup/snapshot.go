package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/pixelquest/internal/store"
)

const snapshotVersion = 1

// Snapshot is the serialized content of every collection.
type Snapshot struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	store.Collections
}

// Export reads every collection from db within one transaction, so writes
// committed while it runs are either fully in the snapshot or absent.
func Export(ctx context.Context, db *sql.DB) (*Snapshot, error) {
	var c *store.Collections
	err := store.WithTx(ctx, db, func(s store.Stores) error {
		var err error
		c, err = store.LoadCollections(ctx, s)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	return &Snapshot{Version: snapshotVersion, CreatedAt: time.Now().UTC(), Collections: *c}, nil
}

// Import replaces every collection in db with the snapshot's content.
func Import(ctx context.Context, db *sql.DB, s *Snapshot) error {
	if s.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	if err := store.ReplaceCollections(ctx, db, &s.Collections); err != nil {
		return fmt.Errorf("replace collections: %w", err)
	}
	return nil
}

func encodeSnapshot(s *Snapshot, passphrase string) ([]byte, error) {
	plain, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return Encrypt(plain, passphrase)
}

func decodeSnapshot(data []byte, passphrase string) (*Snapshot, error) {
	plain, err := Decrypt(data, passphrase)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(plain, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}
