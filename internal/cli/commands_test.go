package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/pixelquest/internal/model"
)

type toggleResult struct {
	Kind         string           `json:"kind"`
	Resolution   model.Resolution `json:"resolution"`
	User         model.User       `json:"user"`
	XPAwarded    int              `json:"xp_awarded"`
	LevelsGained int              `json:"levels_gained"`
}

func TestCommandsRequireLogin(t *testing.T) {
	db := cliEnv(t)

	for _, args := range [][]string{
		{"list"},
		{"add", "Read"},
		{"toggle", "00000000-0000-0000-0000-000000000000"},
		{"coach"},
	} {
		t.Run(args[0], func(t *testing.T) {
			err := execute(t, db, nil, args...)
			require.ErrorIs(t, err, errNotLoggedIn)
		})
	}
}

func TestSessionCommands(t *testing.T) {
	db := cliEnv(t)

	var u model.User
	require.NoError(t, execute(t, db, &u, "login", "  hero  "))
	assert.Equal(t, "hero", u.Username)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, 0, u.XP)

	var who struct {
		User *model.User `json:"user"`
	}
	require.NoError(t, execute(t, db, &who, "whoami"))
	require.NotNil(t, who.User)
	assert.Equal(t, u.ID, who.User.ID)

	// Logging in again with the same name reuses the user.
	var again model.User
	require.NoError(t, execute(t, db, &again, "login", "hero"))
	assert.Equal(t, u.ID, again.ID)

	require.NoError(t, execute(t, db, nil, "logout"))
	who.User = nil
	require.NoError(t, execute(t, db, &who, "whoami"))
	assert.Nil(t, who.User)

	err := execute(t, db, nil, "login", "   ")
	require.Error(t, err)
}

func TestResolutionCommands(t *testing.T) {
	db := cliEnv(t)
	require.NoError(t, execute(t, db, nil, "login", "hero"))

	var r model.Resolution
	require.NoError(t, execute(t, db, &r, "add", "Morning Jog", "--category", "Health"))
	assert.Equal(t, "Morning Jog", r.Title)
	assert.Equal(t, model.CategoryHealth, r.Category)
	assert.Equal(t, 0, r.Streak)

	var out toggleResult
	require.NoError(t, execute(t, db, &out, "toggle", r.ID, "--date", "2026-01-01"))
	assert.Equal(t, "completed", out.Kind)
	assert.Equal(t, 1, out.Resolution.Streak)
	assert.Equal(t, 10, out.XPAwarded)
	assert.Equal(t, 10, out.User.XP)

	require.NoError(t, execute(t, db, &out, "toggle", r.ID, "--date", "2026-01-02"))
	assert.Equal(t, 2, out.Resolution.Streak)
	assert.Equal(t, 20, out.User.XP)

	// Undo keeps the XP.
	require.NoError(t, execute(t, db, &out, "toggle", r.ID, "--date", "2026-01-02"))
	assert.Equal(t, "uncompleted", out.Kind)
	assert.Equal(t, 1, out.Resolution.Streak)
	assert.Equal(t, 0, out.XPAwarded)
	assert.Equal(t, 20, out.User.XP)

	var edited model.Resolution
	require.NoError(t, execute(t, db, &edited, "edit", r.ID, "--title", "Evening Jog"))
	assert.Equal(t, "Evening Jog", edited.Title)
	assert.Equal(t, model.CategoryHealth, edited.Category)
	assert.Equal(t, 1, edited.Streak)

	var list []resolutionView
	require.NoError(t, execute(t, db, &list, "list"))
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)

	require.Error(t, execute(t, db, nil, "delete", r.ID), "delete without --yes must refuse")
	require.NoError(t, execute(t, db, nil, "delete", r.ID, "--yes"))

	list = nil
	require.NoError(t, execute(t, db, &list, "list"))
	assert.Empty(t, list)
}

func TestResolutionCommandErrors(t *testing.T) {
	db := cliEnv(t)
	require.NoError(t, execute(t, db, nil, "login", "hero"))

	var r model.Resolution
	require.NoError(t, execute(t, db, &r, "add", "Read"))
	assert.Equal(t, model.CategoryOther, r.Category)

	tests := []struct {
		name string
		args []string
	}{
		{"blank title", []string{"add", "   "}},
		{"bad category", []string{"add", "Run", "--category", "Sports"}},
		{"bad date", []string{"toggle", r.ID, "--date", "01/02/2026"}},
		{"unknown id", []string{"toggle", "missing"}},
		{"edit without changes", []string{"edit", r.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, execute(t, db, nil, tt.args...))
		})
	}
}

func TestResolutionsAreScopedToUser(t *testing.T) {
	db := cliEnv(t)
	require.NoError(t, execute(t, db, nil, "login", "alice"))
	var r model.Resolution
	require.NoError(t, execute(t, db, &r, "add", "Budget"))

	require.NoError(t, execute(t, db, nil, "login", "bob"))
	var list []resolutionView
	require.NoError(t, execute(t, db, &list, "list"))
	assert.Empty(t, list)

	assert.Error(t, execute(t, db, nil, "toggle", r.ID))
	assert.Error(t, execute(t, db, nil, "delete", r.ID, "--yes"))
}

func TestCoachFallsBackWithoutKey(t *testing.T) {
	db := cliEnv(t)
	require.NoError(t, execute(t, db, nil, "login", "hero"))

	var c struct {
		Advice         string  `json:"advice"`
		Avatar         *string `json:"avatar"`
		AdviceDegraded bool    `json:"advice_degraded"`
		AvatarDegraded bool    `json:"avatar_degraded"`
	}
	require.NoError(t, execute(t, db, &c, "coach"))
	assert.NotEmpty(t, c.Advice)
	assert.True(t, c.AdviceDegraded)
	assert.Nil(t, c.Avatar)
	assert.True(t, c.AvatarDegraded)
}

func TestBackupAndRestore(t *testing.T) {
	db := cliEnv(t)
	require.NoError(t, execute(t, db, nil, "login", "hero"))
	var r model.Resolution
	require.NoError(t, execute(t, db, &r, "add", "Read"))

	require.Error(t, execute(t, db, nil, "backup"), "backup without passphrase must fail")

	var b model.Backup
	require.NoError(t, execute(t, db, &b, "backup", "--passphrase", "s3cret"))
	assert.Equal(t, model.BackupStatusCompleted, b.Status)
	_, err := os.Stat(b.Location)
	require.NoError(t, err)

	var out toggleResult
	require.NoError(t, execute(t, db, &out, "toggle", r.ID, "--date", "2026-01-01"))
	assert.Equal(t, 10, out.User.XP)

	require.Error(t, execute(t, db, nil, "restore", b.Location, "--passphrase", "wrong"))

	require.NoError(t, execute(t, db, nil, "restore", b.Location, "--passphrase", "s3cret"))
	var who struct {
		User *model.User `json:"user"`
	}
	require.NoError(t, execute(t, db, &who, "whoami"))
	require.NotNil(t, who.User)
	assert.Equal(t, 0, who.User.XP)

	// Restore by id goes through the backup record.
	require.NoError(t, execute(t, db, &out, "toggle", r.ID, "--date", "2026-01-01"))
	require.NoError(t, execute(t, db, nil, "restore", strconv.FormatInt(b.ID, 10), "--passphrase", "s3cret"))
	var list []resolutionView
	require.NoError(t, execute(t, db, &list, "list"))
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Streak)
}

func TestRestoreIntoFreshDatabase(t *testing.T) {
	db := cliEnv(t)
	require.NoError(t, execute(t, db, nil, "login", "hero"))
	require.NoError(t, execute(t, db, nil, "add", "Read"))
	var b model.Backup
	require.NoError(t, execute(t, db, &b, "backup", "--passphrase", "s3cret"))

	fresh := filepath.Join(t.TempDir(), "fresh.db")
	require.NoError(t, execute(t, fresh, nil, "restore", b.Location, "--passphrase", "s3cret"))

	var list []resolutionView
	require.NoError(t, execute(t, fresh, &list, "list"))
	require.Len(t, list, 1)
	assert.Equal(t, "Read", list[0].Title)
}
