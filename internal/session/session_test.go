package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukerupert/pixelquest/internal/database"
	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/store"
)

func setupManager(t *testing.T) (*Manager, store.Stores) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewManager(db, nil, slog.New(slog.DiscardHandler)), store.New(db)
}

func TestLoginCreatesUser(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	u, err := m.Login(ctx, "  hero ")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.Username != "hero" {
		t.Errorf("Username = %q, want %q", u.Username, "hero")
	}
	if u.Level != 1 || u.XP != 0 {
		t.Errorf("new user level=%d xp=%d, want 1/0", u.Level, u.XP)
	}

	cur, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur == nil || cur.ID != u.ID {
		t.Errorf("Current = %+v, want %s", cur, u.ID)
	}
}

func TestLoginReusesExistingUser(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	first, err := m.Login(ctx, "hero")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := m.Login(ctx, "hero")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second login created a new user: %s != %s", first.ID, second.ID)
	}

	other, err := m.Login(ctx, "Hero")
	if err != nil {
		t.Fatalf("login with different case: %v", err)
	}
	if other.ID == first.ID {
		t.Error("usernames should be case-sensitive")
	}
}

func TestLoginBlankUsername(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	if _, err := m.Login(ctx, "   "); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("err = %v, want ErrInvalidUsername", err)
	}
	cur, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur != nil {
		t.Errorf("Current = %+v, want nil", cur)
	}
}

func TestCurrentTracksProgress(t *testing.T) {
	m, s := setupManager(t)
	ctx := context.Background()

	u, err := m.Login(ctx, "hero")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := s.Users.UpdateProgress(ctx, u.ID, 3, 40); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	cur, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.Level != 3 || cur.XP != 40 {
		t.Errorf("Current level=%d xp=%d, want 3/40", cur.Level, cur.XP)
	}
}

func TestLogout(t *testing.T) {
	m, s := setupManager(t)
	ctx := context.Background()

	u, err := m.Login(ctx, "hero")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	cur, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur != nil {
		t.Errorf("Current after logout = %+v, want nil", cur)
	}
	kept, err := s.Users.GetByID(ctx, u.ID)
	if err != nil || kept == nil {
		t.Errorf("logout removed the user: %v", err)
	}

	if err := m.Logout(ctx); err != nil {
		t.Errorf("second logout: %v", err)
	}
}

func TestWithUserAndFromContext(t *testing.T) {
	u := model.User{ID: "u-1", Username: "hero", Level: 2, XP: 30}

	ctx := WithUser(context.Background(), u)
	got, ok := UserFromContext(ctx)
	if !ok {
		t.Fatal("expected user in context")
	}
	if got.ID != "u-1" || got.Level != 2 {
		t.Errorf("got %+v", got)
	}
	if id := UserID(ctx); id != "u-1" {
		t.Errorf("UserID = %q, want %q", id, "u-1")
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("expected false for missing user")
	}
	if id := UserID(context.Background()); id != "" {
		t.Errorf("UserID = %q, want empty", id)
	}
}
