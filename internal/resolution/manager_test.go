package resolution

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dukerupert/pixelquest/internal/database"
	"github.com/dukerupert/pixelquest/internal/metrics"
	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/progression"
	"github.com/dukerupert/pixelquest/internal/store"
)

type notification struct {
	entity, action, id string
	extra              map[string]any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) Notify(entity, action, id string, extra map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{entity, action, id, extra})
}

func (r *recordingNotifier) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.sent {
		out = append(out, n.entity+"_"+n.action)
	}
	return out
}

type fixture struct {
	db       *sql.DB
	stores   store.Stores
	mgr      *Manager
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	user     *model.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := store.New(db)
	u, err := s.Users.Create(context.Background(), "hero")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	n := &recordingNotifier{}
	m := metrics.New(prometheus.NewRegistry())
	return &fixture{
		db:       db,
		stores:   s,
		mgr:      NewManager(db, n, m, slog.New(slog.DiscardHandler)),
		notifier: n,
		metrics:  m,
		user:     u,
	}
}

func (f *fixture) add(t *testing.T, title string) *model.Resolution {
	t.Helper()
	r, err := f.mgr.Add(context.Background(), f.user.ID, title, "Health")
	if err != nil {
		t.Fatalf("add %q: %v", title, err)
	}
	return r
}

func (f *fixture) toggle(t *testing.T, id, date string) *Outcome {
	t.Helper()
	out, err := f.mgr.Toggle(context.Background(), id, f.user.ID, model.Date(date))
	if err != nil {
		t.Fatalf("toggle %s on %s: %v", id, date, err)
	}
	return out
}

func (f *fixture) reloadUser(t *testing.T) *model.User {
	t.Helper()
	u, err := f.stores.Users.GetByID(context.Background(), f.user.ID)
	if err != nil || u == nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}

func TestAddStartsWithNoProgress(t *testing.T) {
	f := setup(t)

	r := f.add(t, "  Morning Jog  ")
	if r.Title != "Morning Jog" {
		t.Errorf("Title = %q, want trimmed", r.Title)
	}
	if r.Streak != 0 || r.TotalCompletions != 0 || r.LastCompletedDate != nil {
		t.Errorf("new resolution has progress: %+v", r)
	}
	if r.UserID != f.user.ID {
		t.Errorf("UserID = %q, want %q", r.UserID, f.user.ID)
	}
	if got := f.notifier.actions(); len(got) != 1 || got[0] != "resolution_created" {
		t.Errorf("notifications = %v", got)
	}
}

func TestAddDefaultsCategory(t *testing.T) {
	f := setup(t)
	r, err := f.mgr.Add(context.Background(), f.user.ID, "Journal", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if r.Category != model.CategoryOther {
		t.Errorf("Category = %q, want Other", r.Category)
	}
}

func TestAddValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userID   string
		title    string
		category string
		want     error
	}{
		{"blank title", f.user.ID, "   ", "Health", ErrInvalidTitle},
		{"unknown category", f.user.ID, "Jog", "Sports", ErrInvalidCategory},
		{"unknown user", "nobody", "Jog", "Health", ErrUnknownUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.mgr.Add(ctx, tt.userID, tt.title, tt.category)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	list, err := f.mgr.ListFor(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("rejected adds left %d resolutions", len(list))
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(ErrInvalidTitle) || !IsValidation(ErrInvalidDate) {
		t.Error("input errors should be validation errors")
	}
	if IsValidation(ErrNotFound) || IsValidation(errors.New("disk full")) {
		t.Error("non-input errors should not be validation errors")
	}
}

func TestMorningJogScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.add(t, "Morning Jog")

	out := f.toggle(t, r.ID, "2026-01-01")
	if out.Kind != progression.KindCompleted {
		t.Fatalf("Kind = %q, want completed", out.Kind)
	}
	if out.Resolution.Streak != 1 || out.Resolution.TotalCompletions != 1 {
		t.Errorf("after day 1: streak=%d total=%d", out.Resolution.Streak, out.Resolution.TotalCompletions)
	}
	if out.User.XP != 10 || out.User.Level != 1 {
		t.Errorf("after day 1: level=%d xp=%d", out.User.Level, out.User.XP)
	}

	out = f.toggle(t, r.ID, "2026-01-02")
	if out.Resolution.Streak != 2 || out.Resolution.TotalCompletions != 2 {
		t.Errorf("after day 2: streak=%d total=%d", out.Resolution.Streak, out.Resolution.TotalCompletions)
	}
	if got := *out.Resolution.LastCompletedDate; got != "2026-01-02" {
		t.Errorf("LastCompletedDate = %q", got)
	}
	if out.User.XP != 20 {
		t.Errorf("after day 2: xp=%d, want 20", out.User.XP)
	}

	// Undo day 2.
	out = f.toggle(t, r.ID, "2026-01-02")
	if out.Kind != progression.KindUncompleted {
		t.Fatalf("Kind = %q, want uncompleted", out.Kind)
	}
	if out.Resolution.Streak != 1 || out.Resolution.TotalCompletions != 1 {
		t.Errorf("after undo: streak=%d total=%d", out.Resolution.Streak, out.Resolution.TotalCompletions)
	}
	if out.Resolution.LastCompletedDate != nil {
		t.Errorf("LastCompletedDate = %v, want nil", *out.Resolution.LastCompletedDate)
	}
	if out.XPAwarded != 0 {
		t.Errorf("undo awarded %d XP", out.XPAwarded)
	}

	u := f.reloadUser(t)
	if u.XP != 20 || u.Level != 1 {
		t.Errorf("stored user level=%d xp=%d, XP must not be revoked", u.Level, u.XP)
	}

	stored, err := f.mgr.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Streak != 1 || stored.TotalCompletions != 1 || stored.LastCompletedDate != nil {
		t.Errorf("stored resolution = %+v", stored)
	}

	logs, err := f.stores.Logs.ListByResolution(ctx, r.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Date != "2026-01-01" {
		t.Errorf("logs = %+v, want only 2026-01-01", logs)
	}
}

func TestToggleGapResetsStreak(t *testing.T) {
	f := setup(t)
	r := f.add(t, "Read")

	f.toggle(t, r.ID, "2026-01-01")
	out := f.toggle(t, r.ID, "2026-01-03")
	if out.Resolution.Streak != 1 {
		t.Errorf("Streak = %d, want 1 after a gap", out.Resolution.Streak)
	}
	if out.Resolution.TotalCompletions != 2 {
		t.Errorf("TotalCompletions = %d, want 2", out.Resolution.TotalCompletions)
	}
}

func TestToggleIsOwnInverse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.add(t, "Save")

	f.toggle(t, r.ID, "2026-03-10")
	f.toggle(t, r.ID, "2026-03-10")

	got, err := f.mgr.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Streak != r.Streak || got.TotalCompletions != r.TotalCompletions || got.LastCompletedDate != nil {
		t.Errorf("after double toggle = %+v, want original %+v", got, r)
	}
	if l, err := f.stores.Logs.Find(ctx, r.ID, "2026-03-10"); err != nil || l != nil {
		t.Errorf("log still present: %+v (err %v)", l, err)
	}
	if u := f.reloadUser(t); u.XP != 10 {
		t.Errorf("XP = %d, want 10 kept after undo", u.XP)
	}
}

func TestTenCompletionsLevelUp(t *testing.T) {
	f := setup(t)
	r := f.add(t, "Code")

	var last *Outcome
	for i := 0; i < 10; i++ {
		last = f.toggle(t, r.ID, string(model.Date("2026-01-01").AddDays(i)))
	}
	if last.LevelsGained != 1 {
		t.Errorf("LevelsGained = %d, want 1", last.LevelsGained)
	}
	if last.User.Level != 2 || last.User.XP != 0 {
		t.Errorf("user level=%d xp=%d, want 2/0", last.User.Level, last.User.XP)
	}
	if last.Resolution.Streak != 10 {
		t.Errorf("Streak = %d, want 10", last.Resolution.Streak)
	}

	if got := testutil.ToFloat64(f.metrics.Completions); got != 10 {
		t.Errorf("completions metric = %v, want 10", got)
	}
	if got := testutil.ToFloat64(f.metrics.LevelUps); got != 1 {
		t.Errorf("level ups metric = %v, want 1", got)
	}

	found := false
	for _, a := range f.notifier.actions() {
		if a == "user_leveled_up" {
			found = true
		}
	}
	if !found {
		t.Error("no user_leveled_up notification")
	}
}

func TestToggleRecordsUndoMetric(t *testing.T) {
	f := setup(t)
	r := f.add(t, "Stretch")

	f.toggle(t, r.ID, "2026-02-01")
	f.toggle(t, r.ID, "2026-02-01")

	if got := testutil.ToFloat64(f.metrics.Undos); got != 1 {
		t.Errorf("undos metric = %v, want 1", got)
	}
	want := []string{"resolution_created", "resolution_completed", "resolution_uncompleted"}
	got := f.notifier.actions()
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestToggleErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.add(t, "Jog")

	other, err := f.stores.Users.Create(ctx, "villain")
	if err != nil {
		t.Fatalf("create other user: %v", err)
	}

	if _, err := f.mgr.Toggle(ctx, "missing", f.user.ID, "2026-01-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing resolution: err = %v, want ErrNotFound", err)
	}
	if _, err := f.mgr.Toggle(ctx, r.ID, other.ID, "2026-01-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign resolution: err = %v, want ErrNotFound", err)
	}
	if _, err := f.mgr.Toggle(ctx, r.ID, f.user.ID, "01/02/2026"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("bad date: err = %v, want ErrInvalidDate", err)
	}

	got, err := f.mgr.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalCompletions != 0 {
		t.Errorf("failed toggles changed the resolution: %+v", got)
	}
	if u := f.reloadUser(t); u.XP != 0 {
		t.Errorf("failed toggles awarded XP: %d", u.XP)
	}
}

func TestUpdateKeepsProgress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.add(t, "Jog")
	f.toggle(t, r.ID, "2026-01-01")

	updated, err := f.mgr.Update(ctx, r.ID, "Evening Jog", "Other")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Evening Jog" || updated.Category != model.CategoryOther {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Streak != 1 || updated.TotalCompletions != 1 || updated.LastCompletedDate == nil {
		t.Errorf("update touched progress: %+v", updated)
	}

	if _, err := f.mgr.Update(ctx, "missing", "x", "Other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
	if _, err := f.mgr.Update(ctx, r.ID, "", "Other"); !errors.Is(err, ErrInvalidTitle) {
		t.Errorf("blank title: err = %v, want ErrInvalidTitle", err)
	}
}

func TestDeleteCascadesAndIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.add(t, "Jog")
	keep := f.add(t, "Read")
	f.toggle(t, r.ID, "2026-01-01")
	f.toggle(t, r.ID, "2026-01-02")
	f.toggle(t, keep.ID, "2026-01-01")

	if err := f.mgr.Delete(ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.mgr.Get(ctx, r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}
	logs, err := f.stores.Logs.ListByResolution(ctx, r.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("%d logs survived delete", len(logs))
	}
	kept, err := f.stores.Logs.ListByResolution(ctx, keep.ID)
	if err != nil {
		t.Fatalf("list kept logs: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("other resolution has %d logs, want 1", len(kept))
	}

	before := len(f.notifier.actions())
	if err := f.mgr.Delete(ctx, r.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if after := len(f.notifier.actions()); after != before {
		t.Errorf("no-op delete sent %d notifications", after-before)
	}
}

func TestListForInsertionOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, title := range []string{"Jog", "Read", "Save"} {
		f.add(t, title)
	}

	list, err := f.mgr.ListFor(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"Jog", "Read", "Save"} {
		if list[i].Title != want {
			t.Errorf("list[%d] = %q, want %q", i, list[i].Title, want)
		}
	}

	empty, err := f.mgr.ListFor(ctx, "nobody")
	if err != nil {
		t.Fatalf("list for unknown: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListFor unknown user = %v, want empty slice", empty)
	}
}

func TestConcurrentTogglesAreSerialized(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	var ids []string
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		ids = append(ids, f.add(t, title).ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.mgr.Toggle(ctx, id, f.user.ID, "2026-05-01")
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}

	if u := f.reloadUser(t); u.XP != 50 {
		t.Errorf("XP = %d, want 50 with no lost updates", u.XP)
	}
}

func TestHistoryListsCompletionsInDateOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r, err := f.mgr.Add(ctx, f.user.ID, "Read", "Reading")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	empty, err := f.mgr.History(ctx, r.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("history of new resolution = %#v, want empty slice", empty)
	}

	for _, d := range []model.Date{"2026-01-03", "2026-01-01", "2026-01-02"} {
		if _, err := f.mgr.Toggle(ctx, r.ID, f.user.ID, d); err != nil {
			t.Fatalf("toggle %s: %v", d, err)
		}
	}
	logs, err := f.mgr.History(ctx, r.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []model.Date{"2026-01-01", "2026-01-02", "2026-01-03"}
	if len(logs) != len(want) {
		t.Fatalf("history = %+v, want %v", logs, want)
	}
	for i, l := range logs {
		if l.Date != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, l.Date, want[i])
		}
	}

	if _, err := f.mgr.History(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("history of unknown id = %v, want ErrNotFound", err)
	}
}
