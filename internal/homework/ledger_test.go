package homework

import (
	"context"
	"errors"
	"testing"
	"time"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/gamification"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/store"
)

var epoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ledger *Ledger
	engine *gamification.Engine
	store  *store.Store
	clock  *clock.Fake
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := store.New(store.NewMemoryMedium(0), "test_", nil)
	clk := clock.NewFake(epoch)
	engine := gamification.New(ctx, st, "student-1", "Student", gamification.WithClock(clk))
	return fixture{
		ledger: New(ctx, st, "student-1", engine, WithClock(clk)),
		engine: engine,
		store:  st,
		clock:  clk,
	}
}

func newItem(title string, due time.Time) models.CreateHomeworkRequest {
	return models.CreateHomeworkRequest{Subject: "Math", Title: title, DueDate: due}
}

func earned(badges []models.Badge, id string) bool {
	for _, b := range badges {
		if b.ID == id {
			return b.Earned
		}
	}
	return false
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.ledger.Create(ctx, newItem("Fractions", epoch.Add(48*time.Hour)))
	if item.ID == "" || item.Status != models.StatusPending || !item.CreatedAt.Equal(epoch) {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.Difficulty != models.DifficultyMedium {
		t.Fatalf("expected default difficulty, got %q", item.Difficulty)
	}

	stored := store.Get(ctx, f.store, store.HomeworkKey("student-1"), []models.HomeworkItem{})
	if len(stored) != 1 || stored[0].ID != item.ID {
		t.Fatalf("expected collection persisted, got %+v", stored)
	}

	reloaded := New(ctx, f.store, "student-1", nil)
	if got := reloaded.GetByID(ctx, item.ID); got == nil || got.Title != "Fractions" {
		t.Fatalf("expected item after reload, got %+v", got)
	}
}

func TestGetByID_Unknown(t *testing.T) {
	f := newFixture(t)
	if f.ledger.GetByID(context.Background(), "nope") != nil {
		t.Fatalf("expected nil for unknown id")
	}
}

func TestComplete_MilestoneBadges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, f.ledger.Create(ctx, newItem("hw", epoch.Add(time.Hour))).ID)
	}

	for i, id := range ids {
		res := f.ledger.Complete(ctx, id)
		if res == nil {
			t.Fatalf("complete %d returned nil", i+1)
		}
		n := i + 1
		if res.Completions != n || res.PointsAwarded != 20 {
			t.Fatalf("completion %d: unexpected result %+v", n, res)
		}
		if res.BadgeUnlocked != (n == 1 || n == 5) {
			t.Fatalf("completion %d: BadgeUnlocked = %v", n, res.BadgeUnlocked)
		}

		badges := f.engine.Badges(ctx)
		if !earned(badges, "first-completion") {
			t.Fatalf("first-completion should be earned after completion %d", n)
		}
		if got := earned(badges, "five-completions"); got != (n >= 5) {
			t.Fatalf("five-completions earned = %v after completion %d", got, n)
		}
	}

	if p := f.engine.Profile(ctx); p.TotalPoints != 100 || p.Level != 2 {
		t.Fatalf("expected 100 points at level 2, got %+v", p)
	}
}

func TestComplete_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.ledger.Create(ctx, newItem("Essay", epoch.Add(time.Hour))).ID

	first := f.ledger.Complete(ctx, id)
	f.clock.Advance(time.Minute)
	second := f.ledger.Complete(ctx, id)

	if !second.AlreadyCompleted || second.PointsAwarded != 0 {
		t.Fatalf("expected no-op on repeat completion, got %+v", second)
	}
	if !second.Item.CompletedAt.Equal(*first.Item.CompletedAt) {
		t.Fatalf("completedAt should not move")
	}
	if got := f.engine.Profile(ctx).TotalPoints; got != 20 {
		t.Fatalf("expected points awarded once, got %d", got)
	}
	if got := f.engine.Counters().HomeworkCompletions; got != 1 {
		t.Fatalf("expected one completion counted, got %d", got)
	}
}

func TestComplete_Unknown(t *testing.T) {
	f := newFixture(t)
	if f.ledger.Complete(context.Background(), "missing") != nil {
		t.Fatalf("expected nil for unknown id")
	}
	if f.engine.Profile(context.Background()).TotalPoints != 0 {
		t.Fatalf("unknown id must not award points")
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.ledger.Create(ctx, newItem("Draft", epoch.Add(time.Hour))).ID

	title := "Final"
	inProgress := models.StatusInProgress
	got, err := f.ledger.Update(ctx, id, models.UpdateHomeworkRequest{Title: &title, Status: &inProgress})
	if err != nil || got == nil {
		t.Fatalf("update failed: %v", err)
	}
	if got.Title != "Final" || got.Status != models.StatusInProgress || got.Subject != "Math" {
		t.Fatalf("unexpected item: %+v", got)
	}

	missing, err := f.ledger.Update(ctx, "nope", models.UpdateHomeworkRequest{Title: &title})
	if missing != nil || err != nil {
		t.Fatalf("expected nil, nil for unknown id")
	}
}

func TestUpdate_CompletedIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.ledger.Create(ctx, newItem("Lab", epoch.Add(time.Hour))).ID

	completed := models.StatusCompleted
	if _, err := f.ledger.Update(ctx, id, models.UpdateHomeworkRequest{Status: &completed}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition when setting completed, got %v", err)
	}

	f.ledger.Complete(ctx, id)

	pending := models.StatusPending
	if _, err := f.ledger.Update(ctx, id, models.UpdateHomeworkRequest{Status: &pending}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition when reverting, got %v", err)
	}

	desc := "notes"
	got, err := f.ledger.Update(ctx, id, models.UpdateHomeworkRequest{Description: &desc})
	if err != nil || got.Status != models.StatusCompleted {
		t.Fatalf("expected non-status edit on completed item to succeed: %v %+v", err, got)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.ledger.Create(ctx, newItem("Gone", epoch.Add(time.Hour))).ID
	f.ledger.Complete(ctx, id)

	if !f.ledger.Delete(ctx, id) {
		t.Fatalf("expected delete to succeed")
	}
	if f.ledger.Delete(ctx, id) {
		t.Fatalf("expected second delete to report false")
	}
	if len(f.ledger.List(ctx)) != 0 {
		t.Fatalf("expected empty ledger")
	}
	if f.engine.Profile(ctx).TotalPoints != 20 {
		t.Fatalf("delete must not touch gamification state")
	}
}

func TestBrokenStoreStillReturnsResults(t *testing.T) {
	ctx := context.Background()
	l := New(ctx, store.New(nil, "x_", nil), "u", nil)

	item := l.Create(ctx, newItem("Offline", epoch))
	if l.GetByID(ctx, item.ID) == nil {
		t.Fatalf("expected in-memory item despite failed persist")
	}
	if res := l.Complete(ctx, item.ID); res == nil || res.Item.Status != models.StatusCompleted {
		t.Fatalf("expected completion in memory, got %+v", res)
	}
}

func TestSeedIfNew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	demo := []models.HomeworkItem{
		{Subject: "Science", Title: "Plant cells", Status: models.StatusCompleted},
		{Subject: "History", Title: "Timeline", Difficulty: models.DifficultyEasy},
	}

	if !f.ledger.SeedIfNew(ctx, demo) {
		t.Fatalf("expected fresh ledger to be seeded")
	}
	items := f.ledger.List(ctx)
	if len(items) != 2 || items[0].Status != models.StatusPending || items[0].ID == "" {
		t.Fatalf("unexpected seeded items: %+v", items)
	}

	for _, item := range items {
		f.ledger.Delete(ctx, item.ID)
	}
	if f.ledger.SeedIfNew(ctx, demo) {
		t.Fatalf("ledger that has been written must not be reseeded")
	}
}

func TestPresentAndSummary(t *testing.T) {
	now := epoch
	items := []models.HomeworkItem{
		{ID: "a", Status: models.StatusPending, DueDate: now.Add(-time.Hour)},
		{ID: "b", Status: models.StatusInProgress, DueDate: now.Add(time.Hour)},
		{ID: "c", Status: models.StatusCompleted, DueDate: now.Add(-time.Hour)},
		{ID: "d", Status: models.StatusPending, DueDate: now.Add(time.Hour)},
		{ID: "e", Status: models.StatusInProgress, DueDate: now.Add(-time.Minute)},
	}

	presented := Present(items, now)
	want := []string{models.StatusOverdue, models.StatusInProgress, models.StatusCompleted, models.StatusPending, models.StatusOverdue}
	for i, item := range presented {
		if item.Status != want[i] {
			t.Errorf("item %s: status %q, want %q", item.ID, item.Status, want[i])
		}
	}
	if items[0].Status != models.StatusPending {
		t.Fatalf("Present must not mutate its input")
	}

	s := Summary(items, now)
	if s.Total != 5 || s.Overdue != 2 || s.Completed != 1 || s.Pending != 1 || s.InProgress != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
