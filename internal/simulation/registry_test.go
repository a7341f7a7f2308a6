package simulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/notifications"
	"studyspot-backend/internal/store"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (p *recordingPublisher) SendToUser(userID string, msg models.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = make(map[string][]string)
	}
	p.sent[userID] = append(p.sent[userID], msg.Type)
}

func (p *recordingPublisher) types(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.sent[userID]...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func newRegistry(t *testing.T, opts ...Option) (*Registry, *store.Store, *recordingPublisher) {
	t.Helper()
	st := store.New(store.NewMemoryMedium(0), "test_", nil)
	pub := &recordingPublisher{}
	opts = append([]Option{WithClock(clock.NewFake(now)), WithPublisher(pub)}, opts...)
	return NewRegistry(context.Background(), st, opts...), st, pub
}

func TestWorkspaceIsCachedPerUser(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	a := r.Workspace(ctx, DemoStudent)
	if r.Workspace(ctx, DemoStudent) != a {
		t.Fatalf("expected the same workspace on repeat access")
	}
	if r.Workspace(ctx, DemoParent) == a {
		t.Fatalf("expected a separate workspace per user")
	}
}

func TestBadgeBecomesNotification(t *testing.T) {
	r, _, pub := newRegistry(t)
	ctx := context.Background()
	ws := r.Workspace(ctx, DemoStudent)

	item := ws.Homework.Create(ctx, models.CreateHomeworkRequest{Subject: "Math", Title: "hw", DueDate: now.Add(time.Hour)})
	ws.Homework.Complete(ctx, item.ID)

	feed := ws.Feed.List(ctx)
	if len(feed) == 0 || feed[0].Type != notifications.TypeBadge {
		t.Fatalf("expected a badge notification, got %+v", feed)
	}
	sent := pub.types(DemoStudent.ID)
	if !contains(sent, "badge_unlocked") || !contains(sent, "points_awarded") {
		t.Fatalf("expected realtime pushes, got %v", sent)
	}
}

func TestMessageNotifiesReceiver(t *testing.T) {
	r, st, pub := newRegistry(t)
	ctx := context.Background()

	r.Mailbox(DemoTeacher).SendMessage(ctx, DemoStudent.ID, "See me after class", DemoStudent.FullName, DemoStudent.Role)

	// Receiver has no workspace yet; the notification must still be stored.
	stored := store.Get(ctx, st, store.NotificationsKey(DemoStudent.ID), []models.Notification{})
	if len(stored) != 1 || stored[0].Type != notifications.TypeMessage {
		t.Fatalf("expected stored message notification, got %+v", stored)
	}
	if ws := r.Workspace(ctx, DemoStudent); ws.Feed.UnreadCount(ctx) != 1 {
		t.Fatalf("workspace feed should load the stored notification")
	}
	if !contains(pub.types(DemoStudent.ID), "new_message") {
		t.Fatalf("expected new_message push")
	}
}

func TestDemoSeeding(t *testing.T) {
	r, st, _ := newRegistry(t, WithDemoSeed(true))
	ctx := context.Background()

	written := Seed(ctx, st, now, false)
	if len(written) != 2 {
		t.Fatalf("expected both demo keys written, got %v", written)
	}
	if again := Seed(ctx, st, now, false); len(again) != 0 {
		t.Fatalf("seed without force must keep existing data, wrote %v", again)
	}

	ws := r.Workspace(ctx, DemoStudent)
	if got := len(ws.Homework.List(ctx)); got != len(DemoHomework(now)) {
		t.Fatalf("expected %d seeded items, got %d", len(DemoHomework(now)), got)
	}
}

func TestSyncPicksUpOtherProcess(t *testing.T) {
	r, st, _ := newRegistry(t)
	ctx := context.Background()
	ws := r.Workspace(ctx, DemoStudent)

	other := NewRegistry(ctx, st, WithClock(clock.NewFake(now)))
	other.Workspace(ctx, DemoStudent).Engine.AwardPoints(ctx, 40, "elsewhere")
	other.Mailbox(DemoParent).SendMessage(ctx, DemoStudent.ID, "hi", DemoStudent.FullName, DemoStudent.Role)

	r.Sync(ctx)

	if got := ws.Engine.Profile(ctx).TotalPoints; got != 40 {
		t.Fatalf("expected synced points, got %d", got)
	}
	if got := r.Mailbox(DemoStudent).GetUnreadCount(ctx); got != 1 {
		t.Fatalf("expected synced message log, got %d unread", got)
	}
}

func TestRunSyncStopsOnCancel(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.RunSync(ctx, time.Millisecond) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("RunSync did not stop")
	}
}
