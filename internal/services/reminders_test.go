package services

import (
	"context"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/notifications"
	"studyspot-backend/internal/simulation"
	"studyspot-backend/internal/store"
)

type sentMail struct {
	mu sync.Mutex
	to []string
}

func (m *sentMail) send(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to...)
	return nil
}

func (m *sentMail) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.to)
}

func TestShouldSendByLastSent(t *testing.T) {
	now := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)

	if !shouldSendByLastSent("", 24*time.Hour, now) {
		t.Fatalf("expected empty last-sent value to allow sending")
	}

	if !shouldSendByLastSent("not-a-date", 24*time.Hour, now) {
		t.Fatalf("expected invalid timestamp to allow sending")
	}

	recent := now.Add(-2 * time.Hour).Format(time.RFC3339)
	if shouldSendByLastSent(recent, 24*time.Hour, now) {
		t.Fatalf("expected recent send timestamp to block sending")
	}

	old := now.Add(-48 * time.Hour).Format(time.RFC3339)
	if !shouldSendByLastSent(old, 24*time.Hour, now) {
		t.Fatalf("expected old send timestamp to allow sending")
	}
}

func TestReminderReferenceTime(t *testing.T) {
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	reference := reminderReferenceTime(nil, created)
	if !reference.Equal(created) {
		t.Fatalf("expected created_at as fallback reference time")
	}

	lastStudy := time.Date(2026, 2, 10, 18, 0, 0, 0, time.UTC)
	reference = reminderReferenceTime(&lastStudy, created)
	if !reference.Equal(lastStudy) {
		t.Fatalf("expected last study time to be preferred reference time")
	}
}

func newReminderFixture(t *testing.T) (*ReminderScheduler, *simulation.Workspace, *clock.Fake, *sentMail) {
	t.Helper()
	ctx := context.Background()
	fake := clock.NewFake(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	st := store.New(store.NewMemoryMedium(0), "test_", logger.Nop())
	registry := simulation.NewRegistry(ctx, st, simulation.WithClock(fake))

	ws := registry.Workspace(ctx, models.User{ID: "u1", FullName: "Alex Kim", Email: "alex@example.com", Role: models.RoleStudent})
	ws.Homework.Create(ctx, models.CreateHomeworkRequest{
		Subject: "Math",
		Title:   "Fractions worksheet",
		DueDate: fake.Now().Add(-time.Hour),
	})
	ws.Homework.Create(ctx, models.CreateHomeworkRequest{
		Subject: "Science",
		Title:   "Lab report",
		DueDate: fake.Now().Add(48 * time.Hour),
	})

	mail := &sentMail{}
	email := NewEmailService("smtp.test", "587", "user", "pass", "noreply@test", "http://app.test", nil)
	email.sendMail = mail.send

	return NewReminderScheduler(registry, email, nil), ws, fake, mail
}

func TestReminderScheduler_Overdue(t *testing.T) {
	s, ws, fake, mail := newReminderFixture(t)
	ctx := context.Background()

	if n := s.RunOnce(ctx); n != 1 {
		t.Fatalf("expected one overdue reminder, got %d", n)
	}
	feed := ws.Feed.List(ctx)
	if len(feed) != 1 || feed[0].Type != notifications.TypeSystem || !strings.Contains(feed[0].Message, "Fractions worksheet") {
		t.Fatalf("unexpected feed %+v", feed)
	}
	if mail.count() != 1 {
		t.Fatalf("expected one reminder email, got %d", mail.count())
	}

	if n := s.RunOnce(ctx); n != 0 {
		t.Fatalf("expected no repeat within a day, got %d", n)
	}

	fake.Advance(24 * time.Hour)
	if n := s.RunOnce(ctx); n != 1 {
		t.Fatalf("expected the overdue reminder to repeat after a day, got %d", n)
	}
}

func TestReminderScheduler_StudyReminder(t *testing.T) {
	s, ws, fake, _ := newReminderFixture(t)
	ctx := context.Background()

	s.RunOnce(ctx)
	fake.Advance(72 * time.Hour)

	// The overdue reminder repeats, the lab report is now overdue too, and
	// no study session has been logged since the workspace was created.
	if n := s.RunOnce(ctx); n != 3 {
		t.Fatalf("expected three reminders, got %d", n)
	}
	if ws.Feed.List(ctx)[0].Title != "Time to study" {
		t.Fatalf("expected study reminder to be newest, got %+v", ws.Feed.List(ctx)[0])
	}

	fake.Advance(72 * time.Hour)
	sess := ws.Progress.StartSession(ctx, "Math")
	ws.Progress.StopSession(ctx, sess.ID)
	for _, item := range ws.Homework.List(ctx) {
		ws.Homework.Complete(ctx, item.ID)
	}
	if n := s.RunOnce(ctx); n != 0 {
		t.Fatalf("expected no reminders after studying, got %d", n)
	}
}

func TestReminderScheduler_RespectsPreferences(t *testing.T) {
	s, ws, _, mail := newReminderFixture(t)
	ctx := context.Background()

	off := false
	notifications.UpdatePreferences(ctx, s.registry.Store(), ws.User.ID, models.UpdatePreferencesRequest{
		PushNotifications: &off,
	})

	if n := s.RunOnce(ctx); n != 1 {
		t.Fatalf("expected email-only reminder, got %d", n)
	}
	if len(ws.Feed.List(ctx)) != 0 {
		t.Fatal("expected no feed entries with push notifications off")
	}
	if mail.count() != 1 {
		t.Fatalf("expected one email, got %d", mail.count())
	}

	notifications.UpdatePreferences(ctx, s.registry.Store(), ws.User.ID, models.UpdatePreferencesRequest{
		EmailNotifications: &off,
	})
	if n := s.RunOnce(ctx); n != 0 {
		t.Fatalf("expected nothing with all channels off, got %d", n)
	}
}

func TestEmailService_DevMode(t *testing.T) {
	s := NewEmailService("", "587", "", "", "noreply@test", "http://app.test", nil)
	called := false
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}
	if err := s.SendReminderEmail("alex@example.com", "Alex", "Hi", "<b>x</b>"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if called {
		t.Fatal("expected dev mode to skip SMTP")
	}
}
