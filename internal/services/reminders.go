package services

import (
	"context"
	"fmt"
	"time"

	"studyspot-backend/internal/homework"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/notifications"
	"studyspot-backend/internal/simulation"
	"studyspot-backend/internal/store"
)

const (
	overdueReminderInterval = 24 * time.Hour
	studyReminderInterval   = 72 * time.Hour
	reminderPollInterval    = 1 * time.Hour

	studyReminderKey = "study"
)

// ReminderScheduler posts system notifications for overdue homework and for
// users who have not started a study session in a while. Only workspaces that
// are live in this process are visited.
type ReminderScheduler struct {
	registry *simulation.Registry
	email    *EmailService
	log      *logger.Logger
	interval time.Duration
	stopChan chan struct{}
}

// NewReminderScheduler builds a scheduler; email may be nil to disable mail.
func NewReminderScheduler(registry *simulation.Registry, email *EmailService, log *logger.Logger) *ReminderScheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &ReminderScheduler{
		registry: registry,
		email:    email,
		log:      log.With("component", "ReminderScheduler"),
		interval: reminderPollInterval,
		stopChan: make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start() {
	if s.registry == nil {
		return
	}
	go s.loop()
	s.log.Info("reminder scheduler started", "interval", s.interval.String())
}

func (s *ReminderScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *ReminderScheduler) loop() {
	// Run on startup as well as by interval.
	s.RunOnce(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunOnce(context.Background())
		}
	}
}

// RunOnce visits every live workspace and returns the number of reminders posted.
func (s *ReminderScheduler) RunOnce(ctx context.Context) int {
	now := s.registry.Clock().Now().UTC()
	st := s.registry.Store()
	posted := 0

	for _, ws := range s.registry.Workspaces() {
		userID := ws.User.ID
		prefs := notifications.GetPreferences(ctx, st, userID)
		if !prefs.PushNotifications && !prefs.EmailNotifications {
			continue
		}

		notify := func(title, message string) {
			if prefs.PushNotifications {
				ws.Feed.Add(ctx, notifications.TypeSystem, title, message)
			}
			if prefs.EmailNotifications && s.email != nil && ws.User.Email != "" {
				if err := s.email.SendReminderEmail(ws.User.Email, ws.User.FullName, title, message); err != nil {
					s.log.Warn("reminder email failed", "user_id", userID, "error", err)
				}
			}
		}

		sent := store.Get(ctx, st, store.RemindersKey(userID), map[string]string{})
		n := s.sendOverdueReminders(ctx, ws, sent, now, notify) + s.sendStudyReminder(ctx, ws, sent, now, notify)
		if n == 0 {
			continue
		}
		if !st.Set(ctx, store.RemindersKey(userID), sent) {
			s.log.Warn("failed to persist reminder timestamps", "user_id", userID)
		}
		posted += n
	}
	return posted
}

type notifyFunc func(title, message string)

func (s *ReminderScheduler) sendOverdueReminders(ctx context.Context, ws *simulation.Workspace, sent map[string]string, now time.Time, notify notifyFunc) int {
	n := 0
	for _, item := range ws.Homework.List(ctx) {
		if !homework.IsOverdue(item, now) {
			continue
		}
		key := "homework:" + item.ID
		if !shouldSendByLastSent(sent[key], overdueReminderInterval, now) {
			continue
		}
		notify("Homework overdue", fmt.Sprintf("%s (%s) was due %s.", item.Title, item.Subject, item.DueDate.Format("Jan 2")))
		sent[key] = now.Format(time.RFC3339)
		n++
	}
	return n
}

func (s *ReminderScheduler) sendStudyReminder(ctx context.Context, ws *simulation.Workspace, sent map[string]string, now time.Time, notify notifyFunc) int {
	if !shouldSendByLastSent(sent[studyReminderKey], studyReminderInterval, now) {
		return 0
	}

	var lastStudyAt *time.Time
	for _, session := range ws.Progress.ListSessions(ctx) {
		if lastStudyAt == nil || session.StartedAt.After(*lastStudyAt) {
			started := session.StartedAt
			lastStudyAt = &started
		}
	}

	if now.Sub(reminderReferenceTime(lastStudyAt, ws.CreatedAt)) < studyReminderInterval {
		return 0
	}

	notify("Time to study", "You have not logged a study session in a few days.")
	sent[studyReminderKey] = now.Format(time.RFC3339)
	return 1
}

func shouldSendByLastSent(lastSentRaw string, minInterval time.Duration, now time.Time) bool {
	if lastSentRaw == "" {
		return true
	}

	lastSentAt, err := time.Parse(time.RFC3339, lastSentRaw)
	if err != nil {
		return true
	}

	return now.Sub(lastSentAt) >= minInterval
}

func reminderReferenceTime(lastActivityAt *time.Time, createdAt time.Time) time.Time {
	if lastActivityAt != nil && !lastActivityAt.IsZero() {
		return lastActivityAt.UTC()
	}

	return createdAt.UTC()
}
