// Package progress records quiz results and timed study sessions and turns
// them into points.
package progress

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/gamification"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/store"
)

const (
	quizPoints       = 10
	perfectQuizBonus = 10
	sessionPoints    = 5
	sessionBlock     = 15 * time.Minute
	maxSessionLength = 12 * time.Hour
	weeklyWindow     = 7 * 24 * time.Hour
)

type Awarder interface {
	AwardPoints(ctx context.Context, amount int, reason string) models.GamificationProfile
	RecordQuiz(ctx context.Context, perfect bool) gamification.Counters
}

type Tracker struct {
	mu       sync.Mutex
	store    *store.Store
	awarder  Awarder
	clock    clock.Clock
	log      *logger.Logger
	userID   string
	quizzes  []models.QuizResult
	sessions []models.StudySession
}

type Option func(*Tracker)

func WithClock(c clock.Clock) Option { return func(t *Tracker) { t.clock = c } }

func WithLogger(l *logger.Logger) Option { return func(t *Tracker) { t.log = l } }

func New(ctx context.Context, st *store.Store, userID string, awarder Awarder, opts ...Option) *Tracker {
	t := &Tracker{
		store:   st,
		awarder: awarder,
		clock:   clock.Real{},
		log:     logger.Nop(),
		userID:  userID,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("component", "Progress", "user_id", userID)
	t.quizzes = store.Get(ctx, st, store.QuizResultsKey(userID), []models.QuizResult{})
	t.sessions = store.Get(ctx, st, store.StudySessionsKey(userID), []models.StudySession{})
	return t
}

func (t *Tracker) award(ctx context.Context, amount int, reason string) {
	if t.awarder == nil || amount <= 0 {
		return
	}
	t.awarder.AwardPoints(ctx, amount, reason)
}

// RecordQuiz stores the result and awards points, with a bonus for a perfect
// score.
func (t *Tracker) RecordQuiz(ctx context.Context, sub models.QuizSubmission) models.QuizResult {
	perfect := sub.TotalQuestions > 0 && sub.CorrectCount == sub.TotalQuestions
	points := quizPoints
	if perfect {
		points += perfectQuizBonus
	}

	result := models.QuizResult{
		ID:             uuid.NewString(),
		QuizID:         sub.QuizID,
		Title:          sub.Title,
		Subject:        sub.Subject,
		CorrectCount:   sub.CorrectCount,
		TotalQuestions: sub.TotalQuestions,
		ScorePercent:   scorePercent(sub.CorrectCount, sub.TotalQuestions),
		PointsAwarded:  points,
		TimeTakenSecs:  sub.TimeTakenSecs,
		CompletedAt:    t.clock.Now(),
	}

	t.mu.Lock()
	t.quizzes = append(t.quizzes, result)
	if !t.store.Set(ctx, store.QuizResultsKey(t.userID), t.quizzes) {
		t.log.Warn("failed to persist quiz results")
	}
	t.mu.Unlock()

	if t.awarder != nil {
		t.awarder.RecordQuiz(ctx, perfect)
	}
	t.award(ctx, points, "Quiz completed")
	return result
}

// scorePercent rounds to one decimal place.
func scorePercent(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

// ListQuizzes returns results newest first.
func (t *Tracker) ListQuizzes(ctx context.Context) []models.QuizResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.QuizResult, len(t.quizzes))
	for i, q := range t.quizzes {
		out[len(out)-1-i] = q
	}
	return out
}

// QuizStats returns the number of quizzes taken and their mean score.
func (t *Tracker) QuizStats(ctx context.Context) (int, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.quizzes) == 0 {
		return 0, 0
	}
	var sum float64
	for _, q := range t.quizzes {
		sum += q.ScorePercent
	}
	return len(t.quizzes), math.Round(sum/float64(len(t.quizzes))*10) / 10
}

// StartSession opens a session, first closing any open session on the same
// subject.
func (t *Tracker) StartSession(ctx context.Context, subject string) models.StudySession {
	t.mu.Lock()
	var earned int
	for i := range t.sessions {
		if t.sessions[i].Subject == subject && t.sessions[i].EndedAt == nil {
			earned += t.stopLocked(i)
		}
	}
	s := models.StudySession{
		ID:        uuid.NewString(),
		Subject:   subject,
		StartedAt: t.clock.Now(),
	}
	t.sessions = append(t.sessions, s)
	t.persistSessions(ctx)
	t.mu.Unlock()

	t.award(ctx, earned, "Study session")
	return s
}

// StopSession closes the session and awards points for every full 15 minutes.
// Stopping a closed session returns it unchanged. Returns nil for an unknown id.
func (t *Tracker) StopSession(ctx context.Context, id string) *models.StudySession {
	t.mu.Lock()
	idx := -1
	for i := range t.sessions {
		if t.sessions[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.mu.Unlock()
		return nil
	}
	var earned int
	if t.sessions[idx].EndedAt == nil {
		earned = t.stopLocked(idx)
		t.persistSessions(ctx)
	}
	s := t.sessions[idx]
	t.mu.Unlock()

	t.award(ctx, earned, "Study session")
	return &s
}

// stopLocked ends session i and returns the points it earned. Caller holds t.mu.
func (t *Tracker) stopLocked(i int) int {
	now := t.clock.Now()
	s := &t.sessions[i]

	d := now.Sub(s.StartedAt)
	if d < 0 {
		d = 0
	}
	if d > maxSessionLength {
		d = maxSessionLength
	}
	s.EndedAt = &now
	s.DurationSeconds = int(d / time.Second)
	s.PointsAwarded = int(d/sessionBlock) * sessionPoints
	return s.PointsAwarded
}

func (t *Tracker) persistSessions(ctx context.Context) {
	if !t.store.Set(ctx, store.StudySessionsKey(t.userID), t.sessions) {
		t.log.Warn("failed to persist study sessions")
	}
}

// ListSessions returns sessions newest first.
func (t *Tracker) ListSessions(ctx context.Context) []models.StudySession {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.StudySession, len(t.sessions))
	for i, s := range t.sessions {
		out[len(out)-1-i] = s
	}
	return out
}

// WeeklyMinutes sums the closed sessions that ended in the seven days before now.
func (t *Tracker) WeeklyMinutes(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := now.Add(-weeklyWindow)
	var secs int
	for _, s := range t.sessions {
		if s.EndedAt != nil && s.EndedAt.After(cutoff) && !s.EndedAt.After(now) {
			secs += s.DurationSeconds
		}
	}
	return secs / 60
}
