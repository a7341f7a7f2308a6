// Package homework is the per-user homework ledger.
package homework

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/store"
)

const completionPoints = 20

// Completion counts that raise the BadgeUnlocked signal.
var milestones = map[int]bool{1: true, 5: true, 10: true}

var ErrInvalidTransition = errors.New("completed homework cannot change status")

// Awarder is the slice of the gamification engine the ledger drives.
type Awarder interface {
	RecordHomeworkCompletion(ctx context.Context) int
	AwardPoints(ctx context.Context, amount int, reason string) models.GamificationProfile
}

type Ledger struct {
	mu      sync.Mutex
	store   *store.Store
	awarder Awarder
	clock   clock.Clock
	log     *logger.Logger
	key     string
	items   []models.HomeworkItem
}

type Option func(*Ledger)

func WithClock(c clock.Clock) Option { return func(l *Ledger) { l.clock = c } }

func WithLogger(lg *logger.Logger) Option { return func(l *Ledger) { l.log = lg } }

func New(ctx context.Context, st *store.Store, userID string, awarder Awarder, opts ...Option) *Ledger {
	l := &Ledger{
		store:   st,
		awarder: awarder,
		clock:   clock.Real{},
		log:     logger.Nop(),
		key:     store.HomeworkKey(userID),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With("component", "HomeworkLedger", "user_id", userID)
	l.items = store.Get(ctx, st, l.key, []models.HomeworkItem{})
	return l
}

// persist writes the whole collection. Failures are logged only; callers keep
// the in-memory result.
func (l *Ledger) persist(ctx context.Context) {
	if !l.store.Set(ctx, l.key, l.items) {
		l.log.Warn("failed to persist homework, keeping in-memory state", "items", len(l.items))
	}
}

func (l *Ledger) indexOf(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) Create(ctx context.Context, req models.CreateHomeworkRequest) models.HomeworkItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	item := models.HomeworkItem{
		ID:          uuid.NewString(),
		Subject:     req.Subject,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
		Difficulty:  difficulty,
		Status:      models.StatusPending,
		CreatedAt:   l.clock.Now(),
	}
	l.items = append(l.items, item)
	l.persist(ctx)
	return item
}

// List returns the stored items in creation order. Use Present to derive
// overdue status.
func (l *Ledger) List(ctx context.Context) []models.HomeworkItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.HomeworkItem, len(l.items))
	copy(out, l.items)
	return out
}

// GetByID returns nil when no item has the id.
func (l *Ledger) GetByID(ctx context.Context, id string) *models.HomeworkItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return nil
	}
	item := l.items[i]
	return &item
}

// Update applies the non-nil fields of patch. It returns nil, nil for an unknown
// id and ErrInvalidTransition when the patch tries to set or leave completed.
func (l *Ledger) Update(ctx context.Context, id string, patch models.UpdateHomeworkRequest) (*models.HomeworkItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return nil, nil
	}
	item := l.items[i]

	if patch.Status != nil {
		if *patch.Status == models.StatusCompleted || *patch.Status == models.StatusOverdue {
			return nil, ErrInvalidTransition
		}
		if item.Status == models.StatusCompleted && *patch.Status != models.StatusCompleted {
			return nil, ErrInvalidTransition
		}
		item.Status = *patch.Status
	}
	if patch.Subject != nil {
		item.Subject = *patch.Subject
	}
	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.DueDate != nil {
		item.DueDate = patch.DueDate.UTC()
	}
	if patch.Difficulty != nil {
		item.Difficulty = *patch.Difficulty
	}

	l.items[i] = item
	l.persist(ctx)
	return &item, nil
}

// Complete marks the item completed and awards points. Completing an item that
// is already completed changes nothing and reports AlreadyCompleted. Returns
// nil for an unknown id.
func (l *Ledger) Complete(ctx context.Context, id string) *models.CompletionResult {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return nil
	}
	if l.items[i].Status == models.StatusCompleted {
		item := l.items[i]
		l.mu.Unlock()
		return &models.CompletionResult{Item: item, AlreadyCompleted: true}
	}

	now := l.clock.Now()
	l.items[i].Status = models.StatusCompleted
	l.items[i].CompletedAt = &now
	item := l.items[i]
	l.persist(ctx)
	l.mu.Unlock()

	result := &models.CompletionResult{Item: item}
	if l.awarder == nil {
		return result
	}

	result.Completions = l.awarder.RecordHomeworkCompletion(ctx)
	result.Profile = l.awarder.AwardPoints(ctx, completionPoints, "Homework completed")
	result.PointsAwarded = completionPoints
	result.BadgeUnlocked = milestones[result.Completions]

	l.log.Info("homework completed", "homework_id", id, "completions", result.Completions)
	return result
}

// Delete removes the item unconditionally. Gamification state is untouched.
func (l *Ledger) Delete(ctx context.Context, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.persist(ctx)
	return true
}

// SeedIfNew copies the demo items into a ledger that has never been written.
// Seeded items get fresh ids and start pending.
func (l *Ledger) SeedIfNew(ctx context.Context, demo []models.HomeworkItem) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(demo) == 0 || len(l.items) > 0 || l.store.Has(ctx, l.key) {
		return false
	}
	now := l.clock.Now()
	for _, d := range demo {
		d.ID = uuid.NewString()
		d.Status = models.StatusPending
		d.CreatedAt = now
		d.CompletedAt = nil
		if d.Difficulty == "" {
			d.Difficulty = models.DifficultyMedium
		}
		l.items = append(l.items, d)
	}
	l.persist(ctx)
	l.log.Info("seeded demo homework", "items", len(demo))
	return true
}
