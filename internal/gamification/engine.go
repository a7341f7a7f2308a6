// Package gamification tracks a user's points, level, badges and rewards.
package gamification

import (
	"context"
	"errors"
	"sync"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/store"
)

const historyLimit = 50

var (
	ErrUnknownReward      = errors.New("unknown reward")
	ErrRewardRedeemed     = errors.New("reward already redeemed")
	ErrInsufficientPoints = errors.New("not enough points for this reward")
)

const (
	EventPointsAwarded  = "points_awarded"
	EventLevelUp        = "level_up"
	EventBadgeUnlocked  = "badge_unlocked"
	EventRewardRedeemed = "reward_redeemed"
	EventSynced         = "profile_synced"
)

type Event struct {
	Type    string                     `json:"type"`
	UserID  string                     `json:"user_id"`
	Amount  int                        `json:"amount,omitempty"`
	Reason  string                     `json:"reason,omitempty"`
	Profile models.GamificationProfile `json:"profile"`
	Badge   *models.Badge              `json:"badge,omitempty"`
	Reward  *models.Reward             `json:"reward,omitempty"`
}

type Listener func(Event)

// stats is the value persisted under stats_<userID>.
type stats struct {
	TotalPoints int                  `json:"total_points"`
	Counters    Counters             `json:"counters"`
	Redeemed    []string             `json:"redeemed_rewards"`
	History     []models.PointsEvent `json:"history"`
}

type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	clock    clock.Clock
	log      *logger.Logger
	userID   string
	userName string
	peers    []models.LeaderboardEntry

	stats  stats
	badges []models.Badge

	// version counts local writes; Reload drops a read that raced one.
	version uint64

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clock = c } }

func WithLogger(l *logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithPeers replaces the demo peers on the leaderboard.
func WithPeers(peers []models.LeaderboardEntry) Option {
	return func(e *Engine) { e.peers = peers }
}

// New loads the engine state for userID from st.
func New(ctx context.Context, st *store.Store, userID, userName string, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		clock:     clock.Real{},
		log:       logger.Nop(),
		userID:    userID,
		userName:  userName,
		peers:     demoPeers,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "GamificationEngine", "user_id", userID)
	e.stats, e.badges = e.load(ctx)
	return e
}

func (e *Engine) UserID() string { return e.userID }

func (e *Engine) load(ctx context.Context) (stats, []models.Badge) {
	s := store.Get(ctx, e.store, store.StatsKey(e.userID), stats{})
	stored := store.Get(ctx, e.store, store.AchievementsKey(e.userID), []models.Badge{})
	return s, mergeBadges(Catalog(), stored)
}

// mergeBadges overlays stored earned state on the catalog. Catalog fields win
// for display, earned state is only ever added.
func mergeBadges(base, stored []models.Badge) []models.Badge {
	earned := make(map[string]models.Badge, len(stored))
	for _, b := range stored {
		if b.Earned {
			earned[b.ID] = b
		}
	}
	out := make([]models.Badge, len(base))
	copy(out, base)
	for i := range out {
		if out[i].Earned {
			continue
		}
		if b, ok := earned[out[i].ID]; ok {
			out[i].Earned = true
			out[i].EarnedAt = b.EarnedAt
		}
	}
	return out
}

// persist writes the current state. Caller holds e.mu.
func (e *Engine) persist(ctx context.Context) {
	e.version++
	if !e.store.Set(ctx, store.StatsKey(e.userID), e.stats) {
		e.log.Warn("failed to persist stats, keeping in-memory state")
	}
	if !e.store.Set(ctx, store.AchievementsKey(e.userID), e.badges) {
		e.log.Warn("failed to persist achievements, keeping in-memory state")
	}
}

// profileLocked computes the profile from the current points. Caller holds e.mu.
func (e *Engine) profileLocked() models.GamificationProfile {
	points := e.stats.TotalPoints
	_, rank := rankBoard(e.peers, models.LeaderboardEntry{UserID: e.userID, UserName: e.userName, Points: points})
	return models.GamificationProfile{
		TotalPoints:       points,
		Level:             LevelFor(points),
		Rank:              rank,
		PointsToNextLevel: PointsToNextLevel(points),
	}
}

func (e *Engine) Profile(ctx context.Context) models.GamificationProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profileLocked()
}

// AwardPoints adds amount to the total, recomputes the profile and evaluates
// badges.
func (e *Engine) AwardPoints(ctx context.Context, amount int, reason string) models.GamificationProfile {
	e.mu.Lock()
	before := LevelFor(e.stats.TotalPoints)
	e.stats.TotalPoints += amount
	e.stats.History = appendHistory(e.stats.History, models.PointsEvent{
		Amount:    amount,
		Reason:    reason,
		Total:     e.stats.TotalPoints,
		CreatedAt: e.clock.Now(),
	})
	profile := e.profileLocked()

	events := []Event{{Type: EventPointsAwarded, UserID: e.userID, Amount: amount, Reason: reason, Profile: profile}}
	if profile.Level > before {
		events = append(events, Event{Type: EventLevelUp, UserID: e.userID, Profile: profile})
	}
	events = append(events, e.checkAndUnlockBadges(profile)...)
	e.persist(ctx)
	e.mu.Unlock()

	e.log.Debug("points awarded", "amount", amount, "reason", reason, "total", profile.TotalPoints)
	e.emit(events)
	return profile
}

func appendHistory(h []models.PointsEvent, ev models.PointsEvent) []models.PointsEvent {
	h = append(h, ev)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	return h
}

// checkAndUnlockBadges earns every badge whose rule now holds. Caller holds e.mu.
func (e *Engine) checkAndUnlockBadges(profile models.GamificationProfile) []Event {
	counters := e.stats.Counters
	counters.TotalPoints = e.stats.TotalPoints

	var events []Event
	for i, rule := range badgeRules {
		b := &e.badges[i]
		if b.Earned || !rule.met(counters) {
			continue
		}
		now := e.clock.Now()
		b.Earned = true
		b.EarnedAt = &now

		unlocked := *b
		events = append(events, Event{Type: EventBadgeUnlocked, UserID: e.userID, Badge: &unlocked, Profile: profile})
		e.log.Info("badge unlocked", "badge", b.ID)
	}
	return events
}

// bump applies fn to the counters, then persists and evaluates badges.
func (e *Engine) bump(ctx context.Context, fn func(c *Counters)) Counters {
	e.mu.Lock()
	fn(&e.stats.Counters)
	counters := e.stats.Counters
	events := e.checkAndUnlockBadges(e.profileLocked())
	e.persist(ctx)
	e.mu.Unlock()

	e.emit(events)
	return counters
}

// RecordHomeworkCompletion increments the completion counter and returns the
// new count.
func (e *Engine) RecordHomeworkCompletion(ctx context.Context) int {
	return e.bump(ctx, func(c *Counters) { c.HomeworkCompletions++ }).HomeworkCompletions
}

func (e *Engine) RecordAIUsage(ctx context.Context) int {
	return e.bump(ctx, func(c *Counters) { c.AIUsage++ }).AIUsage
}

func (e *Engine) RecordQuiz(ctx context.Context, perfect bool) Counters {
	return e.bump(ctx, func(c *Counters) {
		c.QuizzesCompleted++
		if perfect {
			c.PerfectQuizzes++
		}
	})
}

func (e *Engine) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.stats.Counters
	c.TotalPoints = e.stats.TotalPoints
	return c
}

func (e *Engine) Badges(ctx context.Context) []models.Badge {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Badge, len(e.badges))
	copy(out, e.badges)
	return out
}

func (e *Engine) History(ctx context.Context) []models.PointsEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.PointsEvent, len(e.stats.History))
	// newest first
	for i, ev := range e.stats.History {
		out[len(out)-1-i] = ev
	}
	return out
}

func (e *Engine) isRedeemed(id string) bool {
	for _, r := range e.stats.Redeemed {
		if r == id {
			return true
		}
	}
	return false
}

func (e *Engine) Rewards(ctx context.Context) []models.Reward {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Reward, len(rewardCatalog))
	for i, r := range rewardCatalog {
		r.Available = !e.isRedeemed(r.ID)
		out[i] = r
	}
	return out
}

// CanAfford reports whether the reward exists, is still available and costs no
// more than the current total.
func (e *Engine) CanAfford(rewardID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := lookupReward(rewardID)
	if !ok || e.isRedeemed(rewardID) {
		return false
	}
	return e.stats.TotalPoints >= r.Cost
}

// RedeemReward subtracts the reward cost and marks it unavailable. It does not
// check affordability; callers must use CanAfford first. Unknown or already
// redeemed rewards return false.
func (e *Engine) RedeemReward(ctx context.Context, rewardID string) (*models.Reward, bool) {
	e.mu.Lock()
	r, ok := lookupReward(rewardID)
	if !ok || e.isRedeemed(rewardID) {
		e.mu.Unlock()
		return nil, false
	}
	profile := e.redeemLocked(ctx, &r)
	e.mu.Unlock()

	e.afterRedeem(r, profile)
	return &r, true
}

// RedeemIfAffordable redeems rewardID only when the total covers its cost,
// checking and spending under one lock. It returns ErrUnknownReward,
// ErrRewardRedeemed or ErrInsufficientPoints otherwise.
func (e *Engine) RedeemIfAffordable(ctx context.Context, rewardID string) (*models.Reward, models.GamificationProfile, error) {
	e.mu.Lock()
	r, ok := lookupReward(rewardID)
	switch {
	case !ok:
		e.mu.Unlock()
		return nil, models.GamificationProfile{}, ErrUnknownReward
	case e.isRedeemed(rewardID):
		e.mu.Unlock()
		return nil, models.GamificationProfile{}, ErrRewardRedeemed
	case e.stats.TotalPoints < r.Cost:
		e.mu.Unlock()
		return nil, models.GamificationProfile{}, ErrInsufficientPoints
	}
	profile := e.redeemLocked(ctx, &r)
	e.mu.Unlock()

	e.afterRedeem(r, profile)
	return &r, profile, nil
}

func (e *Engine) redeemLocked(ctx context.Context, r *models.Reward) models.GamificationProfile {
	e.stats.TotalPoints -= r.Cost
	e.stats.Redeemed = append(e.stats.Redeemed, r.ID)
	e.stats.History = appendHistory(e.stats.History, models.PointsEvent{
		Amount:    -r.Cost,
		Reason:    "Redeemed " + r.Name,
		Total:     e.stats.TotalPoints,
		CreatedAt: e.clock.Now(),
	})
	r.Available = false
	profile := e.profileLocked()
	e.persist(ctx)
	return profile
}

func (e *Engine) afterRedeem(r models.Reward, profile models.GamificationProfile) {
	e.log.Info("reward redeemed", "reward", r.ID, "total", profile.TotalPoints)
	e.emit([]Event{{Type: EventRewardRedeemed, UserID: e.userID, Amount: -r.Cost, Reward: &r, Profile: profile}})
}

// Leaderboard ranks the user against the demo peers.
func (e *Engine) Leaderboard(ctx context.Context) []models.LeaderboardEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	board, _ := rankBoard(e.peers, models.LeaderboardEntry{UserID: e.userID, UserName: e.userName, Points: e.stats.TotalPoints})
	return board
}

// Reload re-reads persisted state so writes from another process become
// visible. It reports whether anything changed.
func (e *Engine) Reload(ctx context.Context) bool {
	e.mu.Lock()
	version := e.version
	e.mu.Unlock()

	// An unreadable medium must not reset live state.
	if !e.store.Has(ctx, store.StatsKey(e.userID)) {
		return false
	}
	s, stored := e.load(ctx)

	e.mu.Lock()
	// A local write persisted newer state while we were reading.
	if e.version != version {
		e.mu.Unlock()
		return false
	}
	changed := s.TotalPoints != e.stats.TotalPoints ||
		s.Counters != e.stats.Counters ||
		len(s.Redeemed) != len(e.stats.Redeemed)

	merged := mergeBadges(e.badges, stored)
	for i := range merged {
		if merged[i].Earned != e.badges[i].Earned {
			changed = true
		}
	}
	if !changed {
		e.mu.Unlock()
		return false
	}
	e.stats = s
	e.badges = merged
	profile := e.profileLocked()
	e.mu.Unlock()

	e.emit([]Event{{Type: EventSynced, UserID: e.userID, Profile: profile}})
	return true
}

// Subscribe registers l for engine events and returns a func that removes it.
func (e *Engine) Subscribe(l Listener) func() {
	e.lmu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.lmu.Unlock()

	return func() {
		e.lmu.Lock()
		delete(e.listeners, id)
		e.lmu.Unlock()
	}
}

func (e *Engine) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	e.lmu.Lock()
	listeners := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.lmu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			e.deliver(l, ev)
		}
	}
}

func (e *Engine) deliver(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("gamification listener panicked", "event", ev.Type, "panic", r)
		}
	}()
	l(ev)
}
