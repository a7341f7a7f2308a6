// Package simulation holds the per-user local workspaces that answer the API
// when the remote backend is not in use.
package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/gamification"
	"studyspot-backend/internal/homework"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/messaging"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/notifications"
	"studyspot-backend/internal/progress"
	"studyspot-backend/internal/search"
	"studyspot-backend/internal/store"
)

// Publisher pushes realtime events to a user's open connections.
type Publisher interface {
	SendToUser(userID string, msg models.WSMessage)
}

// Workspace is one user's set of local modules.
type Workspace struct {
	User      models.User
	Engine    *gamification.Engine
	Homework  *homework.Ledger
	Progress  *progress.Tracker
	Feed      *notifications.Feed
	CreatedAt time.Time
}

type Registry struct {
	mu         sync.Mutex
	store      *store.Store
	clock      clock.Clock
	log        *logger.Logger
	center     *messaging.Center
	history    *search.History
	publisher  Publisher
	seedDemo   bool
	workspaces map[string]*Workspace
}

type Option func(*Registry)

func WithClock(c clock.Clock) Option { return func(r *Registry) { r.clock = c } }

func WithLogger(l *logger.Logger) Option { return func(r *Registry) { r.log = l } }

func WithPublisher(p Publisher) Option { return func(r *Registry) { r.publisher = p } }

// WithDemoSeed seeds each new user's homework from the demo list.
func WithDemoSeed(on bool) Option { return func(r *Registry) { r.seedDemo = on } }

func NewRegistry(ctx context.Context, st *store.Store, opts ...Option) *Registry {
	r := &Registry{
		store:      st,
		clock:      clock.Real{},
		log:        logger.Nop(),
		workspaces: make(map[string]*Workspace),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.center = messaging.NewCenter(ctx, st, messaging.WithClock(r.clock), messaging.WithLogger(r.log))
	r.history = search.NewHistory(st, r.log)
	r.center.Subscribe(r.onMessage)
	return r
}

func (r *Registry) Store() *store.Store { return r.store }

func (r *Registry) Clock() clock.Clock { return r.clock }

func (r *Registry) History() *search.History { return r.history }

func (r *Registry) Mailbox(u models.User) *messaging.Mailbox {
	return r.center.Mailbox(messaging.Participant{ID: u.ID, Name: u.FullName, Role: u.Role})
}

// Workspace returns the cached workspace for u, building it on first use.
func (r *Registry) Workspace(ctx context.Context, u models.User) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.workspaces[u.ID]; ok {
		if u.FullName != "" {
			ws.User = u
		}
		return ws
	}

	engine := gamification.New(ctx, r.store, u.ID, u.FullName,
		gamification.WithClock(r.clock), gamification.WithLogger(r.log))
	ws := &Workspace{
		User:      u,
		Engine:    engine,
		Homework:  homework.New(ctx, r.store, u.ID, engine, homework.WithClock(r.clock), homework.WithLogger(r.log)),
		Progress:  progress.New(ctx, r.store, u.ID, engine, progress.WithClock(r.clock), progress.WithLogger(r.log)),
		Feed:      notifications.NewFeed(ctx, r.store, u.ID, r.clock, r.log),
		CreatedAt: r.clock.Now(),
	}
	engine.Subscribe(r.onGamification(ws))

	if r.seedDemo {
		demo := store.Get(ctx, r.store, store.KeyDemoHomework, []models.HomeworkItem{})
		ws.Homework.SeedIfNew(ctx, demo)
	}

	r.workspaces[u.ID] = ws
	r.log.Debug("workspace created", "user_id", u.ID)
	return ws
}

// Workspaces returns the workspaces built so far.
func (r *Registry) Workspaces() []*Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Workspace, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		out = append(out, ws)
	}
	return out
}

func (r *Registry) cached(userID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workspaces[userID]
}

func (r *Registry) publish(userID, typ string, payload interface{}) {
	if r.publisher == nil {
		return
	}
	r.publisher.SendToUser(userID, models.WSMessage{Type: typ, Payload: payload})
}

// onGamification turns engine events into feed entries and realtime pushes.
func (r *Registry) onGamification(ws *Workspace) gamification.Listener {
	return func(ev gamification.Event) {
		ctx := context.Background()
		switch ev.Type {
		case gamification.EventBadgeUnlocked:
			ws.Feed.Add(ctx, notifications.TypeBadge, "Badge unlocked", fmt.Sprintf("You earned the %s badge!", ev.Badge.Name))
		case gamification.EventLevelUp:
			ws.Feed.Add(ctx, notifications.TypeLevelUp, "Level up", fmt.Sprintf("You reached level %d.", ev.Profile.Level))
		case gamification.EventRewardRedeemed:
			ws.Feed.Add(ctx, notifications.TypeReward, "Reward redeemed", fmt.Sprintf("Enjoy your %s!", ev.Reward.Name))
		}
		r.publish(ev.UserID, ev.Type, ev)
	}
}

func (r *Registry) onMessage(msg models.Message) {
	ctx := context.Background()
	title := "New message from " + msg.SenderName

	if ws := r.cached(msg.ReceiverID); ws != nil {
		ws.Feed.Add(ctx, notifications.TypeMessage, title, msg.Content)
	} else {
		notifications.NewFeed(ctx, r.store, msg.ReceiverID, r.clock, r.log).Add(ctx, notifications.TypeMessage, title, msg.Content)
	}
	r.publish(msg.ReceiverID, "new_message", msg)
}

// Sync reloads shared state written by other processes.
func (r *Registry) Sync(ctx context.Context) {
	r.mu.Lock()
	engines := make([]*gamification.Engine, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		engines = append(engines, ws.Engine)
	}
	r.mu.Unlock()

	for _, e := range engines {
		e.Reload(ctx)
	}
	if r.center.Reload(ctx) {
		r.log.Debug("message log reloaded")
	}
}

// RunSync calls Sync on every tick until ctx is done.
func (r *Registry) RunSync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sync(ctx)
		}
	}
}
