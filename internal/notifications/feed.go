// Package notifications keeps each user's notification feed and preferences.
package notifications

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/store"
)

const feedLimit = 50

const (
	TypeBadge   = "badge"
	TypeLevelUp = "level_up"
	TypeMessage = "message"
	TypeReward  = "reward"
	TypeSystem  = "system"
)

type Feed struct {
	mu    sync.Mutex
	store *store.Store
	clock clock.Clock
	log   *logger.Logger
	key   string
	items []models.Notification // newest first
}

func NewFeed(ctx context.Context, st *store.Store, userID string, clk clock.Clock, log *logger.Logger) *Feed {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = logger.Nop()
	}
	f := &Feed{
		store: st,
		clock: clk,
		log:   log.With("component", "Notifications", "user_id", userID),
		key:   store.NotificationsKey(userID),
	}
	f.items = store.Get(ctx, st, f.key, []models.Notification{})
	return f
}

func (f *Feed) persist(ctx context.Context) {
	if !f.store.Set(ctx, f.key, f.items) {
		f.log.Warn("failed to persist notifications")
	}
}

// Add prepends a notification, keeping the newest fifty.
func (f *Feed) Add(ctx context.Context, typ, title, message string) models.Notification {
	n := models.Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: f.clock.Now(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]models.Notification{n}, f.items...)
	if len(f.items) > feedLimit {
		f.items = f.items[:feedLimit]
	}
	f.persist(ctx)
	return n
}

func (f *Feed) List(ctx context.Context) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Notification, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed) MarkRead(ctx context.Context, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			if f.items[i].Read {
				return false
			}
			f.items[i].Read = true
			f.persist(ctx)
			return true
		}
	}
	return false
}

// MarkAllRead returns how many notifications changed.
func (f *Feed) MarkAllRead(ctx context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := range f.items {
		if !f.items[i].Read {
			f.items[i].Read = true
			n++
		}
	}
	if n > 0 {
		f.persist(ctx)
	}
	return n
}

func (f *Feed) UnreadCount(ctx context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, item := range f.items {
		if !item.Read {
			n++
		}
	}
	return n
}

func DefaultPreferences() models.Preferences {
	return models.Preferences{
		Theme:              "system",
		Language:           "en",
		EmailNotifications: true,
		PushNotifications:  true,
		SoundEffects:       true,
		WeeklyGoal:         300,
	}
}

// GetPreferences overlays whatever is stored on the defaults, so fields added
// later still get a value for old records.
func GetPreferences(ctx context.Context, st *store.Store, userID string) models.Preferences {
	prefs := DefaultPreferences()
	raw, ok := st.GetRaw(ctx, store.PreferencesKey(userID))
	if !ok {
		return prefs
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return DefaultPreferences()
	}
	return prefs
}

func UpdatePreferences(ctx context.Context, st *store.Store, userID string, req models.UpdatePreferencesRequest) models.Preferences {
	prefs := GetPreferences(ctx, st, userID)
	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	if req.Language != nil {
		prefs.Language = *req.Language
	}
	if req.EmailNotifications != nil {
		prefs.EmailNotifications = *req.EmailNotifications
	}
	if req.PushNotifications != nil {
		prefs.PushNotifications = *req.PushNotifications
	}
	if req.SoundEffects != nil {
		prefs.SoundEffects = *req.SoundEffects
	}
	if req.WeeklyGoal != nil {
		prefs.WeeklyGoal = *req.WeeklyGoal
	}
	st.Set(ctx, store.PreferencesKey(userID), prefs)
	return prefs
}
