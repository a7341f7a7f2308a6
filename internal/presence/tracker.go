// Package presence tracks which users are active right now. State is
// process-local memory and is never persisted.
package presence

import (
	"sort"
	"sync"
	"time"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/models"
)

const (
	AwayAfter            = 2 * time.Minute
	RemoveAfter          = 10 * time.Minute
	DefaultSweepInterval = 30 * time.Second
)

type User struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// Listener receives the online list after every change.
type Listener func(online []models.PresenceRecord)

type Tracker struct {
	mu       sync.Mutex
	records  map[string]*models.PresenceRecord
	clock    clock.Clock
	log      *logger.Logger
	interval time.Duration

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int

	runMu    sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

type Option func(*Tracker)

func WithClock(c clock.Clock) Option { return func(t *Tracker) { t.clock = c } }

func WithLogger(l *logger.Logger) Option { return func(t *Tracker) { t.log = l } }

func WithSweepInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// NewTracker returns a stopped tracker; call Start to run the sweep.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		records:   make(map[string]*models.PresenceRecord),
		clock:     clock.Real{},
		log:       logger.Nop(),
		interval:  DefaultSweepInterval,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("component", "PresenceTracker")
	return t
}

func (t *Tracker) UserLoggedIn(u User) {
	now := t.clock.Now()
	t.mu.Lock()
	t.records[u.ID] = &models.PresenceRecord{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Status:    models.PresenceOnline,
		LastSeen:  now,
		LoginTime: now,
	}
	t.mu.Unlock()

	t.notify()
}

// UserLoggedOut drops the record. Unknown ids are ignored.
func (t *Tracker) UserLoggedOut(id string) {
	t.mu.Lock()
	_, ok := t.records[id]
	delete(t.records, id)
	t.mu.Unlock()

	if ok {
		t.notify()
	}
}

// UpdateUserActivity refreshes lastSeen and sets the user online. It reports
// false when the user is not tracked.
func (t *Tracker) UpdateUserActivity(id string) bool {
	t.mu.Lock()
	rec, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return false
	}
	rec.LastSeen = t.clock.Now()
	wasAway := rec.Status != models.PresenceOnline
	rec.Status = models.PresenceOnline
	t.mu.Unlock()

	if wasAway {
		t.notify()
	}
	return true
}

// UpdateCurrentPage records navigation, which also counts as activity.
func (t *Tracker) UpdateCurrentPage(id, page string) bool {
	t.mu.Lock()
	rec, ok := t.records[id]
	if ok {
		rec.CurrentPage = page
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	return t.UpdateUserActivity(id)
}

// GetOnlineUsers returns a snapshot ordered by login time.
func (t *Tracker) GetOnlineUsers() []models.PresenceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() []models.PresenceRecord {
	out := make([]models.PresenceRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LoginTime.Equal(out[j].LoginTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].LoginTime.Before(out[j].LoginTime)
	})
	return out
}

// Sweep ages every record and notifies subscribers once if anything changed.
func (t *Tracker) Sweep() (changed bool) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("presence sweep panicked", "panic", r)
			changed = false
		}
	}()

	changed = t.expire(t.clock.Now())
	if changed {
		t.notify()
	}
	return changed
}

// expire ages out records relative to now. The lock is released even if
// the loop panics.
func (t *Tracker) expire(now time.Time) (changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, rec := range t.records {
		idle := now.Sub(rec.LastSeen)
		switch {
		case idle >= RemoveAfter:
			delete(t.records, id)
			changed = true
		case idle >= AwayAfter && rec.Status != models.PresenceAway:
			rec.Status = models.PresenceAway
			changed = true
		}
	}
	return changed
}

// Subscribe registers l and returns a func that removes it.
func (t *Tracker) Subscribe(l Listener) func() {
	t.lmu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = l
	t.lmu.Unlock()

	return func() {
		t.lmu.Lock()
		delete(t.listeners, id)
		t.lmu.Unlock()
	}
}

func (t *Tracker) notify() {
	online := t.GetOnlineUsers()

	t.lmu.Lock()
	listeners := make([]Listener, 0, len(t.listeners))
	for _, l := range t.listeners {
		listeners = append(listeners, l)
	}
	t.lmu.Unlock()

	for _, l := range listeners {
		t.deliver(l, online)
	}
}

func (t *Tracker) deliver(l Listener, online []models.PresenceRecord) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("presence listener panicked", "panic", r)
		}
	}()
	l(online)
}

// Start runs the sweep on its interval until Stop. Calling Start twice is a
// no-op.
func (t *Tracker) Start() {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.stopChan != nil {
		return
	}
	t.stopChan = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(t.stopChan, t.done)
	t.log.Info("presence sweep started", "interval", t.interval.String())
}

func (t *Tracker) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

func (t *Tracker) Stop() {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.stopChan == nil {
		return
	}
	close(t.stopChan)
	<-t.done
	t.stopChan = nil
	t.done = nil
}

// Destroy stops the sweep and drops all listeners and records.
func (t *Tracker) Destroy() {
	t.Stop()

	t.lmu.Lock()
	t.listeners = make(map[int]Listener)
	t.lmu.Unlock()

	t.mu.Lock()
	t.records = make(map[string]*models.PresenceRecord)
	t.mu.Unlock()
}
