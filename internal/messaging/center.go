// Package messaging keeps the shared message log and derives per-user
// conversation views from it.
package messaging

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/store"
)

type Participant struct {
	ID   string
	Name string
	Role string
}

type Listener func(models.Message)

// Center owns the message log shared by every mailbox.
type Center struct {
	mu       sync.Mutex
	store    *store.Store
	clock    clock.Clock
	log      *logger.Logger
	messages []models.Message

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

type Option func(*Center)

func WithClock(c clock.Clock) Option { return func(m *Center) { m.clock = c } }

func WithLogger(l *logger.Logger) Option { return func(m *Center) { m.log = l } }

func NewCenter(ctx context.Context, st *store.Store, opts ...Option) *Center {
	c := &Center{
		store:     st,
		clock:     clock.Real{},
		log:       logger.Nop(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "MessageCenter")
	c.messages = store.Get(ctx, st, store.KeyDemoMessages, []models.Message{})
	return c
}

// Mailbox binds self to the center.
func (c *Center) Mailbox(self Participant) *Mailbox {
	return &Mailbox{center: c, self: self}
}

func (c *Center) persist(ctx context.Context) {
	if !c.store.Set(ctx, store.KeyDemoMessages, c.messages) {
		c.log.Warn("failed to persist message log, keeping in-memory state", "messages", len(c.messages))
	}
}

// Reload merges messages written by another process into the log. The merge
// never drops a message or unreads one: loaded messages keep their order,
// messages only known here are appended, and Read is set if either side has
// it. A merged log the store lacks is written back.
func (c *Center) Reload(ctx context.Context) bool {
	if !c.store.Has(ctx, store.KeyDemoMessages) {
		return false
	}
	loaded := store.Get(ctx, c.store, store.KeyDemoMessages, []models.Message{})

	c.mu.Lock()
	defer c.mu.Unlock()

	merged := mergeLog(loaded, c.messages)
	changed := !sameLog(c.messages, merged)
	c.messages = merged
	if !sameLog(merged, loaded) {
		c.persist(ctx)
	}
	return changed
}

func mergeLog(loaded, local []models.Message) []models.Message {
	read := make(map[string]bool, len(local))
	for _, msg := range local {
		read[msg.ID] = msg.Read
	}

	merged := make([]models.Message, 0, len(loaded)+len(local))
	seen := make(map[string]bool, len(loaded))
	for _, msg := range loaded {
		if seen[msg.ID] {
			continue
		}
		seen[msg.ID] = true
		msg.Read = msg.Read || read[msg.ID]
		merged = append(merged, msg)
	}
	for _, msg := range local {
		if !seen[msg.ID] {
			seen[msg.ID] = true
			merged = append(merged, msg)
		}
	}
	return merged
}

func sameLog(a, b []models.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Read != b[i].Read {
			return false
		}
	}
	return true
}

// Subscribe registers l for every appended message.
func (c *Center) Subscribe(l Listener) func() {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.lmu.Unlock()

	return func() {
		c.lmu.Lock()
		delete(c.listeners, id)
		c.lmu.Unlock()
	}
}

func (c *Center) emit(msg models.Message) {
	c.lmu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.lmu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("message listener panicked", "panic", r)
				}
			}()
			l(msg)
		}()
	}
}

type Mailbox struct {
	center *Center
	self   Participant
}

func (m *Mailbox) Self() Participant { return m.self }

func (m *Mailbox) SendMessage(ctx context.Context, receiverID, content, receiverName, receiverRole string) models.Message {
	c := m.center
	c.mu.Lock()
	msg := models.Message{
		ID:           uuid.NewString(),
		SenderID:     m.self.ID,
		SenderName:   m.self.Name,
		SenderRole:   m.self.Role,
		ReceiverID:   receiverID,
		ReceiverName: receiverName,
		ReceiverRole: receiverRole,
		Content:      content,
		Timestamp:    c.clock.Now(),
	}
	c.messages = append(c.messages, msg)
	c.persist(ctx)
	c.mu.Unlock()

	c.emit(msg)
	return msg
}

func (m *Mailbox) inThread(msg models.Message, counterpartID string) bool {
	return (msg.SenderID == m.self.ID && msg.ReceiverID == counterpartID) ||
		(msg.SenderID == counterpartID && msg.ReceiverID == m.self.ID)
}

// GetMessages returns the thread with counterpartID in chronological order and
// marks everything self received from the counterpart as read.
func (m *Mailbox) GetMessages(ctx context.Context, counterpartID string) []models.Message {
	c := m.center
	c.mu.Lock()
	defer c.mu.Unlock()

	thread := make([]models.Message, 0)
	changed := false
	for i := range c.messages {
		msg := &c.messages[i]
		if !m.inThread(*msg, counterpartID) {
			continue
		}
		if msg.ReceiverID == m.self.ID && !msg.Read {
			msg.Read = true
			changed = true
		}
		thread = append(thread, *msg)
	}
	if changed {
		c.persist(ctx)
	}

	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].Timestamp.Before(thread[j].Timestamp)
	})
	return thread
}

// GetConversations rebuilds the conversation list from the log in one pass.
// Ordered by last message time, newest first.
func (m *Mailbox) GetConversations(ctx context.Context) []models.Conversation {
	c := m.center
	c.mu.Lock()
	defer c.mu.Unlock()

	index := make(map[string]int)
	var convs []models.Conversation

	for _, msg := range c.messages {
		var counterpart Participant
		switch m.self.ID {
		case msg.SenderID:
			counterpart = Participant{ID: msg.ReceiverID, Name: msg.ReceiverName, Role: msg.ReceiverRole}
		case msg.ReceiverID:
			counterpart = Participant{ID: msg.SenderID, Name: msg.SenderName, Role: msg.SenderRole}
		default:
			continue
		}

		i, ok := index[counterpart.ID]
		if !ok {
			i = len(convs)
			index[counterpart.ID] = i
			convs = append(convs, models.Conversation{UserID: counterpart.ID})
		}
		conv := &convs[i]
		if !ok || !msg.Timestamp.Before(conv.LastMessageTime) {
			conv.UserName = counterpart.Name
			conv.UserRole = counterpart.Role
			conv.LastMessage = msg.Content
			conv.LastMessageTime = msg.Timestamp
		}
		if msg.ReceiverID == m.self.ID && !msg.Read {
			conv.UnreadCount++
		}
	}

	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastMessageTime.After(convs[j].LastMessageTime)
	})
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs
}

// MarkAsRead flips a message self received to read. Unknown ids, messages for
// someone else and already-read messages are no-ops and report false.
func (m *Mailbox) MarkAsRead(ctx context.Context, messageID string) bool {
	c := m.center
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.messages {
		msg := &c.messages[i]
		if msg.ID != messageID {
			continue
		}
		if msg.ReceiverID != m.self.ID || msg.Read {
			return false
		}
		msg.Read = true
		c.persist(ctx)
		return true
	}
	return false
}

func (m *Mailbox) GetUnreadCount(ctx context.Context) int {
	c := m.center
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, msg := range c.messages {
		if msg.ReceiverID == m.self.ID && !msg.Read {
			n++
		}
	}
	return n
}
