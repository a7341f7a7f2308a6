package messaging

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/store"
)

var (
	alice  = Participant{ID: "a", Name: "Alice", Role: models.RoleStudent}
	bob    = Participant{ID: "b", Name: "Bob", Role: models.RoleParent}
	carol  = Participant{ID: "c", Name: "Carol", Role: models.RoleTeacher}
	origin = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
)

func newCenter(t *testing.T) (*Center, *clock.Fake, *store.Store) {
	t.Helper()
	st := store.New(store.NewMemoryMedium(0), "test_", nil)
	clk := clock.NewFake(origin)
	return NewCenter(context.Background(), st, WithClock(clk)), clk, st
}

func send(ctx context.Context, from *Mailbox, to Participant, content string) models.Message {
	return from.SendMessage(ctx, to.ID, content, to.Name, to.Role)
}

func TestHelloScenario(t *testing.T) {
	c, _, _ := newCenter(t)
	ctx := context.Background()
	a, b := c.Mailbox(alice), c.Mailbox(bob)

	msg := send(ctx, a, bob, "hello")
	if msg.Read || msg.SenderID != "a" || msg.ReceiverID != "b" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	convs := b.GetConversations(ctx)
	if len(convs) != 1 {
		t.Fatalf("expected one conversation, got %d", len(convs))
	}
	if convs[0].UserID != "a" || convs[0].LastMessage != "hello" || convs[0].UnreadCount != 1 {
		t.Fatalf("unexpected conversation: %+v", convs[0])
	}
	if b.GetUnreadCount(ctx) != 1 {
		t.Fatalf("expected one unread message for Bob")
	}

	thread := b.GetMessages(ctx, "a")
	if len(thread) != 1 || !thread[0].Read {
		t.Fatalf("expected thread auto-read, got %+v", thread)
	}

	if got := b.GetConversations(ctx)[0].UnreadCount; got != 0 {
		t.Fatalf("expected unread 0 after opening thread, got %d", got)
	}

	// Alice's own view never counts her sent messages as unread.
	if got := a.GetConversations(ctx)[0].UnreadCount; got != 0 {
		t.Fatalf("sender should have no unread, got %d", got)
	}
}

func TestConversationsOrderingAndGrouping(t *testing.T) {
	c, clk, _ := newCenter(t)
	ctx := context.Background()
	a, b, cc := c.Mailbox(alice), c.Mailbox(bob), c.Mailbox(carol)

	send(ctx, b, alice, "from bob 1")
	clk.Advance(time.Minute)
	send(ctx, cc, alice, "from carol")
	clk.Advance(time.Minute)
	send(ctx, a, bob, "reply to bob")

	convs := a.GetConversations(ctx)
	if len(convs) != 2 {
		t.Fatalf("expected two conversations, got %d", len(convs))
	}
	if convs[0].UserID != "b" || convs[0].LastMessage != "reply to bob" || convs[0].UserName != "Bob" {
		t.Fatalf("expected Bob first with latest reply, got %+v", convs[0])
	}
	if convs[1].UserID != "c" || convs[1].UnreadCount != 1 {
		t.Fatalf("expected Carol second with one unread, got %+v", convs[1])
	}
	if convs[0].UnreadCount != 1 {
		t.Fatalf("Bob's unread message should still count, got %d", convs[0].UnreadCount)
	}
}

func TestGetConversationsIsPure(t *testing.T) {
	c, clk, _ := newCenter(t)
	ctx := context.Background()
	a, b := c.Mailbox(alice), c.Mailbox(bob)

	send(ctx, a, bob, "one")
	clk.Advance(time.Second)
	send(ctx, b, alice, "two")

	first := a.GetConversations(ctx)
	second := a.GetConversations(ctx)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("conversation view changed without log changes:\n%+v\n%+v", first, second)
	}
	if a.GetUnreadCount(ctx) != 1 {
		t.Fatalf("GetConversations must not mark messages read")
	}
}

func TestUnreadMatchesLog(t *testing.T) {
	c, clk, _ := newCenter(t)
	ctx := context.Background()
	a, b, cc := c.Mailbox(alice), c.Mailbox(bob), c.Mailbox(carol)

	for i := 0; i < 3; i++ {
		send(ctx, b, alice, "ping")
		clk.Advance(time.Second)
	}
	send(ctx, cc, alice, "hey")
	last := send(ctx, b, alice, "last")
	a.MarkAsRead(ctx, last.ID)

	for _, conv := range a.GetConversations(ctx) {
		want := 0
		for _, msg := range c.messages {
			if msg.ReceiverID == "a" && msg.SenderID == conv.UserID && !msg.Read {
				want++
			}
		}
		if conv.UnreadCount != want {
			t.Fatalf("conversation %s: unread %d, log says %d", conv.UserID, conv.UnreadCount, want)
		}
	}
}

func TestMarkAsRead(t *testing.T) {
	c, _, _ := newCenter(t)
	ctx := context.Background()
	a, b := c.Mailbox(alice), c.Mailbox(bob)

	msg := send(ctx, a, bob, "note")

	if a.MarkAsRead(ctx, msg.ID) {
		t.Fatalf("sender must not be able to mark the receiver's message read")
	}
	if !b.MarkAsRead(ctx, msg.ID) {
		t.Fatalf("receiver should mark the message read")
	}
	if b.MarkAsRead(ctx, msg.ID) {
		t.Fatalf("already-read message should be a no-op")
	}
	if b.MarkAsRead(ctx, "unknown") {
		t.Fatalf("unknown id should be a no-op")
	}
}

func TestGetMessagesThreadOnly(t *testing.T) {
	c, clk, _ := newCenter(t)
	ctx := context.Background()
	a, b, cc := c.Mailbox(alice), c.Mailbox(bob), c.Mailbox(carol)

	send(ctx, a, bob, "1")
	clk.Advance(time.Second)
	send(ctx, cc, alice, "not in thread")
	clk.Advance(time.Second)
	send(ctx, b, alice, "2")

	thread := a.GetMessages(ctx, "b")
	if len(thread) != 2 || thread[0].Content != "1" || thread[1].Content != "2" {
		t.Fatalf("unexpected thread: %+v", thread)
	}
	if a.GetUnreadCount(ctx) != 1 {
		t.Fatalf("Carol's message must stay unread")
	}
	if empty := a.GetMessages(ctx, "nobody"); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil thread")
	}
}

func TestPersistenceAcrossCenters(t *testing.T) {
	c, _, st := newCenter(t)
	ctx := context.Background()
	send(ctx, c.Mailbox(alice), bob, "persisted")

	other := NewCenter(ctx, st)
	if got := other.Mailbox(bob).GetUnreadCount(ctx); got != 1 {
		t.Fatalf("expected log to be shared via the store, got %d unread", got)
	}

	c.Mailbox(bob).GetMessages(ctx, "a")
	if !other.Reload(ctx) {
		t.Fatalf("expected reload to see the read flag change")
	}
	if got := other.Mailbox(bob).GetUnreadCount(ctx); got != 0 {
		t.Fatalf("expected 0 unread after reload, got %d", got)
	}
}

// hookMedium runs afterRead once, right after a read of the message log
// returns, skipping the first skip reads. Reload reads the log twice: a
// presence check, then the value.
type hookMedium struct {
	*store.MemoryMedium
	skip      int
	afterRead func()
}

func (m *hookMedium) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := m.MemoryMedium.Get(ctx, key)
	if m.afterRead != nil && strings.HasSuffix(key, store.KeyDemoMessages) {
		if m.skip > 0 {
			m.skip--
		} else {
			fn := m.afterRead
			m.afterRead = nil
			fn()
		}
	}
	return data, ok, err
}

func newHookedCenter(t *testing.T) (*Center, *hookMedium, *store.Store) {
	t.Helper()
	medium := &hookMedium{MemoryMedium: store.NewMemoryMedium(0)}
	st := store.New(medium, "test_", nil)
	return NewCenter(context.Background(), st, WithClock(clock.NewFake(origin))), medium, st
}

func TestReload_KeepsMessageSentDuringRead(t *testing.T) {
	c, medium, st := newHookedCenter(t)
	ctx := context.Background()
	a, b := c.Mailbox(alice), c.Mailbox(bob)

	send(ctx, a, bob, "first")
	medium.skip = 1
	medium.afterRead = func() { send(ctx, a, bob, "second") }

	c.Reload(ctx)

	convs := b.GetConversations(ctx)
	if len(convs) != 1 || convs[0].LastMessage != "second" || convs[0].UnreadCount != 2 {
		t.Fatalf("expected both messages after reload, got %+v", convs)
	}
	if got := NewCenter(ctx, st).Mailbox(bob).GetUnreadCount(ctx); got != 2 {
		t.Fatalf("expected both messages persisted, got %d unread", got)
	}
}

func TestReload_ReadFlagNeverReverts(t *testing.T) {
	c, medium, _ := newHookedCenter(t)
	ctx := context.Background()
	a, b := c.Mailbox(alice), c.Mailbox(bob)

	send(ctx, a, bob, "hello")
	medium.skip = 1
	medium.afterRead = func() { b.GetMessages(ctx, alice.ID) }

	c.Reload(ctx)

	if got := b.GetUnreadCount(ctx); got != 0 {
		t.Fatalf("message read during reload came back unread: %d unread", got)
	}
}

func TestReload_MergesConcurrentWriters(t *testing.T) {
	first, _, st := newCenter(t)
	ctx := context.Background()
	second := NewCenter(ctx, st)

	send(ctx, first.Mailbox(alice), bob, "x")
	second.Reload(ctx)
	send(ctx, second.Mailbox(carol), bob, "y")
	// first has not seen y; its write replaces the stored log.
	send(ctx, first.Mailbox(alice), bob, "z")

	if !second.Reload(ctx) {
		t.Fatalf("expected second to pick up z")
	}
	if !first.Reload(ctx) {
		t.Fatalf("expected first to pick up y from the merged log")
	}
	for name, c := range map[string]*Center{"first": first, "second": second} {
		if got := c.Mailbox(bob).GetUnreadCount(ctx); got != 3 {
			t.Errorf("%s: expected 3 unread after merge, got %d", name, got)
		}
	}
}

func TestSubscribe(t *testing.T) {
	c, _, _ := newCenter(t)
	ctx := context.Background()

	var got []string
	unsubscribe := c.Subscribe(func(m models.Message) { got = append(got, m.Content) })
	send(ctx, c.Mailbox(alice), bob, "first")
	unsubscribe()
	send(ctx, c.Mailbox(alice), bob, "second")

	if len(got) != 1 || got[0] != "first" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}
