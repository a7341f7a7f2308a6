package presence

import (
	"sync/atomic"
	"testing"
	"time"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/models"
)

var loginAt = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T) (*Tracker, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(loginAt)
	tr := NewTracker(WithClock(clk))
	t.Cleanup(tr.Destroy)
	return tr, clk
}

func statusOf(tr *Tracker, id string) string {
	for _, rec := range tr.GetOnlineUsers() {
		if rec.ID == id {
			return rec.Status
		}
	}
	return ""
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		idle time.Duration
		want string
	}{
		{"fresh", 0, models.PresenceOnline},
		{"just under away", AwayAfter - time.Second, models.PresenceOnline},
		{"exactly away", AwayAfter, models.PresenceAway},
		{"just under removal", RemoveAfter - time.Second, models.PresenceAway},
		{"exactly removal", RemoveAfter, ""},
		{"long gone", time.Hour, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, clk := newTestTracker(t)
			tr.UserLoggedIn(User{ID: "u1", Name: "Ada", Role: models.RoleStudent})

			clk.Advance(tt.idle)
			tr.Sweep()

			if got := statusOf(tr, "u1"); got != tt.want {
				t.Fatalf("status after %s idle = %q, want %q", tt.idle, got, tt.want)
			}
		})
	}
}

func TestActivityResetsToOnline(t *testing.T) {
	tr, clk := newTestTracker(t)
	tr.UserLoggedIn(User{ID: "u1"})

	clk.Advance(3 * time.Minute)
	tr.Sweep()
	if statusOf(tr, "u1") != models.PresenceAway {
		t.Fatalf("expected away")
	}

	if !tr.UpdateUserActivity("u1") {
		t.Fatalf("expected tracked user")
	}
	if statusOf(tr, "u1") != models.PresenceOnline {
		t.Fatalf("activity should reset to online")
	}

	clk.Advance(9 * time.Minute)
	tr.Sweep()
	if statusOf(tr, "u1") != models.PresenceAway {
		t.Fatalf("expected away, not removed, 9 minutes after last activity")
	}
}

func TestSweepNotifiesOncePerChange(t *testing.T) {
	tr, clk := newTestTracker(t)
	tr.UserLoggedIn(User{ID: "u1"})
	tr.UserLoggedIn(User{ID: "u2"})

	var calls int32
	tr.Subscribe(func([]models.PresenceRecord) { atomic.AddInt32(&calls, 1) })

	if tr.Sweep() {
		t.Fatalf("nothing should change immediately after login")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("no-op sweep must not notify")
	}

	clk.Advance(AwayAfter)
	if !tr.Sweep() {
		t.Fatalf("expected both users to go away")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one notification for two changes, got %d", got)
	}

	tr.Sweep()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("repeat sweep with no change must not notify, got %d", got)
	}
}

func TestSweepPanicReleasesLock(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.mu.Lock()
	tr.records["broken"] = nil
	tr.mu.Unlock()

	if tr.Sweep() {
		t.Fatal("a panicking sweep must report no change")
	}

	acquired := make(chan struct{})
	go func() {
		tr.mu.Lock()
		delete(tr.records, "broken")
		tr.mu.Unlock()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("tracker lock still held after a panicking sweep")
	}

	tr.UserLoggedIn(User{ID: "u1", Name: "Ada", Role: models.RoleStudent})
	if got := statusOf(tr, "u1"); got != models.PresenceOnline {
		t.Fatalf("status after recovery = %q, want online", got)
	}
}

func TestReloginOverwrites(t *testing.T) {
	tr, clk := newTestTracker(t)
	tr.UserLoggedIn(User{ID: "u1", Name: "Old"})
	tr.UpdateCurrentPage("u1", "/homework")

	clk.Advance(5 * time.Minute)
	tr.UserLoggedIn(User{ID: "u1", Name: "New"})

	users := tr.GetOnlineUsers()
	if len(users) != 1 {
		t.Fatalf("expected one record, got %d", len(users))
	}
	rec := users[0]
	if rec.Name != "New" || rec.CurrentPage != "" || !rec.LoginTime.Equal(loginAt.Add(5*time.Minute)) {
		t.Fatalf("expected fresh record, got %+v", rec)
	}
}

func TestLogout(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.UserLoggedIn(User{ID: "u1"})

	var calls int
	tr.Subscribe(func([]models.PresenceRecord) { calls++ })

	tr.UserLoggedOut("ghost")
	if calls != 0 {
		t.Fatalf("logout of untracked id should be silent")
	}
	tr.UserLoggedOut("u1")
	if calls != 1 || len(tr.GetOnlineUsers()) != 0 {
		t.Fatalf("expected removal and one notification")
	}
	if tr.UpdateUserActivity("u1") {
		t.Fatalf("activity for a logged-out user should report false")
	}
}

func TestUpdateCurrentPage(t *testing.T) {
	tr, clk := newTestTracker(t)
	tr.UserLoggedIn(User{ID: "u1"})
	clk.Advance(time.Minute)

	if !tr.UpdateCurrentPage("u1", "/quizzes") {
		t.Fatalf("expected tracked user")
	}
	rec := tr.GetOnlineUsers()[0]
	if rec.CurrentPage != "/quizzes" || !rec.LastSeen.Equal(loginAt.Add(time.Minute)) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if tr.UpdateCurrentPage("nobody", "/x") {
		t.Fatalf("unknown user should report false")
	}
}

func TestListenerPanicDoesNotStopOthers(t *testing.T) {
	tr, clk := newTestTracker(t)
	tr.UserLoggedIn(User{ID: "u1"})

	var healthy int
	tr.Subscribe(func([]models.PresenceRecord) { panic("bad listener") })
	tr.Subscribe(func([]models.PresenceRecord) { healthy++ })

	clk.Advance(AwayAfter)
	if !tr.Sweep() {
		t.Fatalf("expected change")
	}
	if healthy != 1 {
		t.Fatalf("expected healthy listener called once, got %d", healthy)
	}
}

func TestUnsubscribe(t *testing.T) {
	tr, _ := newTestTracker(t)
	var calls int
	unsubscribe := tr.Subscribe(func([]models.PresenceRecord) { calls++ })
	unsubscribe()

	tr.UserLoggedIn(User{ID: "u1"})
	if calls != 0 {
		t.Fatalf("unsubscribed listener was called")
	}
}

func TestStartStop(t *testing.T) {
	tr := NewTracker(WithSweepInterval(5 * time.Millisecond))
	tr.Start()
	tr.Start()
	tr.Stop()
	tr.Stop()
}

func TestDefaultLifecycle(t *testing.T) {
	Destroy()
	t.Cleanup(Destroy)

	a := Default(WithSweepInterval(time.Hour))
	if Default() != a {
		t.Fatalf("expected the same instance on repeat access")
	}
	a.UserLoggedIn(User{ID: "u1"})

	Destroy()
	b := Default(WithSweepInterval(time.Hour))
	if b == a {
		t.Fatalf("expected a fresh instance after Destroy")
	}
	if len(b.GetOnlineUsers()) != 0 {
		t.Fatalf("fresh tracker should be empty")
	}
}
