package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"studyspot-backend/internal/clock"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/remote"
	"studyspot-backend/internal/simulation"
	"studyspot-backend/internal/store"
)

var (
	localSession  = &middleware.Session{User: models.User{ID: "u1", FullName: "Alex", Role: models.RoleStudent}, Token: "demo_abc", Local: true}
	remoteSession = &middleware.Session{User: models.User{ID: "r1", FullName: "Riley", Role: models.RoleStudent}, Token: "backend-token"}
)

type fakeBackend struct {
	srv         *httptest.Server
	healthy     atomic.Bool
	healthCalls atomic.Int32
	lastAuth    atomic.Value
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	b.healthy.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		b.healthCalls.Add(1)
		if !b.healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/homework", func(w http.ResponseWriter, r *http.Request) {
		b.lastAuth.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]models.HomeworkItem{{ID: "remote-1", Title: "Remote essay", Status: models.StatusPending}})
	})
	mux.HandleFunc("/api/v1/homework/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/v1/gamification/profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: models.APIError{Code: "INTERNAL_ERROR", Message: "boom"}})
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func newResolver(t *testing.T, client *remote.Client) (*Resolver, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	st := store.New(store.NewMemoryMedium(0), "test_", logger.Nop())
	registry := simulation.NewRegistry(context.Background(), st, simulation.WithClock(fake))
	return NewResolver(registry, client, WithClock(fake), WithProbeInterval(30*time.Second)), fake
}

func TestMode(t *testing.T) {
	backend := newFakeBackend(t)

	tests := []struct {
		name    string
		client  bool
		healthy bool
		sess    *middleware.Session
		want    Mode
	}{
		{"no backend configured", false, true, remoteSession, ModeLocal},
		{"local token", true, true, localSession, ModeLocal},
		{"local prefix without flag", true, true, &middleware.Session{Token: "demo_xyz"}, ModeLocal},
		{"remote token healthy backend", true, true, remoteSession, ModeRemote},
		{"remote token unhealthy backend", true, false, remoteSession, ModeLocal},
		{"no session", true, true, nil, ModeLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend.healthy.Store(tt.healthy)
			var client *remote.Client
			if tt.client {
				client = remote.New(backend.srv.URL, time.Second)
			}
			r, _ := newResolver(t, client)
			if got := r.Mode(context.Background(), tt.sess); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMode_ProbeIsCached(t *testing.T) {
	backend := newFakeBackend(t)
	r, fake := newResolver(t, remote.New(backend.srv.URL, time.Second))
	ctx := context.Background()

	backend.healthy.Store(false)
	for i := 0; i < 5; i++ {
		if r.Mode(ctx, remoteSession) != ModeLocal {
			t.Fatal("expected local while backend is down")
		}
	}
	if n := backend.healthCalls.Load(); n != 1 {
		t.Fatalf("expected one probe within the interval, got %d", n)
	}

	backend.healthy.Store(true)
	if r.Mode(ctx, remoteSession) != ModeLocal {
		t.Fatal("expected cached unhealthy result before the interval passes")
	}

	fake.Advance(31 * time.Second)
	if r.Mode(ctx, remoteSession) != ModeRemote {
		t.Fatal("expected remote after re-probe")
	}

	backend.healthy.Store(false)
	r.Invalidate()
	if r.Mode(ctx, remoteSession) != ModeLocal {
		t.Fatal("expected invalidate to force a probe")
	}
}

func TestHomework_Remote(t *testing.T) {
	backend := newFakeBackend(t)
	r, _ := newResolver(t, remote.New(backend.srv.URL, time.Second))
	ctx := context.Background()

	src, mode := r.Homework(ctx, remoteSession)
	if mode != ModeRemote {
		t.Fatalf("expected remote mode, got %s", mode)
	}

	items, err := src.List(ctx)
	if err != nil || len(items) != 1 || items[0].ID != "remote-1" {
		t.Fatalf("unexpected list %+v, %v", items, err)
	}
	if auth, _ := backend.lastAuth.Load().(string); auth != "Bearer backend-token" {
		t.Fatalf("expected bearer token to be forwarded, got %q", auth)
	}

	item, err := src.Get(ctx, "missing")
	if err != nil || item != nil {
		t.Fatalf("expected nil for a remote 404, got %+v, %v", item, err)
	}
}

func TestGamification_RemoteErrorIsWrapped(t *testing.T) {
	backend := newFakeBackend(t)
	r, _ := newResolver(t, remote.New(backend.srv.URL, time.Second))

	src, _ := r.Gamification(context.Background(), remoteSession)
	_, err := src.Profile(context.Background())

	var remoteErr *remote.Error
	if !errors.As(err, &remoteErr) || remoteErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected wrapped remote error, got %v", err)
	}
}

func TestHomework_LocalPresentsOverdue(t *testing.T) {
	r, fake := newResolver(t, nil)
	ctx := context.Background()

	src, mode := r.Homework(ctx, localSession)
	if mode != ModeLocal {
		t.Fatalf("expected local mode, got %s", mode)
	}

	created, _ := src.Create(ctx, models.CreateHomeworkRequest{Subject: "Math", Title: "Fractions", DueDate: fake.Now().Add(time.Hour)})
	fake.Advance(2 * time.Hour)

	got, _ := src.Get(ctx, created.ID)
	if got.Status != models.StatusOverdue {
		t.Fatalf("expected overdue presentation, got %s", got.Status)
	}
	stored := r.Workspace(ctx, localSession).Homework.GetByID(ctx, created.ID)
	if stored.Status != models.StatusPending {
		t.Fatalf("expected stored status to stay pending, got %s", stored.Status)
	}

	if missing, err := src.Get(ctx, "nope"); missing != nil || err != nil {
		t.Fatalf("expected nil for unknown id, got %+v, %v", missing, err)
	}
}

func TestGamification_LocalRedeem(t *testing.T) {
	r, _ := newResolver(t, nil)
	ctx := context.Background()
	src, _ := r.Gamification(ctx, localSession)

	if res, err := src.Redeem(ctx, "no-such-reward"); res != nil || err != nil {
		t.Fatalf("expected nil for unknown reward, got %+v, %v", res, err)
	}
	if _, err := src.Redeem(ctx, "extra-break"); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}

	r.Workspace(ctx, localSession).Engine.AwardPoints(ctx, 120, "test")

	res, err := src.Redeem(ctx, "extra-break")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if res.Reward.Available || res.Profile.TotalPoints != 70 {
		t.Fatalf("unexpected redeem result %+v", res)
	}

	if _, err := src.Redeem(ctx, "extra-break"); !errors.Is(err, ErrAlreadyRedeemed) {
		t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
	}
}

func TestMessages_Local(t *testing.T) {
	r, _ := newResolver(t, nil)
	ctx := context.Background()

	src, _ := r.Messages(ctx, localSession)
	msg, err := src.Send(ctx, models.SendMessageRequest{ReceiverID: "t1", ReceiverName: "Ms. Rivera", ReceiverRole: models.RoleTeacher, Content: "hello"})
	if err != nil || msg.SenderID != "u1" {
		t.Fatalf("unexpected send %+v, %v", msg, err)
	}

	teacher := &middleware.Session{User: models.User{ID: "t1", FullName: "Ms. Rivera", Role: models.RoleTeacher}, Token: "demo_t", Local: true}
	tsrc, _ := r.Messages(ctx, teacher)
	if n, _ := tsrc.UnreadCount(ctx); n != 1 {
		t.Fatalf("expected one unread for the receiver, got %d", n)
	}
	if ok, _ := src.MarkRead(ctx, msg.ID); ok {
		t.Fatal("expected sender to be unable to mark read")
	}
	if ok, _ := tsrc.MarkRead(ctx, msg.ID); !ok {
		t.Fatal("expected receiver to mark read")
	}
}
