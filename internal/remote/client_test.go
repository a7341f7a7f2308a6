package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studyspot-backend/internal/models"
)

func TestClient_SendsBearerAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/api/v1/homework" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]models.HomeworkItem{{ID: "h1", Title: "Essay"}})
	}))
	defer srv.Close()

	items, err := New(srv.URL+"/", time.Second).ListHomework(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("ListHomework: %v", err)
	}
	if len(items) != 1 || items[0].ID != "h1" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestClient_PostsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing JSON content type")
		}
		var req models.SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Message{ID: "m1", ReceiverID: req.ReceiverID, Content: req.Content})
	}))
	defer srv.Close()

	msg, err := New(srv.URL, time.Second).SendMessage(context.Background(), "t", models.SendMessageRequest{ReceiverID: "b", Content: "hello"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.ID != "m1" || msg.ReceiverID != "b" || msg.Content != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		notFound bool
	}{
		{"not found", http.StatusNotFound, `{}`, "", true},
		{"envelope", http.StatusConflict, `{"error":{"code":"CONFLICT","message":"nope"}}`, "CONFLICT", false},
		{"garbage body", http.StatusBadGateway, `<html>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).GetHomework(context.Background(), "t", "x")
			if tt.notFound {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
				return
			}
			var remoteErr *Error
			if !errors.As(err, &remoteErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if remoteErr.Status != tt.status || remoteErr.Code != tt.wantCode {
				t.Fatalf("unexpected error: %+v", remoteErr)
			}
		})
	}
}

func TestClient_Health(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer healthy.Close()

	if err := New(healthy.URL, time.Second).Health(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	down.Close()

	if err := New(down.URL, 200*time.Millisecond).Health(context.Background()); err == nil {
		t.Fatalf("expected error from closed server")
	}
}

func TestClient_PathEscaping(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(map[string]bool{"updated": true})
	}))
	defer srv.Close()

	ok, err := New(srv.URL, time.Second).MarkRead(context.Background(), "t", "a/b")
	if err != nil || !ok {
		t.Fatalf("MarkRead: %v %v", ok, err)
	}
	if gotPath != "/api/v1/messages/a%2Fb/read" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}
