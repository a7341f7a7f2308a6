// Package search implements the role-scoped catalog lookup and per-user search
// history.
package search

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/store"
)

const (
	MinQueryLength = 2
	recentLimit    = 5
)

// Search returns catalog entries for role that contain query in their title,
// description, category or type. Exact title matches rank first, then title
// prefixes, then everything else in catalog order.
func Search(query, role string) []models.SearchEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) < MinQueryLength {
		return []models.SearchEntry{}
	}

	var exact, prefix, rest []models.SearchEntry
	for _, e := range Entries(role) {
		title := strings.ToLower(e.Title)
		switch {
		case title == q:
			exact = append(exact, e)
		case strings.HasPrefix(title, q):
			prefix = append(prefix, e)
		case strings.Contains(title, q),
			strings.Contains(strings.ToLower(e.Description), q),
			strings.Contains(strings.ToLower(e.Category), q),
			strings.Contains(strings.ToLower(e.Type), q):
			rest = append(rest, e)
		}
	}

	out := make([]models.SearchEntry, 0, len(exact)+len(prefix)+len(rest))
	out = append(out, exact...)
	out = append(out, prefix...)
	return append(out, rest...)
}

func GetPopularSearches() []string {
	out := make([]string, len(popularSearches))
	copy(out, popularSearches)
	return out
}

// History keeps each user's recent queries in the store.
type History struct {
	store *store.Store
	log   *logger.Logger

	// mu serializes read-modify-write of the recent lists.
	mu sync.Mutex
}

func NewHistory(st *store.Store, log *logger.Logger) *History {
	if log == nil {
		log = logger.Nop()
	}
	return &History{store: st, log: log.With("component", "SearchIndex")}
}

func (h *History) GetRecentSearches(ctx context.Context, userID string) []string {
	return store.Get(ctx, h.store, store.RecentSearchesKey(userID), []string{})
}

// AddToRecentSearches moves query to the front, dropping duplicates and
// anything past the fifth entry.
func (h *History) AddToRecentSearches(ctx context.Context, userID, query string) []string {
	query = strings.TrimSpace(query)

	h.mu.Lock()
	defer h.mu.Unlock()

	recent := h.GetRecentSearches(ctx, userID)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return recent
	}

	next := make([]string, 0, recentLimit)
	next = append(next, query)
	for _, r := range recent {
		if len(next) == recentLimit {
			break
		}
		if !strings.EqualFold(r, query) {
			next = append(next, r)
		}
	}

	if !h.store.Set(ctx, store.RecentSearchesKey(userID), next) {
		h.log.Warn("failed to persist recent searches", "user_id", userID)
	}
	return next
}

func (h *History) ClearRecentSearches(ctx context.Context, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store.Remove(ctx, store.RecentSearchesKey(userID))
}
