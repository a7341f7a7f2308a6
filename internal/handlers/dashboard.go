package handlers

import (
	"net/http"

	"studyspot-backend/internal/datasource"
	"studyspot-backend/internal/homework"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
)

type DashboardHandler struct {
	resolver *datasource.Resolver
}

func NewDashboardHandler(resolver *datasource.Resolver) *DashboardHandler {
	return &DashboardHandler{resolver: resolver}
}

// Stats aggregates the caller's dashboard. Homework, points and messages come
// from whichever side serves the caller; quizzes, sessions and notifications
// are always local.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.GetSession(ctx)
	now := h.resolver.Registry().Clock().Now()

	hw, mode := h.resolver.Homework(ctx, sess)
	setSource(w, mode)
	items, err := hw.List(ctx)
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}

	gm, mode := h.resolver.Gamification(ctx, sess)
	profile, err := gm.Profile(ctx)
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	badges, err := gm.Badges(ctx)
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}

	msgs, mode := h.resolver.Messages(ctx, sess)
	unread, err := msgs.UnreadCount(ctx)
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}

	ws := h.resolver.Workspace(ctx, sess)
	quizzes, avg := ws.Progress.QuizStats(ctx)

	earned := 0
	for _, b := range badges {
		if b.Earned {
			earned++
		}
	}

	writeJSON(w, http.StatusOK, models.DashboardStats{
		Profile:            profile,
		Homework:           homework.Summary(items, now),
		QuizzesTaken:       quizzes,
		AverageQuizScore:   avg,
		WeeklyStudyMinutes: ws.Progress.WeeklyMinutes(now),
		BadgesEarned:       earned,
		UnreadMessages:     unread,
		UnreadNotices:      ws.Feed.UnreadCount(ctx),
	})
}
