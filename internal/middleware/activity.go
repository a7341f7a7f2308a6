package middleware

import (
	"net/http"

	"studyspot-backend/internal/presence"
)

// Activity records every authenticated request as presence activity. Users the
// tracker has dropped are logged back in.
func Activity(tracker *presence.Tracker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Touch(tracker, GetSession(r.Context()))
			next.ServeHTTP(w, r)
		})
	}
}

// Touch marks the session's user active, re-registering them if needed.
func Touch(tracker *presence.Tracker, sess *Session) {
	if tracker == nil || sess == nil {
		return
	}
	if tracker.UpdateUserActivity(sess.User.ID) {
		return
	}
	tracker.UserLoggedIn(presence.User{
		ID:    sess.User.ID,
		Name:  sess.User.FullName,
		Email: sess.User.Email,
		Role:  sess.User.Role,
	})
}
