package store

import "context"

// SchemaVersion tags the layout of persisted values. Bump it when a value shape
// changes incompatibly.
const SchemaVersion = 1

// Key layout. Every module owns a disjoint set of keys.
const (
	KeySchemaVersion = "schema_version"
	KeyDemoHomework  = "demo_homework"
	KeyDemoMessages  = "demo_messages"
	KeyAccounts      = "accounts"
)

func HomeworkKey(userID string) string       { return "homework_" + userID }
func QuizResultsKey(userID string) string    { return "quiz_results_" + userID }
func StudySessionsKey(userID string) string  { return "study_sessions_" + userID }
func AchievementsKey(userID string) string   { return "achievements_" + userID }
func StatsKey(userID string) string          { return "stats_" + userID }
func PreferencesKey(userID string) string    { return "preferences_" + userID }
func NotificationsKey(userID string) string  { return "notifications_" + userID }
func RecentSearchesKey(userID string) string { return "recent_searches_" + userID }
func RemindersKey(userID string) string      { return "reminders_" + userID }

// EnsureSchema records the current schema version and returns the version that
// was stored before (0 for a fresh namespace).
func (s *Store) EnsureSchema(ctx context.Context) int {
	previous := Get(ctx, s, KeySchemaVersion, 0)
	if previous != SchemaVersion {
		s.Set(ctx, KeySchemaVersion, SchemaVersion)
	}
	return previous
}
