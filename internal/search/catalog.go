package search

import "studyspot-backend/internal/models"

var roleEntries = map[string][]models.SearchEntry{
	models.RoleStudent: {
		{ID: "student-homework", Title: "Homework", Description: "View and complete your assignments", Type: "page", URL: "/student/homework", Icon: "📚", Category: "Learning"},
		{ID: "student-quizzes", Title: "Quizzes", Description: "Practice with interactive quizzes", Type: "page", URL: "/student/quizzes", Icon: "📝", Category: "Learning"},
		{ID: "student-ai-help", Title: "AI Help", Description: "Ask the AI tutor a question", Type: "feature", URL: "/student/ai-help", Icon: "🤖", Category: "Learning"},
		{ID: "student-achievements", Title: "Achievements", Description: "Badges, points and rewards", Type: "page", URL: "/student/achievements", Icon: "🏆", Category: "Progress"},
		{ID: "student-progress", Title: "Progress", Description: "Track your study time and scores", Type: "page", URL: "/student/progress", Icon: "📈", Category: "Progress"},
		{ID: "student-messages", Title: "Messages", Description: "Chat with parents and teachers", Type: "page", URL: "/student/messages", Icon: "💬", Category: "Communication"},
		{ID: "student-study-timer", Title: "Study Timer", Description: "Start a focused study session", Type: "feature", URL: "/student/study-timer", Icon: "⏱️", Category: "Learning"},
	},
	models.RoleParent: {
		{ID: "parent-overview", Title: "Child Overview", Description: "See how your child is doing", Type: "page", URL: "/parent/overview", Icon: "👨‍👩‍👧", Category: "Monitoring"},
		{ID: "parent-homework", Title: "Homework Tracker", Description: "Follow assignments and due dates", Type: "page", URL: "/parent/homework", Icon: "📚", Category: "Monitoring"},
		{ID: "parent-reports", Title: "Progress Reports", Description: "Weekly reports of study activity", Type: "report", URL: "/parent/reports", Icon: "📊", Category: "Reports"},
		{ID: "parent-messages", Title: "Messages", Description: "Talk with your child and teachers", Type: "page", URL: "/parent/messages", Icon: "💬", Category: "Communication"},
		{ID: "parent-controls", Title: "Parental Controls", Description: "Screen time and content settings", Type: "settings", URL: "/parent/controls", Icon: "🔒", Category: "Settings"},
	},
	models.RoleAdmin: {
		{ID: "admin-users", Title: "User Management", Description: "Manage students, parents and teachers", Type: "page", URL: "/admin/users", Icon: "👥", Category: "Administration"},
		{ID: "admin-online", Title: "Online Users", Description: "Who is active right now", Type: "page", URL: "/admin/online", Icon: "🟢", Category: "Monitoring"},
		{ID: "admin-analytics", Title: "Analytics", Description: "Platform usage statistics", Type: "report", URL: "/admin/analytics", Icon: "📊", Category: "Reports"},
		{ID: "admin-content", Title: "Content Library", Description: "Manage quizzes and learning material", Type: "page", URL: "/admin/content", Icon: "🗂️", Category: "Administration"},
		{ID: "admin-system", Title: "System Settings", Description: "Configure platform behaviour", Type: "settings", URL: "/admin/system", Icon: "⚙️", Category: "Settings"},
	},
	models.RoleTeacher: {
		{ID: "teacher-classes", Title: "My Classes", Description: "Students and class progress", Type: "page", URL: "/teacher/classes", Icon: "🏫", Category: "Monitoring"},
		{ID: "teacher-assignments", Title: "Assignments", Description: "Create and review homework", Type: "page", URL: "/teacher/assignments", Icon: "📚", Category: "Learning"},
		{ID: "teacher-messages", Title: "Messages", Description: "Talk with students and parents", Type: "page", URL: "/teacher/messages", Icon: "💬", Category: "Communication"},
	},
}

// Available to every role, after the role entries.
var quickActions = []models.SearchEntry{
	{ID: "action-settings", Title: "Settings", Description: "Update your profile and preferences", Type: "action", URL: "/settings", Icon: "⚙️", Category: "Account"},
	{ID: "action-notifications", Title: "Notifications", Description: "See your latest alerts", Type: "action", URL: "/notifications", Icon: "🔔", Category: "Account"},
	{ID: "action-help", Title: "Help Center", Description: "Guides and frequently asked questions", Type: "action", URL: "/help", Icon: "❓", Category: "Support"},
	{ID: "action-logout", Title: "Log Out", Description: "Sign out of your account", Type: "action", URL: "/logout", Icon: "🚪", Category: "Account"},
}

var popularSearches = []string{
	"homework",
	"math quiz",
	"ai help",
	"achievements",
	"progress report",
	"messages",
}

// Entries returns the searchable set for role in catalog order.
func Entries(role string) []models.SearchEntry {
	own := roleEntries[role]
	out := make([]models.SearchEntry, 0, len(own)+len(quickActions))
	out = append(out, own...)
	return append(out, quickActions...)
}
