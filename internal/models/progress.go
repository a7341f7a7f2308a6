package models

import "time"

type QuizResult struct {
	ID             string    `json:"id"`
	QuizID         string    `json:"quiz_id"`
	Title          string    `json:"title"`
	Subject        string    `json:"subject"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	ScorePercent   float64   `json:"score_percent"`
	PointsAwarded  int       `json:"points_awarded"`
	TimeTakenSecs  int       `json:"time_taken_seconds"`
	CompletedAt    time.Time `json:"completed_at"`
}

type QuizSubmission struct {
	QuizID         string `json:"quiz_id" validate:"required"`
	Title          string `json:"title" validate:"required,max=200"`
	Subject        string `json:"subject" validate:"max=100"`
	CorrectCount   int    `json:"correct_count" validate:"gte=0,ltefield=TotalQuestions"`
	TotalQuestions int    `json:"total_questions" validate:"gt=0"`
	TimeTakenSecs  int    `json:"time_taken_seconds" validate:"gte=0"`
}

type StudySession struct {
	ID              string     `json:"id"`
	Subject         string     `json:"subject"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	PointsAwarded   int        `json:"points_awarded"`
}

type DashboardStats struct {
	Profile            GamificationProfile `json:"profile"`
	Homework           HomeworkSummary     `json:"homework"`
	QuizzesTaken       int                 `json:"quizzes_taken"`
	AverageQuizScore   float64             `json:"average_quiz_score"`
	WeeklyStudyMinutes int                 `json:"weekly_study_minutes"`
	BadgesEarned       int                 `json:"badges_earned"`
	UnreadMessages     int                 `json:"unread_messages"`
	UnreadNotices      int                 `json:"unread_notifications"`
}
