package models

import "time"

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOverdue    = "overdue" // derived at presentation time, never persisted
)

type HomeworkItem struct {
	ID          string     `json:"id"`
	Subject     string     `json:"subject"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"due_date"`
	Difficulty  string     `json:"difficulty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CreateHomeworkRequest struct {
	Subject     string    `json:"subject" validate:"required,max=100"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Difficulty  string    `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// UpdateHomeworkRequest is a partial update; nil fields are left untouched.
type UpdateHomeworkRequest struct {
	Subject     *string    `json:"subject,omitempty" validate:"omitempty,min=1,max=100"`
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Difficulty  *string    `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	Status      *string    `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress"`
}

// CompletionResult is returned by a completion. BadgeUnlocked is a signal for
// the caller (milestone reached), not state owned by the ledger.
type CompletionResult struct {
	Item             HomeworkItem        `json:"homework"`
	PointsAwarded    int                 `json:"points_awarded"`
	Completions      int                 `json:"completions"`
	BadgeUnlocked    bool                `json:"badge_unlocked"`
	AlreadyCompleted bool                `json:"already_completed"`
	Profile          GamificationProfile `json:"profile"`
}

type HomeworkSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
}
