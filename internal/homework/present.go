package homework

import (
	"time"

	"studyspot-backend/internal/models"
)

func IsOverdue(item models.HomeworkItem, now time.Time) bool {
	return item.Status != models.StatusCompleted && !item.DueDate.IsZero() && now.After(item.DueDate)
}

// Present returns a copy of items with overdue derived from now.
func Present(items []models.HomeworkItem, now time.Time) []models.HomeworkItem {
	out := make([]models.HomeworkItem, len(items))
	for i, item := range items {
		if IsOverdue(item, now) {
			item.Status = models.StatusOverdue
		}
		out[i] = item
	}
	return out
}

// Summary counts items by their presented status.
func Summary(items []models.HomeworkItem, now time.Time) models.HomeworkSummary {
	s := models.HomeworkSummary{Total: len(items)}
	for _, item := range Present(items, now) {
		switch item.Status {
		case models.StatusCompleted:
			s.Completed++
		case models.StatusOverdue:
			s.Overdue++
		case models.StatusInProgress:
			s.InProgress++
		default:
			s.Pending++
		}
	}
	return s
}
