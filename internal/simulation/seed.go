package simulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/store"
)

// DemoHomework returns the starter assignments, due relative to now.
func DemoHomework(now time.Time) []models.HomeworkItem {
	day := 24 * time.Hour
	return []models.HomeworkItem{
		{Subject: "Mathematics", Title: "Fractions worksheet", Description: "Complete exercises 1-20 on adding and subtracting fractions", DueDate: now.Add(2 * day), Difficulty: models.DifficultyMedium},
		{Subject: "Science", Title: "Plant cell diagram", Description: "Label the parts of a plant cell and describe each function", DueDate: now.Add(4 * day), Difficulty: models.DifficultyEasy},
		{Subject: "English", Title: "Book report", Description: "Write a one page report on the book you are reading", DueDate: now.Add(7 * day), Difficulty: models.DifficultyHard},
		{Subject: "History", Title: "Ancient Egypt timeline", Description: "Create a timeline of the major pharaohs", DueDate: now.Add(-day), Difficulty: models.DifficultyMedium},
	}
}

// DemoMessages returns a short conversation between the demo accounts.
func DemoMessages(now time.Time) []models.Message {
	msg := func(from, to models.User, content string, ago time.Duration, read bool) models.Message {
		return models.Message{
			ID:           uuid.NewString(),
			SenderID:     from.ID,
			SenderName:   from.FullName,
			SenderRole:   from.Role,
			ReceiverID:   to.ID,
			ReceiverName: to.FullName,
			ReceiverRole: to.Role,
			Content:      content,
			Timestamp:    now.Add(-ago),
			Read:         read,
		}
	}
	student, parent, teacher := DemoStudent, DemoParent, DemoTeacher
	return []models.Message{
		msg(parent, student, "Don't forget your fractions worksheet tonight!", 26*time.Hour, true),
		msg(student, parent, "I'm almost done, just two more exercises.", 25*time.Hour, true),
		msg(teacher, student, "Great job on the last quiz. Keep it up!", 3*time.Hour, false),
		msg(teacher, parent, "Your child has been doing very well this week.", 2*time.Hour, false),
	}
}

var (
	DemoStudent = models.User{ID: "demo-student", Email: "student@studyspot.demo", FullName: "Alex Student", Role: models.RoleStudent}
	DemoParent  = models.User{ID: "demo-parent", Email: "parent@studyspot.demo", FullName: "Jordan Parent", Role: models.RoleParent}
	DemoTeacher = models.User{ID: "demo-teacher", Email: "teacher@studyspot.demo", FullName: "Sam Teacher", Role: models.RoleTeacher}
)

// Seed writes the demo homework list and message log. Existing values are kept
// unless force is set. It reports which keys were written.
func Seed(ctx context.Context, st *store.Store, now time.Time, force bool) []string {
	var written []string
	if force || !st.Has(ctx, store.KeyDemoHomework) {
		if st.Set(ctx, store.KeyDemoHomework, DemoHomework(now)) {
			written = append(written, store.KeyDemoHomework)
		}
	}
	if force || !st.Has(ctx, store.KeyDemoMessages) {
		if st.Set(ctx, store.KeyDemoMessages, DemoMessages(now)) {
			written = append(written, store.KeyDemoMessages)
		}
	}
	return written
}
