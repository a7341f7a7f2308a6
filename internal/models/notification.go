package models

import "time"

type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // "badge" | "level_up" | "message" | "reward" | "system"
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type Preferences struct {
	Theme              string `json:"theme"`
	Language           string `json:"language"`
	EmailNotifications bool   `json:"email_notifications"`
	PushNotifications  bool   `json:"push_notifications"`
	SoundEffects       bool   `json:"sound_effects"`
	WeeklyGoal         int    `json:"weekly_goal"`
}

// UpdatePreferencesRequest is a partial update; nil fields are left untouched.
type UpdatePreferencesRequest struct {
	Theme              *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark system"`
	Language           *string `json:"language,omitempty" validate:"omitempty,min=2,max=10"`
	EmailNotifications *bool   `json:"email_notifications,omitempty"`
	PushNotifications  *bool   `json:"push_notifications,omitempty"`
	SoundEffects       *bool   `json:"sound_effects,omitempty"`
	WeeklyGoal         *int    `json:"weekly_goal,omitempty" validate:"omitempty,min=0,max=10080"`
}
