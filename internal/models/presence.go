package models

import "time"

const (
	PresenceOnline = "online"
	PresenceAway   = "away"
)

type PresenceRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	LastSeen    time.Time `json:"last_seen"`
	CurrentPage string    `json:"current_page"`
	LoginTime   time.Time `json:"login_time"`
}
