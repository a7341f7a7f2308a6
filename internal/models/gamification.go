package models

import "time"

type GamificationProfile struct {
	TotalPoints       int `json:"total_points"`
	Level             int `json:"level"`
	Rank              int `json:"rank"`
	PointsToNextLevel int `json:"points_to_next_level"`
}

type Badge struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Requirement string     `json:"requirement"`
	Points      int        `json:"points"`
	Earned      bool       `json:"earned"`
	EarnedAt    *time.Time `json:"earned_at,omitempty"`
}

type Reward struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Cost        int    `json:"cost"`
	Available   bool   `json:"available"`
}

type LeaderboardEntry struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
	Rank     int    `json:"rank"`
	IsSelf   bool   `json:"is_self"`
}

// PointsEvent is a single entry of the points history.
type PointsEvent struct {
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

type RedeemResult struct {
	Reward  Reward              `json:"reward"`
	Profile GamificationProfile `json:"profile"`
}
