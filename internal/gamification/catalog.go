package gamification

import "studyspot-backend/internal/models"

const pointsPerLevel = 100

// Counters are the independent tallies badge rules are evaluated against.
type Counters struct {
	HomeworkCompletions int `json:"homework_completions"`
	AIUsage             int `json:"ai_usage"`
	QuizzesCompleted    int `json:"quizzes_completed"`
	PerfectQuizzes      int `json:"perfect_quizzes"`
	TotalPoints         int `json:"-"`
}

type badgeRule struct {
	badge models.Badge
	met   func(c Counters) bool
}

// Evaluated in this order; each rule only gates itself.
var badgeRules = []badgeRule{
	{
		badge: models.Badge{ID: "first-completion", Name: "First Steps", Description: "Complete your first homework assignment", Icon: "🎯", Requirement: "Complete 1 homework", Points: 10},
		met:   func(c Counters) bool { return c.HomeworkCompletions >= 1 },
	},
	{
		badge: models.Badge{ID: "five-completions", Name: "On a Roll", Description: "Complete five homework assignments", Icon: "🔥", Requirement: "Complete 5 homework", Points: 25},
		met:   func(c Counters) bool { return c.HomeworkCompletions >= 5 },
	},
	{
		badge: models.Badge{ID: "ten-completions", Name: "Homework Hero", Description: "Complete ten homework assignments", Icon: "🦸", Requirement: "Complete 10 homework", Points: 50},
		met:   func(c Counters) bool { return c.HomeworkCompletions >= 10 },
	},
	{
		badge: models.Badge{ID: "ai-curious", Name: "Curious Mind", Description: "Ask the AI assistant for help", Icon: "🤖", Requirement: "Use AI help once", Points: 10},
		met:   func(c Counters) bool { return c.AIUsage >= 1 },
	},
	{
		badge: models.Badge{ID: "ai-explorer", Name: "AI Explorer", Description: "Ask the AI assistant ten questions", Icon: "🧭", Requirement: "Use AI help 10 times", Points: 30},
		met:   func(c Counters) bool { return c.AIUsage >= 10 },
	},
	{
		badge: models.Badge{ID: "quiz-rookie", Name: "Quiz Rookie", Description: "Finish your first quiz", Icon: "📝", Requirement: "Complete 1 quiz", Points: 10},
		met:   func(c Counters) bool { return c.QuizzesCompleted >= 1 },
	},
	{
		badge: models.Badge{ID: "quiz-ace", Name: "Quiz Ace", Description: "Score 100% on three quizzes", Icon: "🏅", Requirement: "3 perfect quizzes", Points: 40},
		met:   func(c Counters) bool { return c.PerfectQuizzes >= 3 },
	},
	{
		badge: models.Badge{ID: "century", Name: "Century Club", Description: "Earn 100 points", Icon: "💯", Requirement: "Reach 100 points", Points: 20},
		met:   func(c Counters) bool { return c.TotalPoints >= 100 },
	},
	{
		badge: models.Badge{ID: "high-achiever", Name: "High Achiever", Description: "Earn 500 points", Icon: "🏆", Requirement: "Reach 500 points", Points: 50},
		met:   func(c Counters) bool { return c.TotalPoints >= 500 },
	},
}

var rewardCatalog = []models.Reward{
	{ID: "extra-break", Name: "Extra Break", Description: "Take an extra 10 minute break", Icon: "☕", Cost: 50},
	{ID: "custom-avatar", Name: "Custom Avatar", Description: "Unlock a custom profile avatar", Icon: "🎨", Cost: 100},
	{ID: "game-time", Name: "Game Time", Description: "30 minutes of game time", Icon: "🎮", Cost: 150},
	{ID: "homework-pass", Name: "Homework Pass", Description: "Skip one homework assignment", Icon: "🎟️", Cost: 200},
}

// Static peers the local leaderboard ranks the user against.
var demoPeers = []models.LeaderboardEntry{
	{UserID: "peer-emma", UserName: "Emma Johnson", Points: 1250},
	{UserID: "peer-liam", UserName: "Liam Chen", Points: 980},
	{UserID: "peer-sofia", UserName: "Sofia Martinez", Points: 760},
	{UserID: "peer-noah", UserName: "Noah Williams", Points: 540},
	{UserID: "peer-ava", UserName: "Ava Patel", Points: 320},
	{UserID: "peer-mason", UserName: "Mason Brown", Points: 150},
}

// LevelFor returns floor(points/100)+1, never below 1.
func LevelFor(points int) int {
	if points < 0 {
		return 1
	}
	return points/pointsPerLevel + 1
}

// PointsToNextLevel returns 100 minus the non-negative remainder of points.
func PointsToNextLevel(points int) int {
	mod := points % pointsPerLevel
	if mod < 0 {
		mod += pointsPerLevel
	}
	return pointsPerLevel - mod
}

// Catalog returns the badge catalog with nothing earned.
func Catalog() []models.Badge {
	out := make([]models.Badge, len(badgeRules))
	for i, r := range badgeRules {
		out[i] = r.badge
	}
	return out
}

func lookupReward(id string) (models.Reward, bool) {
	for _, r := range rewardCatalog {
		if r.ID == id {
			return r, true
		}
	}
	return models.Reward{}, false
}
