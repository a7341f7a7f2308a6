package gamification

import (
	"sort"

	"studyspot-backend/internal/models"
)

// rankBoard sorts peers plus self by points (descending) and assigns 1-based
// ranks. Peers win ties against self.
func rankBoard(peers []models.LeaderboardEntry, self models.LeaderboardEntry) ([]models.LeaderboardEntry, int) {
	board := make([]models.LeaderboardEntry, 0, len(peers)+1)
	board = append(board, peers...)
	self.IsSelf = true
	board = append(board, self)

	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Points > board[j].Points
	})

	selfRank := 0
	for i := range board {
		board[i].Rank = i + 1
		board[i].Level = LevelFor(board[i].Points)
		if board[i].IsSelf {
			selfRank = i + 1
		}
	}
	return board, selfRank
}
