package datasource

import (
	"context"
	"errors"
	"fmt"

	"studyspot-backend/internal/gamification"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/remote"
	"studyspot-backend/internal/simulation"
)

// GamificationSource exposes the read side of the points system plus reward
// redemption. Redeem returns nil for an unknown reward.
type GamificationSource interface {
	Profile(ctx context.Context) (models.GamificationProfile, error)
	Badges(ctx context.Context) ([]models.Badge, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
	Rewards(ctx context.Context) ([]models.Reward, error)
	Redeem(ctx context.Context, rewardID string) (*models.RedeemResult, error)
}

type localGamification struct {
	ws *simulation.Workspace
}

func (s *localGamification) Profile(ctx context.Context) (models.GamificationProfile, error) {
	return s.ws.Engine.Profile(ctx), nil
}

func (s *localGamification) Badges(ctx context.Context) ([]models.Badge, error) {
	return s.ws.Engine.Badges(ctx), nil
}

func (s *localGamification) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	return s.ws.Engine.Leaderboard(ctx), nil
}

func (s *localGamification) Rewards(ctx context.Context) ([]models.Reward, error) {
	return s.ws.Engine.Rewards(ctx), nil
}

// Redeem spends points only when the balance covers the reward, so the total
// never goes negative.
func (s *localGamification) Redeem(ctx context.Context, rewardID string) (*models.RedeemResult, error) {
	reward, profile, err := s.ws.Engine.RedeemIfAffordable(ctx, rewardID)
	switch {
	case errors.Is(err, gamification.ErrUnknownReward):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &models.RedeemResult{Reward: *reward, Profile: profile}, nil
}

type remoteGamification struct {
	client *remote.Client
	token  string
}

func (s *remoteGamification) Profile(ctx context.Context) (models.GamificationProfile, error) {
	p, err := s.client.Profile(ctx, s.token)
	if err != nil {
		return models.GamificationProfile{}, fmt.Errorf("fetching remote profile: %w", err)
	}
	return *p, nil
}

func (s *remoteGamification) Badges(ctx context.Context) ([]models.Badge, error) {
	badges, err := s.client.Badges(ctx, s.token)
	if err != nil {
		return nil, fmt.Errorf("fetching remote badges: %w", err)
	}
	if badges == nil {
		badges = []models.Badge{}
	}
	return badges, nil
}

func (s *remoteGamification) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	board, err := s.client.Leaderboard(ctx, s.token)
	if err != nil {
		return nil, fmt.Errorf("fetching remote leaderboard: %w", err)
	}
	if board == nil {
		board = []models.LeaderboardEntry{}
	}
	return board, nil
}

func (s *remoteGamification) Rewards(ctx context.Context) ([]models.Reward, error) {
	rewards, err := s.client.Rewards(ctx, s.token)
	if err != nil {
		return nil, fmt.Errorf("fetching remote rewards: %w", err)
	}
	if rewards == nil {
		rewards = []models.Reward{}
	}
	return rewards, nil
}

func (s *remoteGamification) Redeem(ctx context.Context, rewardID string) (*models.RedeemResult, error) {
	res, err := s.client.Redeem(ctx, s.token, rewardID)
	if err = notFoundAsNil(err); err != nil {
		return nil, fmt.Errorf("redeeming remote reward %s: %w", rewardID, err)
	}
	return res, nil
}
