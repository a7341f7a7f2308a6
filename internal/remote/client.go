// Package remote is the bearer-token JSON client of the real backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studyspot-backend/internal/models"
)

var ErrNotFound = errors.New("remote resource not found")

// Error is a non-2xx reply from the backend.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote backend returned %d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Health reports whether GET /health answered 2xx.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Code: "UNHEALTHY", Message: resp.Status}
	}
	return nil
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, reader)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		var envelope models.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&envelope)
		return &Error{Status: resp.StatusCode, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

// ──── Auth ────

// Me returns the account the backend associates with token.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	var body struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/auth/me", nil, &body); err != nil {
		return nil, err
	}
	return &body.User, nil
}

// ──── Homework ────

func (c *Client) ListHomework(ctx context.Context, token string) ([]models.HomeworkItem, error) {
	var items []models.HomeworkItem
	err := c.do(ctx, token, http.MethodGet, "/homework", nil, &items)
	return items, err
}

func (c *Client) GetHomework(ctx context.Context, token, id string) (*models.HomeworkItem, error) {
	var item models.HomeworkItem
	if err := c.do(ctx, token, http.MethodGet, "/homework/"+url.PathEscape(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CreateHomework(ctx context.Context, token string, req models.CreateHomeworkRequest) (*models.HomeworkItem, error) {
	var item models.HomeworkItem
	if err := c.do(ctx, token, http.MethodPost, "/homework", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateHomework(ctx context.Context, token, id string, req models.UpdateHomeworkRequest) (*models.HomeworkItem, error) {
	var item models.HomeworkItem
	if err := c.do(ctx, token, http.MethodPatch, "/homework/"+url.PathEscape(id), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CompleteHomework(ctx context.Context, token, id string) (*models.CompletionResult, error) {
	var res models.CompletionResult
	if err := c.do(ctx, token, http.MethodPost, "/homework/"+url.PathEscape(id)+"/complete", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) DeleteHomework(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodDelete, "/homework/"+url.PathEscape(id), nil, nil)
}

// ──── Messages ────

func (c *Client) SendMessage(ctx context.Context, token string, req models.SendMessageRequest) (*models.Message, error) {
	var msg models.Message
	if err := c.do(ctx, token, http.MethodPost, "/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) Thread(ctx context.Context, token, counterpartID string) ([]models.Message, error) {
	var msgs []models.Message
	err := c.do(ctx, token, http.MethodGet, "/messages/with/"+url.PathEscape(counterpartID), nil, &msgs)
	return msgs, err
}

func (c *Client) Conversations(ctx context.Context, token string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := c.do(ctx, token, http.MethodGet, "/messages/conversations", nil, &convs)
	return convs, err
}

func (c *Client) MarkRead(ctx context.Context, token, messageID string) (bool, error) {
	var out struct {
		Updated bool `json:"updated"`
	}
	err := c.do(ctx, token, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/read", nil, &out)
	return out.Updated, err
}

func (c *Client) UnreadCount(ctx context.Context, token string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, token, http.MethodGet, "/messages/unread-count", nil, &out)
	return out.Count, err
}

// ──── Gamification ────

func (c *Client) Profile(ctx context.Context, token string) (*models.GamificationProfile, error) {
	var p models.GamificationProfile
	if err := c.do(ctx, token, http.MethodGet, "/gamification/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Badges(ctx context.Context, token string) ([]models.Badge, error) {
	var badges []models.Badge
	err := c.do(ctx, token, http.MethodGet, "/gamification/badges", nil, &badges)
	return badges, err
}

func (c *Client) Leaderboard(ctx context.Context, token string) ([]models.LeaderboardEntry, error) {
	var board []models.LeaderboardEntry
	err := c.do(ctx, token, http.MethodGet, "/gamification/leaderboard", nil, &board)
	return board, err
}

func (c *Client) Rewards(ctx context.Context, token string) ([]models.Reward, error) {
	var rewards []models.Reward
	err := c.do(ctx, token, http.MethodGet, "/gamification/rewards", nil, &rewards)
	return rewards, err
}

func (c *Client) Redeem(ctx context.Context, token, rewardID string) (*models.RedeemResult, error) {
	var res models.RedeemResult
	if err := c.do(ctx, token, http.MethodPost, "/gamification/rewards/"+url.PathEscape(rewardID)+"/redeem", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
