package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studyspot-backend/internal/homework"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/remote"
	"studyspot-backend/internal/simulation"
)

// HomeworkSource is the homework surface shared by both sides. Lookups of
// unknown ids return nil without an error.
type HomeworkSource interface {
	List(ctx context.Context) ([]models.HomeworkItem, error)
	Get(ctx context.Context, id string) (*models.HomeworkItem, error)
	Create(ctx context.Context, req models.CreateHomeworkRequest) (*models.HomeworkItem, error)
	Update(ctx context.Context, id string, patch models.UpdateHomeworkRequest) (*models.HomeworkItem, error)
	Complete(ctx context.Context, id string) (*models.CompletionResult, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type localHomework struct {
	ws  *simulation.Workspace
	now func() time.Time
}

func (s *localHomework) present(item *models.HomeworkItem) *models.HomeworkItem {
	if item == nil {
		return nil
	}
	out := homework.Present([]models.HomeworkItem{*item}, s.now())[0]
	return &out
}

func (s *localHomework) List(ctx context.Context) ([]models.HomeworkItem, error) {
	return homework.Present(s.ws.Homework.List(ctx), s.now()), nil
}

func (s *localHomework) Get(ctx context.Context, id string) (*models.HomeworkItem, error) {
	return s.present(s.ws.Homework.GetByID(ctx, id)), nil
}

func (s *localHomework) Create(ctx context.Context, req models.CreateHomeworkRequest) (*models.HomeworkItem, error) {
	item := s.ws.Homework.Create(ctx, req)
	return s.present(&item), nil
}

func (s *localHomework) Update(ctx context.Context, id string, patch models.UpdateHomeworkRequest) (*models.HomeworkItem, error) {
	item, err := s.ws.Homework.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	return s.present(item), nil
}

func (s *localHomework) Complete(ctx context.Context, id string) (*models.CompletionResult, error) {
	return s.ws.Homework.Complete(ctx, id), nil
}

func (s *localHomework) Delete(ctx context.Context, id string) (bool, error) {
	return s.ws.Homework.Delete(ctx, id), nil
}

type remoteHomework struct {
	client *remote.Client
	token  string
}

func (s *remoteHomework) List(ctx context.Context) ([]models.HomeworkItem, error) {
	items, err := s.client.ListHomework(ctx, s.token)
	if err != nil {
		return nil, fmt.Errorf("listing remote homework: %w", err)
	}
	if items == nil {
		items = []models.HomeworkItem{}
	}
	return items, nil
}

func (s *remoteHomework) Get(ctx context.Context, id string) (*models.HomeworkItem, error) {
	item, err := s.client.GetHomework(ctx, s.token, id)
	if err = notFoundAsNil(err); err != nil {
		return nil, fmt.Errorf("fetching remote homework %s: %w", id, err)
	}
	return item, nil
}

func (s *remoteHomework) Create(ctx context.Context, req models.CreateHomeworkRequest) (*models.HomeworkItem, error) {
	item, err := s.client.CreateHomework(ctx, s.token, req)
	if err != nil {
		return nil, fmt.Errorf("creating remote homework: %w", err)
	}
	return item, nil
}

func (s *remoteHomework) Update(ctx context.Context, id string, patch models.UpdateHomeworkRequest) (*models.HomeworkItem, error) {
	item, err := s.client.UpdateHomework(ctx, s.token, id, patch)
	if err = notFoundAsNil(err); err != nil {
		return nil, fmt.Errorf("updating remote homework %s: %w", id, err)
	}
	return item, nil
}

func (s *remoteHomework) Complete(ctx context.Context, id string) (*models.CompletionResult, error) {
	res, err := s.client.CompleteHomework(ctx, s.token, id)
	if err = notFoundAsNil(err); err != nil {
		return nil, fmt.Errorf("completing remote homework %s: %w", id, err)
	}
	return res, nil
}

func (s *remoteHomework) Delete(ctx context.Context, id string) (bool, error) {
	err := s.client.DeleteHomework(ctx, s.token, id)
	if errors.Is(err, remote.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting remote homework %s: %w", id, err)
	}
	return true, nil
}
