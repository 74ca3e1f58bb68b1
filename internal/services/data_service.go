package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "notegrid.app/notegrid/internal/errors"
	repository "notegrid.app/notegrid/internal/repositories"
	model "notegrid.app/notegrid/pkg/models"
)

// DataService serves one identity's record, both as a whole document and
// per task or link. The identity passed in is already authenticated and
// normalized.
type DataService struct {
	store repository.Store
	now   func() time.Time
}

func NewDataService(store repository.Store) *DataService {
	return &DataService{store: store, now: time.Now}
}

func (s *DataService) GetUserData(ctx context.Context, id string) (model.UserData, error) {
	data, err := s.store.LoadUserData(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewUserData(s.stamp()), nil
	}
	if err != nil {
		return model.UserData{}, fmt.Errorf("load user data: %w", err)
	}
	return data, nil
}

// ReplaceUserData overwrites the record with data and returns what was
// stored.
func (s *DataService) ReplaceUserData(ctx context.Context, id string, data model.UserData) (model.UserData, error) {
	now := s.stamp()
	data.Normalize()
	data.UpdatedAt = now
	if data.CreatedAt == 0 {
		data.CreatedAt = now
	}
	for i := range data.Tasks {
		fillTaskDefaults(&data.Tasks[i], now)
	}

	if err := s.store.ReplaceUserData(ctx, id, data); err != nil {
		return model.UserData{}, fmt.Errorf("replace user data: %w", err)
	}
	return data, nil
}

func (s *DataService) ListTasks(ctx context.Context, id string) ([]model.Task, error) {
	tasks, err := s.store.ListTasks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *DataService) CreateTask(ctx context.Context, id string, task model.Task) (model.Task, error) {
	now := s.stamp()
	fillTaskDefaults(&task, now)

	created, err := s.store.CreateTask(ctx, id, task, now)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Task{}, apperrors.ErrTaskExists
		}
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	return created, nil
}

func (s *DataService) UpdateTask(ctx context.Context, id, taskID string, upd model.TaskUpdate) (model.Task, error) {
	updated, err := s.store.UpdateTask(ctx, id, taskID, upd, s.stamp())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Task{}, apperrors.ErrTaskNotFound
		}
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	return updated, nil
}

func (s *DataService) DeleteTask(ctx context.Context, id, taskID string) error {
	if err := s.store.DeleteTask(ctx, id, taskID, s.stamp()); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *DataService) ReorderTasks(ctx context.Context, id string, taskIDs []string) error {
	if err := s.store.ReorderTasks(ctx, id, taskIDs, s.stamp()); err != nil {
		return fmt.Errorf("reorder tasks: %w", err)
	}
	return nil
}

func (s *DataService) ListLinks(ctx context.Context, id string) ([]model.Link, error) {
	links, err := s.store.ListLinks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func (s *DataService) CreateLink(ctx context.Context, id string, link model.Link) (model.Link, error) {
	now := s.stamp()
	if link.CreatedAt == 0 {
		link.CreatedAt = now
	}

	created, err := s.store.CreateLink(ctx, id, link, now)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Link{}, apperrors.ErrLinkExists
		}
		return model.Link{}, fmt.Errorf("create link: %w", err)
	}
	return created, nil
}

func (s *DataService) DeleteLink(ctx context.Context, id, linkID string) error {
	if err := s.store.DeleteLink(ctx, id, linkID, s.stamp()); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

func (s *DataService) ReorderLinks(ctx context.Context, id string, linkIDs []string) error {
	if err := s.store.ReorderLinks(ctx, id, linkIDs, s.stamp()); err != nil {
		return fmt.Errorf("reorder links: %w", err)
	}
	return nil
}

func (s *DataService) stamp() int64 {
	return s.now().UnixMilli()
}

func fillTaskDefaults(t *model.Task, now int64) {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Color == "" {
		t.Color = model.DefaultColor
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	if t.UpdatedAt == 0 {
		t.UpdatedAt = now
	}
}
