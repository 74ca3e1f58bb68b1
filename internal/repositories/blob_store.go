package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"

	"github.com/bytedance/sonic"

	model "notegrid.app/notegrid/pkg/models"
)

// BlobBackend keeps one serialized UserData per identity.
type BlobBackend interface {
	// Get returns ErrNotFound when no blob is stored.
	Get(ctx context.Context, identity string) ([]byte, error)
	Put(ctx context.Context, identity string, blob []byte) error
	// Create returns ErrUserExists when a blob is already stored.
	Create(ctx context.Context, identity string, blob []byte) error
	Delete(ctx context.Context, identity string) error
}

type missingPolicy int

const (
	createMissing missingPolicy = iota
	skipMissing
	failMissing
)

const lockStripes = 64

// BlobStore is the whole-document variant. Every write is a read-modify-write
// of the full record, serialized per identity within this process.
type BlobStore struct {
	backend BlobBackend
	locks   [lockStripes]sync.Mutex
}

func NewBlobStore(backend BlobBackend) *BlobStore {
	return &BlobStore{backend: backend}
}

func (s *BlobStore) UserExists(ctx context.Context, identity string) (bool, error) {
	_, err := s.backend.Get(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *BlobStore) CreateUser(ctx context.Context, identity string, now int64) (model.UserData, error) {
	data := model.NewUserData(now)
	blob, err := sonic.Marshal(data)
	if err != nil {
		return model.UserData{}, fmt.Errorf("encode user data: %w", err)
	}
	if err := s.backend.Create(ctx, identity, blob); err != nil {
		return model.UserData{}, err
	}
	return data, nil
}

func (s *BlobStore) LoadUserData(ctx context.Context, identity string) (model.UserData, error) {
	return s.read(ctx, identity)
}

func (s *BlobStore) ReplaceUserData(ctx context.Context, identity string, data model.UserData) error {
	mu := s.lock(identity)
	mu.Lock()
	defer mu.Unlock()

	data = data.Clone()
	data.Tasks = dedupe(data.Tasks, model.TaskID)
	data.Links = dedupe(data.Links, model.LinkID)
	data.Normalize()
	return s.write(ctx, identity, data)
}

func (s *BlobStore) DeleteUser(ctx context.Context, identity string) error {
	mu := s.lock(identity)
	mu.Lock()
	defer mu.Unlock()

	err := s.backend.Delete(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (s *BlobStore) ListTasks(ctx context.Context, identity string) ([]model.Task, error) {
	data, err := s.read(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return []model.Task{}, nil
	}
	return data.Tasks, err
}

func (s *BlobStore) CreateTask(ctx context.Context, identity string, task model.Task, now int64) (model.Task, error) {
	task = task.Clone()
	err := s.mutate(ctx, identity, now, createMissing, func(d *model.UserData) error {
		if model.TaskIndex(d.Tasks, task.ID) >= 0 {
			return ErrDuplicate
		}
		d.Tasks = append(d.Tasks, task)
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (s *BlobStore) UpdateTask(ctx context.Context, identity, id string, upd model.TaskUpdate, now int64) (model.Task, error) {
	var updated model.Task
	err := s.mutate(ctx, identity, now, failMissing, func(d *model.UserData) error {
		i := model.TaskIndex(d.Tasks, id)
		if i < 0 {
			return ErrNotFound
		}
		updated = upd.Apply(d.Tasks[i])
		updated.UpdatedAt = now
		d.Tasks[i] = updated
		return nil
	})
	return updated, err
}

func (s *BlobStore) DeleteTask(ctx context.Context, identity, id string, now int64) error {
	return s.mutate(ctx, identity, now, skipMissing, func(d *model.UserData) error {
		d.Tasks = slices.DeleteFunc(d.Tasks, func(t model.Task) bool { return t.ID == id })
		return nil
	})
}

func (s *BlobStore) ReorderTasks(ctx context.Context, identity string, ids []string, now int64) error {
	return s.mutate(ctx, identity, now, skipMissing, func(d *model.UserData) error {
		d.Tasks = model.Reorder(d.Tasks, ids, model.TaskID)
		for i := range d.Tasks {
			if slices.Contains(ids, d.Tasks[i].ID) {
				d.Tasks[i].UpdatedAt = now
			}
		}
		return nil
	})
}

func (s *BlobStore) ListLinks(ctx context.Context, identity string) ([]model.Link, error) {
	data, err := s.read(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return []model.Link{}, nil
	}
	return data.Links, err
}

func (s *BlobStore) CreateLink(ctx context.Context, identity string, link model.Link, now int64) (model.Link, error) {
	err := s.mutate(ctx, identity, now, createMissing, func(d *model.UserData) error {
		if model.LinkIndex(d.Links, link.ID) >= 0 {
			return ErrDuplicate
		}
		d.Links = append(d.Links, link)
		return nil
	})
	if err != nil {
		return model.Link{}, err
	}
	return link, nil
}

func (s *BlobStore) DeleteLink(ctx context.Context, identity, id string, now int64) error {
	return s.mutate(ctx, identity, now, skipMissing, func(d *model.UserData) error {
		d.Links = slices.DeleteFunc(d.Links, func(l model.Link) bool { return l.ID == id })
		return nil
	})
}

func (s *BlobStore) ReorderLinks(ctx context.Context, identity string, ids []string, now int64) error {
	return s.mutate(ctx, identity, now, skipMissing, func(d *model.UserData) error {
		d.Links = model.Reorder(d.Links, ids, model.LinkID)
		return nil
	})
}

// mutate applies fn to the stored record under the identity's lock and
// stamps the record's updatedAt. policy decides what happens when no record
// is stored yet.
func (s *BlobStore) mutate(ctx context.Context, identity string, now int64, policy missingPolicy, fn func(*model.UserData) error) error {
	mu := s.lock(identity)
	mu.Lock()
	defer mu.Unlock()

	data, err := s.read(ctx, identity)
	switch {
	case errors.Is(err, ErrNotFound) && policy == createMissing:
		data = model.NewUserData(now)
	case errors.Is(err, ErrNotFound) && policy == skipMissing:
		return nil
	case err != nil:
		return err
	}

	if err := fn(&data); err != nil {
		return err
	}
	data.UpdatedAt = now
	return s.write(ctx, identity, data)
}

func (s *BlobStore) read(ctx context.Context, identity string) (model.UserData, error) {
	blob, err := s.backend.Get(ctx, identity)
	if err != nil {
		return model.UserData{}, err
	}

	var data model.UserData
	if err := sonic.Unmarshal(blob, &data); err != nil {
		return model.UserData{}, fmt.Errorf("decode user data: %w", err)
	}
	data.Normalize()
	return data, nil
}

func (s *BlobStore) write(ctx context.Context, identity string, data model.UserData) error {
	blob, err := sonic.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode user data: %w", err)
	}
	return s.backend.Put(ctx, identity, blob)
}

func (s *BlobStore) lock(identity string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return &s.locks[h.Sum32()%lockStripes]
}
