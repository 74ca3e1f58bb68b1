package repository

import (
	"context"
	"errors"

	model "notegrid.app/notegrid/pkg/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrUserExists = errors.New("user already exists")
	ErrDuplicate  = errors.New("duplicate id")
)

// Store persists user records. Every method is scoped to one identity, which
// callers pass already normalized. now is epoch milliseconds.
//
// Writes to tasks and links create the user record when it is missing.
// Deletes and reorders for an unknown identity are no-ops.
type Store interface {
	UserExists(ctx context.Context, identity string) (bool, error)
	// CreateUser returns ErrUserExists when the identity is taken.
	CreateUser(ctx context.Context, identity string, now int64) (model.UserData, error)
	// LoadUserData returns ErrNotFound for an unknown identity.
	LoadUserData(ctx context.Context, identity string) (model.UserData, error)
	ReplaceUserData(ctx context.Context, identity string, data model.UserData) error
	DeleteUser(ctx context.Context, identity string) error

	ListTasks(ctx context.Context, identity string) ([]model.Task, error)
	// CreateTask appends task and returns ErrDuplicate when its id is in use.
	CreateTask(ctx context.Context, identity string, task model.Task, now int64) (model.Task, error)
	// UpdateTask returns ErrNotFound when the task is not owned by identity.
	UpdateTask(ctx context.Context, identity, id string, upd model.TaskUpdate, now int64) (model.Task, error)
	DeleteTask(ctx context.Context, identity, id string, now int64) error
	ReorderTasks(ctx context.Context, identity string, ids []string, now int64) error

	ListLinks(ctx context.Context, identity string) ([]model.Link, error)
	CreateLink(ctx context.Context, identity string, link model.Link, now int64) (model.Link, error)
	DeleteLink(ctx context.Context, identity, id string, now int64) error
	ReorderLinks(ctx context.Context, identity string, ids []string, now int64) error
}
