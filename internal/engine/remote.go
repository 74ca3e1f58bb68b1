package engine

import (
	"context"

	model "notegrid.app/notegrid/pkg/models"
)

// Remote is the part of the API client the engine calls. Implementations are
// bound to one identity.
type Remote interface {
	CheckExists(ctx context.Context, id string) (bool, error)
	RegisterIdentity(ctx context.Context, id string) (model.UserData, error)
	DeleteAccount(ctx context.Context) error

	FetchUserData(ctx context.Context) (model.UserData, error)
	ReplaceUserData(ctx context.Context, data model.UserData) (model.UserData, error)

	CreateTask(ctx context.Context, task model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, id string, upd model.TaskUpdate) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ReorderTasks(ctx context.Context, ids []string) error

	CreateLink(ctx context.Context, link model.Link) (model.Link, error)
	DeleteLink(ctx context.Context, id string) error
	ReorderLinks(ctx context.Context, ids []string) error
}

// Dialer returns a Remote that authenticates as identity.
type Dialer func(identity string) Remote
