package engine

import (
	"context"

	"github.com/bytedance/sonic"

	"notegrid.app/notegrid/internal/identity"
	"notegrid.app/notegrid/internal/localstore"
	model "notegrid.app/notegrid/pkg/models"
)

// localCache mirrors the last known record in the local store.
type localCache struct {
	store localstore.Store
}

func (c localCache) load(ctx context.Context) (model.UserData, bool, error) {
	raw, ok, err := c.store.Get(ctx, identity.KeyCache)
	if err != nil || !ok {
		return model.UserData{}, false, err
	}
	var data model.UserData
	if err := sonic.UnmarshalString(raw, &data); err != nil {
		return model.UserData{}, false, err
	}
	data.Normalize()
	return data, true, nil
}

func (c localCache) save(ctx context.Context, data model.UserData) error {
	raw, err := sonic.MarshalString(data)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, identity.KeyCache, raw)
}
