package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
)

// blobRowKey is the row holding the record inside the identity's partition.
const blobRowKey = "data"

// maxEntityData is the table service's limit for a single string property.
const maxEntityData = 64 * 1024

var ErrBlobTooLarge = errors.New("record exceeds table entity size limit")

type blobEntity struct {
	aztables.Entity
	Data string `json:"Data"`
}

// TableBlobs stores each record as the Data property of a single table
// entity, partitioned by identity.
type TableBlobs struct {
	client *aztables.Client
}

func NewTableBlobs(client *aztables.Client) *TableBlobs {
	return &TableBlobs{client: client}
}

func (t *TableBlobs) Get(ctx context.Context, identity string) ([]byte, error) {
	resp, err := t.client.GetEntity(ctx, identity, blobRowKey, nil)
	if err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeBlobEntity(resp.Value)
}

func (t *TableBlobs) Put(ctx context.Context, identity string, blob []byte) error {
	payload, err := encodeBlobEntity(identity, blob)
	if err != nil {
		return err
	}
	_, err = t.client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{
		UpdateMode: aztables.UpdateModeReplace,
	})
	return err
}

func (t *TableBlobs) Create(ctx context.Context, identity string, blob []byte) error {
	payload, err := encodeBlobEntity(identity, blob)
	if err != nil {
		return err
	}
	if _, err := t.client.AddEntity(ctx, payload, nil); err != nil {
		if hasStatus(err, http.StatusConflict) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func (t *TableBlobs) Delete(ctx context.Context, identity string) error {
	_, err := t.client.DeleteEntity(ctx, identity, blobRowKey, nil)
	if err != nil && !hasStatus(err, http.StatusNotFound) {
		return err
	}
	return nil
}

func encodeBlobEntity(identity string, blob []byte) ([]byte, error) {
	if len(blob) > maxEntityData {
		return nil, ErrBlobTooLarge
	}
	payload, err := sonic.Marshal(map[string]any{
		"PartitionKey": identity,
		"RowKey":       blobRowKey,
		"Data":         string(blob),
	})
	if err != nil {
		return nil, fmt.Errorf("encode table entity: %w", err)
	}
	return payload, nil
}

func decodeBlobEntity(raw []byte) ([]byte, error) {
	var ent blobEntity
	if err := sonic.Unmarshal(raw, &ent); err != nil {
		return nil, fmt.Errorf("decode table entity: %w", err)
	}
	if ent.Data == "" {
		return nil, ErrNotFound
	}
	return []byte(ent.Data), nil
}

func hasStatus(err error, status int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == status
}
