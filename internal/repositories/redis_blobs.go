package repository

import (
	"context"

	"github.com/redis/rueidis"
)

// RedisBlobs stores each record as a plain string value under prefix+identity.
type RedisBlobs struct {
	client rueidis.Client
	prefix string
}

func NewRedisBlobs(client rueidis.Client, prefix string) *RedisBlobs {
	return &RedisBlobs{client: client, prefix: prefix}
}

func (r *RedisBlobs) Get(ctx context.Context, identity string) ([]byte, error) {
	cmd := r.client.B().Get().Key(r.key(identity)).Build()
	blob, err := r.client.Do(ctx, cmd).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, ErrNotFound
	}
	return blob, err
}

func (r *RedisBlobs) Put(ctx context.Context, identity string, blob []byte) error {
	cmd := r.client.B().Set().Key(r.key(identity)).Value(rueidis.BinaryString(blob)).Build()
	return r.client.Do(ctx, cmd).Error()
}

func (r *RedisBlobs) Create(ctx context.Context, identity string, blob []byte) error {
	cmd := r.client.B().Set().Key(r.key(identity)).Value(rueidis.BinaryString(blob)).Nx().Build()
	err := r.client.Do(ctx, cmd).Error()
	if rueidis.IsRedisNil(err) {
		return ErrUserExists
	}
	return err
}

func (r *RedisBlobs) Delete(ctx context.Context, identity string) error {
	cmd := r.client.B().Del().Key(r.key(identity)).Build()
	return r.client.Do(ctx, cmd).Error()
}

func (r *RedisBlobs) key(identity string) string {
	return r.prefix + identity
}
