package identity

import (
	"context"
	"errors"

	"notegrid.app/notegrid/internal/localstore"
)

const (
	// KeyIdentity holds the persisted identity in the local store.
	KeyIdentity = "notegrid-uuid"
	// KeyCache holds the Local Cache of the last known user record.
	KeyCache = "notegrid-data"
)

var ErrInvalidFormat = errors.New("Invalid code format")

// Provider keeps the current identity in a durable local store.
type Provider struct {
	store localstore.Store
}

func NewProvider(store localstore.Store) *Provider {
	return &Provider{store: store}
}

// Persist stores candidate after validating and normalizing it.
func (p *Provider) Persist(ctx context.Context, candidate string) (string, error) {
	id := Normalize(candidate)
	if !Validate(id) {
		return "", ErrInvalidFormat
	}
	if err := p.store.Set(ctx, KeyIdentity, id); err != nil {
		return "", err
	}
	return id, nil
}

// Current returns the persisted identity, or "" when none is stored.
func (p *Provider) Current(ctx context.Context) (string, error) {
	id, ok, err := p.store.Get(ctx, KeyIdentity)
	if err != nil || !ok {
		return "", err
	}
	if !Validate(id) {
		return "", nil
	}
	return id, nil
}

// Clear forgets the identity and purges the Local Cache with it.
func (p *Provider) Clear(ctx context.Context) error {
	return p.store.Delete(ctx, KeyIdentity, KeyCache)
}
