package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "notegrid.app/notegrid/internal/errors"
	"notegrid.app/notegrid/internal/identity"
	repository "notegrid.app/notegrid/internal/repositories"
	model "notegrid.app/notegrid/pkg/models"
)

type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// AccountService covers the identity lifecycle: registration, existence
// checks and account deletion.
type AccountService struct {
	store   repository.Store
	version string
	now     func() time.Time
}

func NewAccountService(store repository.Store, version string) *AccountService {
	return &AccountService{
		store:   store,
		version: version,
		now:     time.Now,
	}
}

func (s *AccountService) Register(ctx context.Context, candidate string) (model.UserData, error) {
	if !identity.Validate(candidate) {
		return model.UserData{}, apperrors.ErrInvalidUUID
	}

	data, err := s.store.CreateUser(ctx, identity.Normalize(candidate), s.now().UnixMilli())
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return model.UserData{}, apperrors.ErrAlreadyRegistered
		}
		return model.UserData{}, fmt.Errorf("create user: %w", err)
	}
	return data, nil
}

// Exists never fails on a malformed candidate; it is simply not registered.
func (s *AccountService) Exists(ctx context.Context, candidate string) (bool, error) {
	if !identity.Validate(candidate) {
		return false, nil
	}
	exists, err := s.store.UserExists(ctx, identity.Normalize(candidate))
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *AccountService) Health() HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: s.now().UnixMilli(),
		Version:   s.version,
	}
}
