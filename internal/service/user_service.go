package service

import (
	"context"
	"fmt"

	"unitbook/internal/database"
	"unitbook/internal/domain"
	"unitbook/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	store   domain.Store
	auditor domain.EventRecorder
	logger  *zerolog.Logger
}

func NewUserService(store domain.Store, auditor domain.EventRecorder, logger *zerolog.Logger) *UserService {
	return &UserService{store: store, auditor: auditor, logger: logger}
}

func (s *UserService) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.store.CreateUser(ctx, user); err != nil {
		return err
	}
	s.auditor.Record(ctx, models.EntityUser, models.OperationCreate, user.ID,
		fmt.Sprintf("User created: %s (%s)", user.Username, user.Email))
	return nil
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, upd database.UserUpdate) (*models.User, error) {
	user, err := s.store.UpdateUser(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, models.EntityUser, models.OperationUpdate, id,
		fmt.Sprintf("User updated: %s (%s)", user.Username, user.Email))
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.auditor.Record(ctx, models.EntityUser, models.OperationDelete, id,
		fmt.Sprintf("User deleted: %d", id))
	return nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.store.ListUsers(ctx)
}
