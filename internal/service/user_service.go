package service

import (
	"context"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	user.Password = ""
	return user, nil
}

// GetPublic returns what other users may know about id: the public key
// secrets are sealed to.
func (s *UserService) GetPublic(ctx context.Context, id string) (*domain.PublicUser, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	return &domain.PublicUser{
		ID:        user.ID,
		Username:  user.Username,
		PublicKey: user.PublicKey,
	}, nil
}
