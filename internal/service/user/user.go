package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/gopherreset/internal/apperrors"
	"github.com/nkiryanov/gopherreset/internal/models"
	"github.com/nkiryanov/gopherreset/internal/repository"
	"github.com/nkiryanov/gopherreset/internal/service/password"
)

type UserService struct {
	hasher   *password.Hasher
	userRepo repository.UserRepo
}

func NewService(hasher *password.Hasher, userRepo repository.UserRepo) *UserService {
	if hasher == nil {
		hasher = password.DefaultHasher
	}

	return &UserService{
		hasher:   hasher,
		userRepo: userRepo,
	}
}

// Create user with new random salt
// Email is not confirmed on creation
func (s *UserService) CreateUser(ctx context.Context, email string, pwd string) (models.User, error) {
	var user models.User

	if pwd == "" {
		return user, errors.New("can't use empty password")
	}

	salt, err := password.NewSalt()
	if err != nil {
		return user, err
	}

	user, err = s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Email:          email,
		Salt:           salt,
		HashedPassword: s.hasher.Hash(pwd, salt),
	})
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// Return user if password matches
// If user not exists or password is wrong returns apperrors.ErrUserNotFound
func (s *UserService) Login(ctx context.Context, email string, pwd string) (models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return models.User{}, err
	}

	if !s.hasher.Compare(user.HashedPassword, pwd, user.Salt) {
		return models.User{}, apperrors.ErrUserNotFound
	}

	return user, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.userRepo.GetUserByEmail(ctx, email)
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, id)
}
