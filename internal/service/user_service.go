package service

import (
	"context"
	"errors"
	"strings"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository"
	"planty-of-food/internal/validation"
)

type CreateUserInput struct {
	Name    string `json:"name" validate:"notblank,max=100"`
	Surname string `json:"surname" validate:"notblank,max=100"`
	Email   string `json:"email" validate:"required,email"`
}

type UpdateUserInput struct {
	Name    *string `json:"name" validate:"omitempty,notblank,max=100"`
	Surname *string `json:"surname" validate:"omitempty,notblank,max=100"`
	Email   *string `json:"email" validate:"omitempty,email"`
}

type UserService struct {
	users repository.UserRepository
}

// NewUserService creates a new instance of UserService
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*entity.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	input.Email = strings.TrimSpace(input.Email)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	user := &entity.User{Name: input.Name, Surname: input.Surname, Email: input.Email}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, entity.ErrDuplicateEmail
		}
		logger.Error().Err(err).Msg("Error creating user")
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, entity.ErrUserNotFound)
	}
	return user, nil
}

// ListUsers filters by case-insensitive substrings of name and email.
func (s *UserService) ListUsers(ctx context.Context, filter repository.UserFilter) ([]entity.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing users")
		return nil, err
	}
	return users, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*entity.User, error) {
	trim(input.Name, input.Surname, input.Email)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.users.Update(ctx, id, repository.UserPatch{
		Name:    input.Name,
		Surname: input.Surname,
		Email:   input.Email,
	})
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, entity.ErrDuplicateEmail
	case err != nil:
		return nil, notFound(err, entity.ErrUserNotFound)
	}
	return user, nil
}

// DeleteUser removes the user. Orders that reference it are kept and render
// without the expanded user.
func (s *UserService) DeleteUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.users.Delete(ctx, id)
	if err != nil {
		return nil, notFound(err, entity.ErrUserNotFound)
	}
	return user, nil
}

func trim(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}
