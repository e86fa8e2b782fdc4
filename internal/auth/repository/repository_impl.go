package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ecoscape/internal/auth/domain"
	"github.com/smallbiznis/ecoscape/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	users repository.Repository[domain.User]
}

func New(db *gorm.DB) domain.Repository {
	return &repo{users: repository.ProvideStore[domain.User](db)}
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	return r.users.Count(ctx, &domain.User{})
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	return r.users.Create(ctx, user)
}

func (r *repo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.ErrUserNotFound
	}
	user, err := r.users.FindOne(ctx, &domain.User{Email: email})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	user, err := r.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
