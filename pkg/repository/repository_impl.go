package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ecoscape/pkg/db/option"
	"gorm.io/gorm"
)

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var result []*T
	err := s.scoped(ctx, query, opts...).Find(&result).Error
	return result, err
}

func (s *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var result T
	err := s.scoped(ctx, query, opts...).Take(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *store[T]) FindByID(ctx context.Context, id snowflake.ID) (*T, error) {
	if id == 0 {
		return nil, nil
	}
	var result T
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *store[T]) Exists(ctx context.Context, query *T) (bool, error) {
	count, err := s.Count(ctx, query)
	return count > 0, err
}

func (s *store[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Create(resource).Error
}

// Update writes only the given columns, so zero values are applied too.
func (s *store[T]) Update(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields).Error
}

func (s *store[T]) Delete(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error
}

func (s *store[T]) Count(ctx context.Context, query *T) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(new(T)).Where(query).Count(&count).Error
	return count, err
}

func (s *store[T]) scoped(ctx context.Context, filter *T, opts ...option.QueryOption) *gorm.DB {
	stmt := s.db.WithContext(ctx).Where(filter)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
