package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ecoscape/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store for tables keyed by a snowflake "id".
// Lookups return nil, nil when nothing matches.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	FindByID(ctx context.Context, id snowflake.ID) (*T, error)
	Exists(ctx context.Context, query *T) (bool, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, id snowflake.ID) error
	Count(ctx context.Context, query *T) (int64, error)
}
