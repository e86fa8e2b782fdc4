package repository

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/ecoscape/internal/audit/domain"
	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// List returns up to filter.Limit+1 entries so the caller can tell whether another page exists.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{}).Scopes(
		equals("action", filter.Action),
		equals("target_type", filter.TargetType),
		equals("target_id", filter.TargetID),
		equals("actor_type", filter.ActorType),
		equals("actor_id", filter.ActorID),
		equals("request_id", filter.RequestID),
		within(filter.StartAt, filter.EndAt),
		after(filter.Cursor),
	).Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var logs []*domain.AuditLog
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func equals(column, value string) func(*gorm.DB) *gorm.DB {
	value = strings.TrimSpace(value)
	return func(tx *gorm.DB) *gorm.DB {
		if value == "" {
			return tx
		}
		return tx.Where(column+" = ?", value)
	}
}

func within(start, end *time.Time) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if start != nil {
			tx = tx.Where("created_at >= ?", start.UTC())
		}
		if end != nil {
			tx = tx.Where("created_at <= ?", end.UTC())
		}
		return tx
	}
}

func after(cursor *pagination.Cursor) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if cursor == nil {
			return tx
		}
		return tx.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
}
