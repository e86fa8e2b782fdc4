package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ecoscape/internal/maintenance/domain"
	"github.com/smallbiznis/ecoscape/pkg/db/option"
	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var groupableColumns = map[string]struct{}{
	"service_type": {},
	"priority":     {},
	"status":       {},
}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, request *domain.MaintenanceRequest) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(request).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MaintenanceRequest, error) {
	var request domain.MaintenanceRequest
	err := db.WithContext(ctx).
		Preload("Notes", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at asc, id asc")
		}).
		Where("id = ?", id).
		Take(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page) ([]*domain.MaintenanceRequest, error) {
	page = page.Normalize()
	stmt := applyFilter(db.WithContext(ctx).Model(&domain.MaintenanceRequest{}), filter)
	for _, opt := range []option.QueryOption{
		option.WithOrder("created_at", true),
		option.WithOrder("id", true),
		option.WithLimit(page.Limit),
		option.WithOffset(page.Offset()),
	} {
		stmt = opt.Apply(stmt)
	}

	var requests []*domain.MaintenanceRequest
	if err := stmt.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, filter domain.ListFilter) (int64, error) {
	var total int64
	err := applyFilter(db.WithContext(ctx).Model(&domain.MaintenanceRequest{}), filter).Count(&total).Error
	return total, err
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*domain.MaintenanceRequest, error) {
	var requests []*domain.MaintenanceRequest
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at desc, id desc").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, expected domain.Status, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return true, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.MaintenanceRequest{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	if err := db.WithContext(ctx).Where("request_id = ?", id).Delete(&domain.MaintenanceNote{}).Error; err != nil {
		return false, err
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.MaintenanceRequest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertNote(ctx context.Context, db *gorm.DB, note *domain.MaintenanceNote) error {
	return db.WithContext(ctx).Create(note).Error
}

func (r *repo) ListNotes(ctx context.Context, db *gorm.DB, requestIDs []snowflake.ID) ([]*domain.MaintenanceNote, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	var notes []*domain.MaintenanceNote
	err := db.WithContext(ctx).
		Where("request_id IN ?", requestIDs).
		Order("created_at asc, id asc").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *repo) CountByMonth(ctx context.Context, db *gorm.DB, monthStart time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.MaintenanceRequest{}).
		Where("created_at >= ? AND created_at < ?", monthStart.UTC(), monthStart.UTC().AddDate(0, 1, 0)).
		Count(&total).Error
	return total, err
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, status domain.Status) (int64, error) {
	var total int64
	stmt := db.WithContext(ctx).Model(&domain.MaintenanceRequest{})
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	err := stmt.Count(&total).Error
	return total, err
}

func (r *repo) CountCompletedSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.MaintenanceRequest{}).
		Where("status = ? AND completed_date >= ?", domain.StatusCompleted, since.UTC()).
		Count(&total).Error
	return total, err
}

func (r *repo) GroupBy(ctx context.Context, db *gorm.DB, column string) ([]domain.GroupCount, error) {
	if _, ok := groupableColumns[column]; !ok {
		return nil, fmt.Errorf("column %q cannot be grouped", column)
	}
	var rows []domain.GroupCount
	err := db.WithContext(ctx).Model(&domain.MaintenanceRequest{}).
		Select(column + " AS group_key, COUNT(*) AS total").
		Group(column).
		Order("total desc, group_key asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListForReport(ctx context.Context, db *gorm.DB, filter domain.ReportFilter) ([]*domain.MaintenanceRequest, error) {
	stmt := db.WithContext(ctx).Model(&domain.MaintenanceRequest{})
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", filter.CreatedTo.UTC())
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ServiceType != "" {
		stmt = stmt.Where("service_type = ?", filter.ServiceType)
	}
	stmt = option.WithLimit(filter.Limit).Apply(stmt.Order("created_at desc, id desc"))

	var requests []*domain.MaintenanceRequest
	if err := stmt.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func applyFilter(stmt *gorm.DB, filter domain.ListFilter) *gorm.DB {
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		stmt = stmt.Where("priority = ?", filter.Priority)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	return stmt
}
