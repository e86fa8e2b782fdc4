package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status     Status
	Priority   Priority
	CustomerID snowflake.ID
}

type ReportFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Status      Status
	ServiceType ServiceType
	Limit       int
}

type GroupCount struct {
	Key   string `gorm:"column:group_key" json:"_id"`
	Count int64  `gorm:"column:total" json:"count"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, request *MaintenanceRequest) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MaintenanceRequest, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page) ([]*MaintenanceRequest, error)
	Count(ctx context.Context, db *gorm.DB, filter ListFilter) (int64, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*MaintenanceRequest, error)
	// UpdateFields applies fields only while the row is still in expected
	// status. It reports false when the guard did not match.
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, expected Status, fields map[string]any) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	InsertNote(ctx context.Context, db *gorm.DB, note *MaintenanceNote) error
	ListNotes(ctx context.Context, db *gorm.DB, requestIDs []snowflake.ID) ([]*MaintenanceNote, error)
	CountByMonth(ctx context.Context, db *gorm.DB, monthStart time.Time) (int64, error)
	CountByStatus(ctx context.Context, db *gorm.DB, status Status) (int64, error)
	CountCompletedSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error)
	GroupBy(ctx context.Context, db *gorm.DB, column string) ([]GroupCount, error)
	ListForReport(ctx context.Context, db *gorm.DB, filter ReportFilter) ([]*MaintenanceRequest, error)
}
