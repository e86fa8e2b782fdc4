package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListCustomerFilter struct {
	Search        string
	Status        Status
	LoyaltyStatus LoyaltyStatus
}

type ReportFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	Save(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Customer, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, page pagination.Page) ([]*Customer, error)
	Count(ctx context.Context, db *gorm.DB, filter ListCustomerFilter) (int64, error)
	Stats(ctx context.Context, db *gorm.DB, monthStart time.Time) (CustomerStats, error)
	ListForReport(ctx context.Context, db *gorm.DB, filter ReportFilter) ([]*Customer, error)
	CountForReport(ctx context.Context, db *gorm.DB, filter ReportFilter) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	CountActiveMaintenance(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (int64, error)
	HighestRegistrationNumber(ctx context.Context, db *gorm.DB) (string, error)
	ApplyCompletedService(ctx context.Context, db *gorm.DB, id snowflake.ID, amount float64, at time.Time) (bool, error)
	InsertReferralEvent(ctx context.Context, db *gorm.DB, event *ReferralEvent) error
	IncrementReferralCredit(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, points int) (bool, error)
}
