package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ecoscape/internal/customer/domain"
	"github.com/smallbiznis/ecoscape/pkg/db/option"
	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Save(customer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Where("id = ?", id).Take(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var customers []*domain.Customer
	err := db.WithContext(ctx).
		Select("id", "name", "email", "registration_number").
		Where("id IN ?", ids).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, page pagination.Page) ([]*domain.Customer, error) {
	page = page.Normalize()
	stmt := applyFilter(db.WithContext(ctx).Model(&domain.Customer{}), filter)
	for _, opt := range []option.QueryOption{
		option.WithOrder("created_at", true),
		option.WithOrder("id", true),
		option.WithLimit(page.Limit),
		option.WithOffset(page.Offset()),
	} {
		stmt = opt.Apply(stmt)
	}

	var customers []*domain.Customer
	if err := stmt.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter) (int64, error) {
	var total int64
	err := applyFilter(db.WithContext(ctx).Model(&domain.Customer{}), filter).Count(&total).Error
	return total, err
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, monthStart time.Time) (domain.CustomerStats, error) {
	var stats domain.CustomerStats
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS total_customers,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active_customers,
			COALESCE(SUM(CASE WHEN loyalty_status IN (?, ?, ?) THEN 1 ELSE 0 END), 0) AS loyalty_members,
			COALESCE(SUM(total_spent), 0) AS total_revenue,
			COALESCE(SUM(CASE WHEN registration_date >= ? THEN 1 ELSE 0 END), 0) AS new_this_month
		 FROM customers`,
		domain.StatusActive,
		domain.LoyaltyStatusSilver,
		domain.LoyaltyStatusGold,
		domain.LoyaltyStatusPlatinum,
		monthStart.UTC(),
	).Scan(&stats).Error
	return stats, err
}

func (r *repo) ListForReport(ctx context.Context, db *gorm.DB, filter domain.ReportFilter) ([]*domain.Customer, error) {
	stmt := applyReportFilter(db.WithContext(ctx).Model(&domain.Customer{}), filter).
		Order("created_at desc, id desc")
	stmt = option.WithLimit(filter.Limit).Apply(stmt)

	var customers []*domain.Customer
	if err := stmt.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) CountForReport(ctx context.Context, db *gorm.DB, filter domain.ReportFilter) (int64, error) {
	var total int64
	err := applyReportFilter(db.WithContext(ctx).Model(&domain.Customer{}), filter).Count(&total).Error
	return total, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Customer{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountActiveMaintenance counts pending, scheduled and in-progress requests.
func (r *repo) CountActiveMaintenance(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM maintenance_requests
		 WHERE customer_id = ? AND status IN (?, ?, ?)`,
		customerID, "pending", "scheduled", "in-progress",
	).Scan(&total).Error
	return total, err
}

func (r *repo) HighestRegistrationNumber(ctx context.Context, db *gorm.DB) (string, error) {
	var numbers []string
	err := db.WithContext(ctx).Raw(
		`SELECT registration_number FROM customers
		 ORDER BY LENGTH(registration_number) DESC, registration_number DESC
		 LIMIT 1`,
	).Scan(&numbers).Error
	if err != nil || len(numbers) == 0 {
		return "", err
	}
	return numbers[0], nil
}

func (r *repo) ApplyCompletedService(ctx context.Context, db *gorm.DB, id snowflake.ID, amount float64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET service_count = service_count + 1,
			 total_spent = total_spent + ?,
			 last_service_date = ?,
			 updated_at = ?
		 WHERE id = ?`,
		amount, at, at, id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertReferralEvent(ctx context.Context, db *gorm.DB, event *domain.ReferralEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) IncrementReferralCredit(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, points int) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET total_referrals = total_referrals + 1,
			 loyalty_points = loyalty_points + ?,
			 updated_at = ?
		 WHERE id = ?`,
		points, time.Now().UTC(), referrerID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func applyFilter(stmt *gorm.DB, filter domain.ListCustomerFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		stmt = stmt.Where(
			`(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'
			 OR LOWER(phone) LIKE ? ESCAPE '!' OR LOWER(registration_number) LIKE ? ESCAPE '!')`,
			pattern, pattern, pattern, pattern,
		)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.LoyaltyStatus != "" {
		stmt = stmt.Where("loyalty_status = ?", filter.LoyaltyStatus)
	}
	return stmt
}

func applyReportFilter(stmt *gorm.DB, filter domain.ReportFilter) *gorm.DB {
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", filter.CreatedTo.UTC())
	}
	return stmt
}
