package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const WarningReferralCreditFailed = "referral_credit_failed"

type CreateCustomerRequest struct {
	Name           string
	Email          string
	Phone          string
	DateOfBirth    *time.Time
	Address        Address
	Preferences    *Preferences
	Status         string
	ReferredBy     string
}

type CreateCustomerResult struct {
	Customer Customer
	Warnings []string
}

// UpdateCustomerRequest is a partial update. Nil fields are left untouched.
// ReferredBy set to "" clears the reference.
type UpdateCustomerRequest struct {
	ID              string
	Name            *string
	Email           *string
	Phone           *string
	DateOfBirth     *time.Time
	Address         *Address
	Preferences     *Preferences
	Status          *string
	ReferralSource  *string
	ReferredBy      *string
	TotalSpent      *float64
	ServiceCount    *int
	LoyaltyPoints   *int
	LastServiceDate *time.Time
}

type GetCustomerRequest struct {
	ID string
}

type ListCustomerRequest struct {
	Search        string
	Status        string
	LoyaltyStatus string
	Page          int
	Limit         int
}

type ListCustomerResponse struct {
	Customers   []Customer `json:"customers"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
	Total       int64      `json:"total"`
}

type CustomerStats struct {
	TotalCustomers  int64   `json:"totalCustomers"`
	ActiveCustomers int64   `json:"activeCustomers"`
	LoyaltyMembers  int64   `json:"loyaltyMembers"`
	TotalRevenue    float64 `json:"totalRevenue"`
	NewThisMonth    int64   `json:"newThisMonth"`
}

type ReportRequest struct {
	StartDate *time.Time
	EndDate   *time.Time
}

type ReportPeriod struct {
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

type CustomerReport struct {
	Customers    []Customer   `json:"customers"`
	TotalCount   int64        `json:"totalCount"`
	Truncated    bool         `json:"truncated"`
	GeneratedAt  time.Time    `json:"generatedAt"`
	ReportPeriod ReportPeriod `json:"reportPeriod"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (CreateCustomerResult, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	Delete(context.Context, string) error
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	Stats(context.Context) (CustomerStats, error)
	Report(context.Context, ReportRequest) (CustomerReport, error)
	// RecordCompletedService is called when a maintenance request of the
	// customer reaches completed.
	RecordCompletedService(ctx context.Context, id snowflake.ID, amount float64) (Customer, error)
	// Summaries resolves display summaries for a set of customer ids.
	Summaries(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]ReferrerSummary, error)
}

var (
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidEmail          = errors.New("invalid_email")
	ErrInvalidPhone          = errors.New("invalid_phone")
	ErrInvalidAddress        = errors.New("invalid_address")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrInvalidLoyaltyStatus  = errors.New("invalid_loyalty_status")
	ErrInvalidReferralSource = errors.New("invalid_referral_source")
	ErrInvalidPreferences    = errors.New("invalid_preferences")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidDateRange      = errors.New("invalid_date_range")
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidReferrer       = errors.New("invalid_referrer")
	ErrInvalidReferrerID     = errors.New("invalid_referrer_id")
	ErrDuplicateEmail        = errors.New("duplicate_email")
	ErrNotFound              = errors.New("not_found")
	ErrHasActiveWork         = errors.New("has_active_work")
	ErrConflict              = errors.New("conflict")
)
