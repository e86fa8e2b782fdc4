package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const WarningCustomerServiceFailed = "customer_service_record_failed"

type CreateRequest struct {
	CustomerID      string
	ServiceType     string
	Description     string
	Priority        string
	PreferredDate   *time.Time
	ServiceLocation *ServiceLocation
	EstimatedCost   *float64
}

type ListRequest struct {
	Status     string
	Priority   string
	CustomerID string
	Page       int
	Limit      int
}

type ListResponse struct {
	Requests    []MaintenanceRequest `json:"requests"`
	TotalPages  int                  `json:"totalPages"`
	CurrentPage int                  `json:"currentPage"`
	Total       int64                `json:"total"`
}

type UpdateStatusRequest struct {
	ID            string
	Status        string
	ScheduledDate *time.Time
	AssignedTo    *string
	Note          string
	FinalCost     *float64
}

// UpdateRequest is a partial update. Nil fields are left untouched.
type UpdateRequest struct {
	ID              string
	ServiceType     *string
	Description     *string
	Priority        *string
	Status          *string
	PreferredDate   *time.Time
	ScheduledDate   *time.Time
	AssignedTo      *string
	ServiceLocation *ServiceLocation
	EstimatedCost   *float64
	FinalCost       *float64
}

type AddNoteRequest struct {
	ID                string
	Message           string
	IsCustomerVisible *bool
}

// Result carries a request together with non-fatal follow-up failures.
type Result struct {
	Request  MaintenanceRequest
	Warnings []string
}

type Stats struct {
	TotalRequests      int64        `json:"totalRequests"`
	PendingRequests    int64        `json:"pendingRequests"`
	InProgressRequests int64        `json:"inProgressRequests"`
	CompletedThisMonth int64        `json:"completedThisMonth"`
	ServiceTypeStats   []GroupCount `json:"serviceTypeStats"`
	PriorityStats      []GroupCount `json:"priorityStats"`
}

type ReportRequest struct {
	StartDate   *time.Time
	EndDate     *time.Time
	Status      string
	ServiceType string
}

type ReportPeriod struct {
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

type ReportFilters struct {
	Status      string `json:"status,omitempty"`
	ServiceType string `json:"serviceType,omitempty"`
}

type Report struct {
	Requests     []MaintenanceRequest `json:"requests"`
	TotalCount   int                  `json:"totalCount"`
	TotalRevenue float64              `json:"totalRevenue"`
	GeneratedAt  time.Time            `json:"generatedAt"`
	ReportPeriod ReportPeriod         `json:"reportPeriod"`
	Filters      ReportFilters        `json:"filters"`
}

type Service interface {
	Create(context.Context, CreateRequest) (MaintenanceRequest, error)
	List(context.Context, ListRequest) (ListResponse, error)
	GetByID(context.Context, string) (MaintenanceRequest, error)
	ListByCustomer(context.Context, snowflake.ID) ([]MaintenanceRequest, error)
	UpdateStatus(context.Context, UpdateStatusRequest) (Result, error)
	Update(context.Context, UpdateRequest) (Result, error)
	Delete(context.Context, string) error
	AddNote(context.Context, AddNoteRequest) (MaintenanceRequest, error)
	Stats(context.Context) (Stats, error)
	Report(context.Context, ReportRequest) (Report, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidCustomer    = errors.New("invalid_customer")
	ErrInvalidServiceType = errors.New("invalid_service_type")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidPriority    = errors.New("invalid_priority")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidAssignee    = errors.New("invalid_assignee")
	ErrInvalidCost        = errors.New("invalid_cost")
	ErrInvalidNote        = errors.New("invalid_note")
	ErrInvalidDateRange   = errors.New("invalid_date_range")
	ErrCustomerNotFound   = errors.New("customer_not_found")
	ErrNotFound           = errors.New("not_found")
	ErrNotDeletable       = errors.New("not_deletable")
	ErrConflict           = errors.New("conflict")
)
