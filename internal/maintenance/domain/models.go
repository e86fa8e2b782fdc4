package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/ecoscape/internal/customer/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the request still blocks deleting its customer.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusScheduled || s == StatusInProgress
}

// Deletable reports whether a request in this status may be removed.
func (s Status) Deletable() bool {
	return s == StatusPending || s == StatusCancelled
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type ServiceType string

const (
	ServiceTypeLandscaping  ServiceType = "landscaping"
	ServiceTypeMaintenance  ServiceType = "maintenance"
	ServiceTypeDesign       ServiceType = "design"
	ServiceTypeInstallation ServiceType = "installation"
	ServiceTypeCleanup      ServiceType = "cleanup"
	ServiceTypePestControl  ServiceType = "pest-control"
	ServiceTypeIrrigation   ServiceType = "irrigation"
)

func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTypeLandscaping, ServiceTypeMaintenance, ServiceTypeDesign, ServiceTypeInstallation,
		ServiceTypeCleanup, ServiceTypePestControl, ServiceTypeIrrigation:
		return true
	}
	return false
}

const MinDescriptionLength = 10

type ServiceLocation struct {
	Address            string `json:"address,omitempty"`
	AccessInstructions string `json:"accessInstructions,omitempty"`
}

type MaintenanceRequest struct {
	ID              snowflake.ID                        `gorm:"primaryKey" json:"id"`
	CustomerID      snowflake.ID                        `gorm:"not null;index" json:"customerId"`
	Customer        *customerdomain.ReferrerSummary     `gorm:"-" json:"customer,omitempty"`
	RequestNumber   string                              `gorm:"size:32;not null;uniqueIndex" json:"requestNumber"`
	ServiceType     ServiceType                         `gorm:"size:32;not null;index" json:"serviceType"`
	Description     string                              `gorm:"not null" json:"description"`
	Priority        Priority                            `gorm:"size:16;not null;default:medium;index" json:"priority"`
	Status          Status                              `gorm:"size:16;not null;default:pending;index" json:"status"`
	PreferredDate   *time.Time                          `json:"preferredDate,omitempty"`
	ScheduledDate   *time.Time                          `json:"scheduledDate,omitempty"`
	CompletedDate   *time.Time                          `gorm:"index" json:"completedDate,omitempty"`
	AssignedTo      *snowflake.ID                       `json:"assignedTo,omitempty"`
	ServiceLocation datatypes.JSONType[ServiceLocation] `json:"serviceLocation"`
	EstimatedCost   float64                             `gorm:"not null;default:0" json:"estimatedCost"`
	FinalCost       float64                             `gorm:"not null;default:0" json:"finalCost"`
	Notes           []MaintenanceNote                   `gorm:"foreignKey:RequestID" json:"notes,omitempty"`
	CreatedAt       time.Time                           `gorm:"not null;index" json:"createdAt"`
	UpdatedAt       time.Time                           `gorm:"not null" json:"updatedAt"`
}

func (MaintenanceRequest) TableName() string { return "maintenance_requests" }

// ChargedAmount is what a completed request adds to the customer's spend.
func (r MaintenanceRequest) ChargedAmount() float64 {
	if r.FinalCost > 0 {
		return r.FinalCost
	}
	if r.EstimatedCost > 0 {
		return r.EstimatedCost
	}
	return 0
}

type MaintenanceNote struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	RequestID         snowflake.ID  `gorm:"not null;index" json:"requestId"`
	AuthorID          *snowflake.ID `json:"authorId,omitempty"`
	Message           string        `gorm:"not null" json:"message"`
	IsCustomerVisible bool          `gorm:"not null" json:"isCustomerVisible"`
	CreatedAt         time.Time     `gorm:"not null" json:"createdAt"`
}

func (MaintenanceNote) TableName() string { return "maintenance_notes" }
