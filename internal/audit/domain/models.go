package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// Target types written by the account engine.
const (
	TargetCustomer           = "customer"
	TargetMaintenanceRequest = "maintenance_request"
	TargetUser               = "user"
	TargetAuthorization      = "authorization"
)

// AuditLog is an append-only record of a state change or a security decision.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"size:32;not null;index:idx_audit_logs_actor" json:"actorType"`
	ActorID    *string           `gorm:"size:64;index:idx_audit_logs_actor" json:"actorId,omitempty"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	TargetType string            `gorm:"size:64;not null;index:idx_audit_logs_target" json:"targetType"`
	TargetID   *string           `gorm:"size:64;index:idx_audit_logs_target" json:"targetId,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	RequestID  *string           `gorm:"size:64;index" json:"requestId,omitempty"`
	IPAddress  *string           `gorm:"size:64" json:"ipAddress,omitempty"`
	UserAgent  *string           `json:"userAgent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Cursor positions the next page after this entry.
func (l *AuditLog) Cursor() pagination.Cursor {
	return pagination.Cursor{ID: l.ID, CreatedAt: l.CreatedAt}
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	RequestID  string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *pagination.Cursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
