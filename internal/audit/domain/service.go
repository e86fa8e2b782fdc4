package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
)

// ListAuditLogRequest filters the trail. Empty fields match everything.
type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	RequestID  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"auditLogs"`
}

type Service interface {
	// AuditLog records an action. An empty actorType is resolved from the
	// request context and falls back to "system". Metadata is masked before it is stored.
	AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	// List pages newest first.
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
