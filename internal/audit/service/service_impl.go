package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
	"github.com/smallbiznis/ecoscape/internal/audit/masking"
	"github.com/smallbiznis/ecoscape/internal/auditcontext"
	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
	unknownTarget   = "unknown"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		targetType = unknownTarget
	}

	payload := masking.MaskPII(metadata)
	if payload == nil {
		payload = map[string]any{}
	}

	entry := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		Action:     action,
		TargetType: targetType,
		TargetID:   trimmed(targetID),
		Metadata:   datatypes.JSONMap(payload),
		RequestID:  fromContext(ctx, auditcontext.RequestIDFromContext),
		IPAddress:  fromContext(ctx, auditcontext.IPAddressFromContext),
		UserAgent:  fromContext(ctx, auditcontext.UserAgentFromContext),
		CreatedAt:  s.clock.Now(),
	}
	entry.ActorType, entry.ActorID = resolveActor(ctx, strings.TrimSpace(actorType), actorID)

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
	}

	size := req.Size(defaultPageSize, maxPageSize)
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		ActorID:    req.ActorID,
		RequestID:  req.RequestID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      size,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	items, info := pagination.Trim(items, size, (*auditdomain.AuditLog).Cursor)
	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		logs = append(logs, *item)
	}
	return auditdomain.ListAuditLogResponse{PageInfo: info, AuditLogs: logs}, nil
}

// resolveActor prefers the explicit actor, then the authenticated request actor, then system.
func resolveActor(ctx context.Context, actorType string, actorID *string) (string, *string) {
	if actorType != "" {
		return actorType, trimmed(actorID)
	}
	if ctxType, ctxID := auditcontext.ActorFromContext(ctx); ctxType != "" {
		if id := trimmed(actorID); id != nil {
			return ctxType, id
		}
		return ctxType, trimmed(&ctxID)
	}
	return string(auditdomain.ActorTypeSystem), trimmed(actorID)
}

func fromContext(ctx context.Context, get func(context.Context) string) *string {
	value := get(ctx)
	return trimmed(&value)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
