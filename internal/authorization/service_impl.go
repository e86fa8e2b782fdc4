package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
)

//go:embed model.conf
var modelText string

const (
	ObjectCustomer    = "customer"
	ObjectMaintenance = "maintenance"
	ObjectAuditLog    = "audit_log"
)

const (
	ActionCustomerView   = "customer.view"
	ActionCustomerCreate = "customer.create"
	ActionCustomerUpdate = "customer.update"
	ActionCustomerDelete = "customer.delete"
	ActionCustomerStats  = "customer.stats"
	ActionCustomerReport = "customer.report"

	ActionMaintenanceView         = "maintenance.view"
	ActionMaintenanceCreate       = "maintenance.create"
	ActionMaintenanceUpdate       = "maintenance.update"
	ActionMaintenanceUpdateStatus = "maintenance.update_status"
	ActionMaintenanceNote         = "maintenance.note"
	ActionMaintenanceDelete       = "maintenance.delete"
	ActionMaintenanceStats        = "maintenance.stats"
	ActionMaintenanceReport       = "maintenance.report"

	ActionAuditLogView = "audit_log.view"
)

const (
	roleAdmin      = "admin"
	roleLandscaper = "landscaper"
	roleCustomer   = "customer"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

// Authorize checks actor ("user:<id>") holding role against the seeded policy set.
func (s *ServiceImpl) Authorize(ctx context.Context, actor string, role string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	actorID, ok := userIDFromActor(actor)
	if !ok {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !knownRole(role) {
		s.auditDenied(ctx, actorID, object, action)
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	if err := s.ensureGrouping(actor, roleSubject(role)); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("actor", actor),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDenied(ctx, actorID, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per user; the role claim in the
// token is authoritative.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	target := object
	_ = s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeUser), &actorID, "authorization.denied", auditdomain.TargetAuthorization, &target, map[string]any{
		"object": object,
		"action": action,
	})
}

func userIDFromActor(actor string) (string, bool) {
	raw, ok := strings.CutPrefix(actor, "user:")
	if !ok {
		return "", false
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return "", false
	}
	return id.String(), true
}

func knownRole(role string) bool {
	switch role {
	case roleAdmin, roleLandscaper, roleCustomer:
		return true
	default:
		return false
	}
}

func roleSubject(role string) string {
	return fmt.Sprintf("role:%s", role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	admin := roleSubject(roleAdmin)
	landscaper := roleSubject(roleLandscaper)
	customer := roleSubject(roleCustomer)

	policies := [][]string{
		// Admin permissions
		{admin, ObjectCustomer, ActionCustomerView},
		{admin, ObjectCustomer, ActionCustomerCreate},
		{admin, ObjectCustomer, ActionCustomerUpdate},
		{admin, ObjectCustomer, ActionCustomerDelete},
		{admin, ObjectCustomer, ActionCustomerStats},
		{admin, ObjectCustomer, ActionCustomerReport},
		{admin, ObjectMaintenance, ActionMaintenanceView},
		{admin, ObjectMaintenance, ActionMaintenanceCreate},
		{admin, ObjectMaintenance, ActionMaintenanceUpdate},
		{admin, ObjectMaintenance, ActionMaintenanceUpdateStatus},
		{admin, ObjectMaintenance, ActionMaintenanceNote},
		{admin, ObjectMaintenance, ActionMaintenanceDelete},
		{admin, ObjectMaintenance, ActionMaintenanceStats},
		{admin, ObjectMaintenance, ActionMaintenanceReport},
		{admin, ObjectAuditLog, ActionAuditLogView},

		// Landscaper permissions (field crew)
		{landscaper, ObjectMaintenance, ActionMaintenanceView},
		{landscaper, ObjectMaintenance, ActionMaintenanceUpdateStatus},
		{landscaper, ObjectMaintenance, ActionMaintenanceNote},

		// Customer permissions
		{customer, ObjectMaintenance, ActionMaintenanceView},
		{customer, ObjectMaintenance, ActionMaintenanceCreate},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
