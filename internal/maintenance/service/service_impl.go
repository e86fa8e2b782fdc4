package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
	"github.com/smallbiznis/ecoscape/internal/auditcontext"
	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/internal/config"
	customerdomain "github.com/smallbiznis/ecoscape/internal/customer/domain"
	"github.com/smallbiznis/ecoscape/internal/maintenance/domain"
	obsmetrics "github.com/smallbiznis/ecoscape/internal/observability/metrics"
	"github.com/smallbiznis/ecoscape/internal/sequence"
	"github.com/smallbiznis/ecoscape/pkg/db"
	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Sequence  *sequence.Allocator
	Customers customerdomain.Service
	Report    *config.ReportConfigHolder
	Metrics   *obsmetrics.Metrics
	AuditSvc  auditdomain.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	seq       *sequence.Allocator
	customers customerdomain.Service
	report    *config.ReportConfigHolder
	metrics   *obsmetrics.Metrics
	auditSvc  auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("maintenance.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		seq:       p.Sequence,
		customers: p.Customers,
		report:    p.Report,
		metrics:   p.Metrics,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.MaintenanceRequest, error) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID <= 0 {
		return domain.MaintenanceRequest{}, domain.ErrInvalidCustomer
	}
	serviceType := domain.ServiceType(strings.TrimSpace(req.ServiceType))
	if !serviceType.Valid() {
		return domain.MaintenanceRequest{}, domain.ErrInvalidServiceType
	}
	description, err := normalizeDescription(req.Description)
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}
	priority := domain.PriorityMedium
	if raw := strings.TrimSpace(req.Priority); raw != "" {
		priority = domain.Priority(raw)
		if !priority.Valid() {
			return domain.MaintenanceRequest{}, domain.ErrInvalidPriority
		}
	}
	var estimated float64
	if req.EstimatedCost != nil {
		if *req.EstimatedCost < 0 {
			return domain.MaintenanceRequest{}, domain.ErrInvalidCost
		}
		estimated = *req.EstimatedCost
	}
	var location domain.ServiceLocation
	if req.ServiceLocation != nil {
		location = normalizeLocation(*req.ServiceLocation)
	}

	customer, err := s.customers.GetByID(ctx, customerdomain.GetCustomerRequest{ID: customerID.String()})
	if err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) {
			return domain.MaintenanceRequest{}, domain.ErrCustomerNotFound
		}
		return domain.MaintenanceRequest{}, err
	}

	now := s.clock.Now()
	request := domain.MaintenanceRequest{
		ID:              s.genID.Generate(),
		CustomerID:      customer.ID,
		ServiceType:     serviceType,
		Description:     description,
		Priority:        priority,
		Status:          domain.StatusPending,
		PreferredDate:   req.PreferredDate,
		ServiceLocation: datatypes.NewJSONType(location),
		EstimatedCost:   estimated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		monthStart := clock.StartOfMonth(now)
		next, err := s.seq.Next(ctx, tx, sequence.MaintenanceRequestName(now), func(ctx context.Context, tx *gorm.DB) (int64, error) {
			return s.repo.CountByMonth(ctx, tx, monthStart)
		})
		if err != nil {
			return err
		}
		number, err := sequence.Format(sequence.MaintenanceRequestTemplate, now, next)
		if err != nil {
			return err
		}
		request.RequestNumber = number
		if err := s.repo.Insert(ctx, tx, &request); err != nil {
			return err
		}
		return s.repo.InsertNote(ctx, tx, s.newNote(ctx, request.ID, "Maintenance request created", true))
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.MaintenanceRequest{}, domain.ErrConflict
		}
		return domain.MaintenanceRequest{}, fmt.Errorf("insert maintenance request: %w", err)
	}

	s.audit(ctx, "maintenance.create", request.ID, map[string]any{
		"request_number": request.RequestNumber,
		"customer_id":    request.CustomerID.String(),
		"service_type":   string(request.ServiceType),
	})
	return s.load(ctx, request.ID)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var filter domain.ListFilter
	if raw := strings.TrimSpace(req.Status); raw != "" && raw != "all" {
		filter.Status = domain.Status(raw)
		if !filter.Status.Valid() {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
	}
	if raw := strings.TrimSpace(req.Priority); raw != "" && raw != "all" {
		filter.Priority = domain.Priority(raw)
		if !filter.Priority.Valid() {
			return domain.ListResponse{}, domain.ErrInvalidPriority
		}
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return domain.ListResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = id
	}

	page := pagination.Page{Page: req.Page, Limit: req.Limit}.Normalize()
	total, err := s.repo.Count(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, fmt.Errorf("count maintenance requests: %w", err)
	}
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListResponse{}, fmt.Errorf("list maintenance requests: %w", err)
	}
	if err := s.attachCustomers(ctx, items); err != nil {
		return domain.ListResponse{}, err
	}

	return domain.ListResponse{
		Requests:    dereference(items),
		TotalPages:  pagination.TotalPages(total, page.Limit),
		CurrentPage: page.Page,
		Total:       total,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.MaintenanceRequest, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}
	return s.load(ctx, id)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID snowflake.ID) ([]domain.MaintenanceRequest, error) {
	items, err := s.repo.ListByCustomer(ctx, s.db, customerID)
	if err != nil {
		return nil, fmt.Errorf("list customer maintenance requests: %w", err)
	}
	return dereference(items), nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (domain.Result, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Result{}, err
	}
	next := domain.Status(strings.TrimSpace(req.Status))
	if !next.Valid() {
		return domain.Result{}, domain.ErrInvalidStatus
	}

	current, err := s.find(ctx, id)
	if err != nil {
		return domain.Result{}, err
	}

	fields := map[string]any{}
	if req.ScheduledDate != nil {
		fields["scheduled_date"] = req.ScheduledDate.UTC()
	}
	if req.AssignedTo != nil {
		assignee, err := parseAssignee(*req.AssignedTo)
		if err != nil {
			return domain.Result{}, err
		}
		fields["assigned_to"] = assignee
	}
	if req.FinalCost != nil {
		if *req.FinalCost < 0 {
			return domain.Result{}, domain.ErrInvalidCost
		}
		fields["final_cost"] = *req.FinalCost
	}

	note := strings.TrimSpace(req.Note)
	if note == "" {
		note = fmt.Sprintf("Status updated to %s", next)
	}
	return s.commit(ctx, current, fields, next, note)
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.Result, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Result{}, err
	}
	current, err := s.find(ctx, id)
	if err != nil {
		return domain.Result{}, err
	}

	fields := map[string]any{}
	if req.ServiceType != nil {
		serviceType := domain.ServiceType(strings.TrimSpace(*req.ServiceType))
		if !serviceType.Valid() {
			return domain.Result{}, domain.ErrInvalidServiceType
		}
		fields["service_type"] = serviceType
	}
	if req.Description != nil {
		description, err := normalizeDescription(*req.Description)
		if err != nil {
			return domain.Result{}, err
		}
		fields["description"] = description
	}
	if req.Priority != nil {
		priority := domain.Priority(strings.TrimSpace(*req.Priority))
		if !priority.Valid() {
			return domain.Result{}, domain.ErrInvalidPriority
		}
		fields["priority"] = priority
	}
	next := current.Status
	if req.Status != nil {
		next = domain.Status(strings.TrimSpace(*req.Status))
		if !next.Valid() {
			return domain.Result{}, domain.ErrInvalidStatus
		}
	}
	if req.PreferredDate != nil {
		fields["preferred_date"] = req.PreferredDate.UTC()
	}
	if req.ScheduledDate != nil {
		fields["scheduled_date"] = req.ScheduledDate.UTC()
	}
	if req.AssignedTo != nil {
		assignee, err := parseAssignee(*req.AssignedTo)
		if err != nil {
			return domain.Result{}, err
		}
		fields["assigned_to"] = assignee
	}
	if req.ServiceLocation != nil {
		fields["service_location"] = datatypes.NewJSONType(normalizeLocation(*req.ServiceLocation))
	}
	if req.EstimatedCost != nil {
		if *req.EstimatedCost < 0 {
			return domain.Result{}, domain.ErrInvalidCost
		}
		fields["estimated_cost"] = *req.EstimatedCost
	}
	if req.FinalCost != nil {
		if *req.FinalCost < 0 {
			return domain.Result{}, domain.ErrInvalidCost
		}
		fields["final_cost"] = *req.FinalCost
	}

	return s.commit(ctx, current, fields, next, "Maintenance request updated")
}

// commit persists the changes guarded by the status the caller observed and
// records the completed service on the customer when the request enters
// completed. Re-completing an already completed request never counts twice.
func (s *Service) commit(ctx context.Context, current *domain.MaintenanceRequest, fields map[string]any, next domain.Status, note string) (domain.Result, error) {
	now := s.clock.Now()
	completing := next == domain.StatusCompleted && current.Status != domain.StatusCompleted

	fields["status"] = next
	fields["updated_at"] = now
	if completing {
		fields["completed_date"] = now
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.UpdateFields(ctx, tx, current.ID, current.Status, fields)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConflict
		}
		return s.repo.InsertNote(ctx, tx, s.newNote(ctx, current.ID, note, true))
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Result{}, err
		}
		return domain.Result{}, fmt.Errorf("update maintenance request: %w", err)
	}

	updated, err := s.load(ctx, current.ID)
	if err != nil {
		return domain.Result{}, err
	}
	result := domain.Result{Request: updated}

	if completing {
		if _, err := s.customers.RecordCompletedService(ctx, updated.CustomerID, updated.ChargedAmount()); err != nil {
			s.log.Error("failed to record completed service",
				zap.String("request_id", updated.ID.String()),
				zap.String("customer_id", updated.CustomerID.String()),
				zap.Error(err),
			)
			result.Warnings = append(result.Warnings, domain.WarningCustomerServiceFailed)
		} else {
			s.metrics.RecordServiceCompleted(ctx, string(updated.ServiceType))
		}
	}

	if current.Status != next {
		s.audit(ctx, "maintenance.status_changed", current.ID, map[string]any{
			"from": string(current.Status),
			"to":   string(next),
		})
	}
	return result, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	current, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.Deletable() {
		return domain.ErrNotDeletable
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.repo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete maintenance request: %w", err)
	}

	s.audit(ctx, "maintenance.delete", id, map[string]any{
		"request_number": current.RequestNumber,
		"status":         string(current.Status),
	})
	return nil
}

func (s *Service) AddNote(ctx context.Context, req domain.AddNoteRequest) (domain.MaintenanceRequest, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return domain.MaintenanceRequest{}, domain.ErrInvalidNote
	}
	visible := true
	if req.IsCustomerVisible != nil {
		visible = *req.IsCustomerVisible
	}

	if _, err := s.find(ctx, id); err != nil {
		return domain.MaintenanceRequest{}, err
	}
	if err := s.repo.InsertNote(ctx, s.db, s.newNote(ctx, id, message, visible)); err != nil {
		return domain.MaintenanceRequest{}, fmt.Errorf("insert maintenance note: %w", err)
	}
	return s.load(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	var err error

	if stats.TotalRequests, err = s.repo.CountByStatus(ctx, s.db, ""); err != nil {
		return domain.Stats{}, fmt.Errorf("maintenance stats: %w", err)
	}
	if stats.PendingRequests, err = s.repo.CountByStatus(ctx, s.db, domain.StatusPending); err != nil {
		return domain.Stats{}, fmt.Errorf("maintenance stats: %w", err)
	}
	if stats.InProgressRequests, err = s.repo.CountByStatus(ctx, s.db, domain.StatusInProgress); err != nil {
		return domain.Stats{}, fmt.Errorf("maintenance stats: %w", err)
	}
	if stats.CompletedThisMonth, err = s.repo.CountCompletedSince(ctx, s.db, clock.StartOfMonth(s.clock.Now())); err != nil {
		return domain.Stats{}, fmt.Errorf("maintenance stats: %w", err)
	}
	if stats.ServiceTypeStats, err = s.repo.GroupBy(ctx, s.db, "service_type"); err != nil {
		return domain.Stats{}, fmt.Errorf("maintenance stats: %w", err)
	}
	if stats.PriorityStats, err = s.repo.GroupBy(ctx, s.db, "priority"); err != nil {
		return domain.Stats{}, fmt.Errorf("maintenance stats: %w", err)
	}
	return stats, nil
}

func (s *Service) Report(ctx context.Context, req domain.ReportRequest) (domain.Report, error) {
	filter := domain.ReportFilter{CreatedFrom: req.StartDate}
	if req.EndDate != nil {
		end := clock.EndOfDay(*req.EndDate)
		filter.CreatedTo = &end
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return domain.Report{}, domain.ErrInvalidDateRange
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		filter.Status = domain.Status(raw)
		if !filter.Status.Valid() {
			return domain.Report{}, domain.ErrInvalidStatus
		}
	}
	if raw := strings.TrimSpace(req.ServiceType); raw != "" {
		filter.ServiceType = domain.ServiceType(raw)
		if !filter.ServiceType.Valid() {
			return domain.Report{}, domain.ErrInvalidServiceType
		}
	}
	if s.report != nil {
		filter.Limit = s.report.Get().MaxRows
	}

	items, err := s.repo.ListForReport(ctx, s.db, filter)
	if err != nil {
		return domain.Report{}, fmt.Errorf("list report requests: %w", err)
	}
	if err := s.attachCustomers(ctx, items); err != nil {
		return domain.Report{}, err
	}

	var revenue float64
	for _, item := range items {
		if item.Status == domain.StatusCompleted {
			revenue += item.ChargedAmount()
		}
	}

	return domain.Report{
		Requests:     dereference(items),
		TotalCount:   len(items),
		TotalRevenue: revenue,
		GeneratedAt:  s.clock.Now(),
		ReportPeriod: domain.ReportPeriod{StartDate: req.StartDate, EndDate: req.EndDate},
		Filters:      domain.ReportFilters{Status: string(filter.Status), ServiceType: string(filter.ServiceType)},
	}, nil
}

func (s *Service) find(ctx context.Context, id snowflake.ID) (*domain.MaintenanceRequest, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("find maintenance request: %w", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (domain.MaintenanceRequest, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return domain.MaintenanceRequest{}, err
	}
	if err := s.attachCustomers(ctx, []*domain.MaintenanceRequest{item}); err != nil {
		return domain.MaintenanceRequest{}, err
	}
	return *item, nil
}

func (s *Service) attachCustomers(ctx context.Context, items []*domain.MaintenanceRequest) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.CustomerID)
	}
	summaries, err := s.customers.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, item := range items {
		if summary, ok := summaries[item.CustomerID]; ok {
			item.Customer = &summary
		}
	}
	return nil
}

func (s *Service) newNote(ctx context.Context, requestID snowflake.ID, message string, visible bool) *domain.MaintenanceNote {
	note := &domain.MaintenanceNote{
		ID:                s.genID.Generate(),
		RequestID:         requestID,
		Message:           message,
		IsCustomerVisible: visible,
		CreatedAt:         s.clock.Now(),
	}
	if actorType, actorID := auditcontext.ActorFromContext(ctx); actorType == string(auditdomain.ActorTypeUser) {
		if id, err := snowflake.ParseString(actorID); err == nil && id > 0 {
			note.AuthorID = &id
		}
	}
	return note
}

func (s *Service) audit(ctx context.Context, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	_ = s.auditSvc.AuditLog(ctx, "", nil, action, auditdomain.TargetMaintenanceRequest, &targetID, metadata)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// parseAssignee returns nil for an empty value, which unassigns the request.
func parseAssignee(value string) (*snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidAssignee
	}
	return &id, nil
}

func normalizeDescription(value string) (string, error) {
	description := strings.TrimSpace(value)
	if len([]rune(description)) < domain.MinDescriptionLength {
		return "", domain.ErrInvalidDescription
	}
	return description, nil
}

func normalizeLocation(location domain.ServiceLocation) domain.ServiceLocation {
	return domain.ServiceLocation{
		Address:            strings.TrimSpace(location.Address),
		AccessInstructions: strings.TrimSpace(location.AccessInstructions),
	}
}

func dereference(items []*domain.MaintenanceRequest) []domain.MaintenanceRequest {
	out := make([]domain.MaintenanceRequest, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}
