package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/internal/config"
	"github.com/smallbiznis/ecoscape/internal/customer/domain"
	obsmetrics "github.com/smallbiznis/ecoscape/internal/observability/metrics"
	"github.com/smallbiznis/ecoscape/internal/sequence"
	"github.com/smallbiznis/ecoscape/pkg/db"
	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// errAlreadyCredited aborts the credit transaction when the referral event exists.
var errAlreadyCredited = errors.New("referral_already_credited")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Sequence *sequence.Allocator
	Report   *config.ReportConfigHolder
	Metrics  *obsmetrics.Metrics
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	seq      *sequence.Allocator
	report   *config.ReportConfigHolder
	metrics  *obsmetrics.Metrics
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("customer.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		seq:      p.Sequence,
		report:   p.Report,
		metrics:  p.Metrics,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.CreateCustomerResult, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return domain.CreateCustomerResult{}, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.CreateCustomerResult{}, err
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return domain.CreateCustomerResult{}, err
	}
	address, err := normalizeAddress(req.Address)
	if err != nil {
		return domain.CreateCustomerResult{}, err
	}
	prefs, err := normalizePreferences(req.Preferences)
	if err != nil {
		return domain.CreateCustomerResult{}, err
	}

	status := domain.StatusActive
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = domain.Status(raw)
		if !status.Valid() {
			return domain.CreateCustomerResult{}, domain.ErrInvalidStatus
		}
	}

	// New customers come from the website unless a referrer is given.
	source := domain.ReferralSourceWebsite

	existing, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.CreateCustomerResult{}, fmt.Errorf("lookup customer email: %w", err)
	}
	if existing != nil {
		return domain.CreateCustomerResult{}, domain.ErrDuplicateEmail
	}

	var referrer *domain.Customer
	if raw := strings.TrimSpace(req.ReferredBy); raw != "" {
		referrer, err = s.lookupReferrer(ctx, raw)
		if err != nil {
			return domain.CreateCustomerResult{}, err
		}
		source = domain.ReferralSourceReferral
	}

	now := s.clock.Now()
	customer := domain.Customer{
		Name:             name,
		Email:            email,
		Phone:            phone,
		DateOfBirth:      req.DateOfBirth,
		Address:          address,
		Preferences:      datatypes.NewJSONType(prefs),
		Status:           status,
		ReferralSource:   source,
		RegistrationDate: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if referrer != nil {
		referrerID := referrer.ID
		customer.ReferredByID = &referrerID
	}

	if err := s.insertWithRegistration(ctx, &customer); err != nil {
		return domain.CreateCustomerResult{}, err
	}
	s.metrics.RecordCustomerCreated(ctx, string(customer.ReferralSource))

	result := domain.CreateCustomerResult{Customer: customer}
	if referrer != nil {
		summary := referrer.Summary()
		result.Customer.ReferredBy = &summary

		if err := s.creditReferral(ctx, customer.ID, referrer.ID); err != nil {
			s.log.Warn("referral credit failed",
				zap.String("customer_id", customer.ID.String()),
				zap.String("referrer_id", referrer.ID.String()),
				zap.Error(err),
			)
			s.metrics.RecordReferralCredit(ctx, "failed")
			result.Warnings = append(result.Warnings, domain.WarningReferralCreditFailed)
		} else {
			s.metrics.RecordReferralCredit(ctx, "credited")
			s.audit(ctx, "customer.referral_credited", referrer.ID, map[string]any{
				"referred_customer_id": customer.ID.String(),
				"points":               domain.ReferralBonusPoints,
			})
		}
	}

	s.audit(ctx, "customer.create", customer.ID, map[string]any{
		"registration_number": customer.RegistrationNumber,
		"email":               customer.Email,
		"phone":               customer.Phone,
		"referral_source":     string(customer.ReferralSource),
	})

	return result, nil
}

// insertWithRegistration allocates the registration number and inserts the
// customer in one transaction. A unique violation other than the email is
// retried once before surfacing as a conflict.
func (s *Service) insertWithRegistration(ctx context.Context, customer *domain.Customer) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		customer.ID = s.genID.Generate()
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			next, err := s.seq.Next(ctx, tx, sequence.NameCustomer, s.seedRegistration)
			if err != nil {
				return err
			}
			number, err := sequence.Format(sequence.CustomerTemplate, customer.RegistrationDate, next)
			if err != nil {
				return err
			}
			customer.RegistrationNumber = number
			return s.repo.Insert(ctx, tx, customer)
		})
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return fmt.Errorf("insert customer: %w", err)
		}

		existing, findErr := s.repo.FindByEmail(ctx, s.db, customer.Email)
		if findErr != nil {
			return fmt.Errorf("lookup customer email: %w", findErr)
		}
		if existing != nil {
			return domain.ErrDuplicateEmail
		}
		s.log.Warn("customer insert conflict",
			zap.Int("attempt", attempt+1),
			zap.String("registration_number", customer.RegistrationNumber),
		)
		if err := s.resyncRegistration(ctx); err != nil {
			return fmt.Errorf("resync registration counter: %w", err)
		}
	}
	return domain.ErrConflict
}

// resyncRegistration moves the counter past numbers written outside of it.
func (s *Service) resyncRegistration(ctx context.Context) error {
	highest, err := s.repo.HighestRegistrationNumber(ctx, s.db)
	if err != nil || highest == "" {
		return err
	}
	n, err := domain.ParseRegistrationNumber(highest)
	if err != nil {
		return nil
	}
	return s.seq.AdvanceTo(ctx, s.db, sequence.NameCustomer, n)
}

// seedRegistration bootstraps the counter from the highest stored number.
func (s *Service) seedRegistration(ctx context.Context, tx *gorm.DB) (int64, error) {
	highest, err := s.repo.HighestRegistrationNumber(ctx, tx)
	if err != nil {
		return 0, err
	}
	if highest == "" {
		return 0, nil
	}
	n, err := domain.ParseRegistrationNumber(highest)
	if err != nil {
		// Bounded so the next number still fits CUST######.
		fallback := s.clock.Now().UnixMilli() % 999_999
		s.log.Warn("unparseable registration number, using time based seed",
			zap.String("highest", highest),
			zap.Int64("seed", fallback),
			zap.Error(err),
		)
		s.metrics.RecordRegistrationFallback(ctx)
		return fallback, nil
	}
	return n, nil
}

func (s *Service) creditReferral(ctx context.Context, customerID, referrerID snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := domain.ReferralEvent{
			ID:                 ulid.Make().String(),
			ReferrerID:         referrerID,
			ReferredCustomerID: customerID,
			Points:             domain.ReferralBonusPoints,
			CreatedAt:          s.clock.Now(),
		}
		if err := s.repo.InsertReferralEvent(ctx, tx, &event); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return errAlreadyCredited
			}
			return err
		}
		ok, err := s.repo.IncrementReferralCredit(ctx, tx, referrerID, domain.ReferralBonusPoints)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, errAlreadyCredited) {
		return nil
	}
	return err
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("find customer: %w", err)
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	changed := []string{}
	if req.Name != nil {
		name, err := normalizeName(*req.Name)
		if err != nil {
			return domain.Customer{}, err
		}
		customer.Name = name
		changed = append(changed, "name")
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return domain.Customer{}, err
		}
		if email != customer.Email {
			existing, err := s.repo.FindByEmail(ctx, s.db, email)
			if err != nil {
				return domain.Customer{}, fmt.Errorf("lookup customer email: %w", err)
			}
			if existing != nil && existing.ID != customer.ID {
				return domain.Customer{}, domain.ErrDuplicateEmail
			}
			customer.Email = email
			changed = append(changed, "email")
		}
	}
	if req.Phone != nil {
		phone, err := normalizePhone(*req.Phone)
		if err != nil {
			return domain.Customer{}, err
		}
		customer.Phone = phone
		changed = append(changed, "phone")
	}
	if req.DateOfBirth != nil {
		dob := req.DateOfBirth.UTC()
		customer.DateOfBirth = &dob
		changed = append(changed, "dateOfBirth")
	}
	if req.Address != nil {
		address, err := normalizeAddress(*req.Address)
		if err != nil {
			return domain.Customer{}, err
		}
		customer.Address = address
		changed = append(changed, "address")
	}
	if req.Preferences != nil {
		prefs, err := normalizePreferences(req.Preferences)
		if err != nil {
			return domain.Customer{}, err
		}
		customer.Preferences = datatypes.NewJSONType(prefs)
		changed = append(changed, "preferences")
	}
	if req.Status != nil {
		status := domain.Status(strings.TrimSpace(*req.Status))
		if !status.Valid() {
			return domain.Customer{}, domain.ErrInvalidStatus
		}
		customer.Status = status
		changed = append(changed, "status")
	}
	if req.ReferralSource != nil {
		source := domain.ReferralSource(strings.TrimSpace(*req.ReferralSource))
		if !source.Valid() {
			return domain.Customer{}, domain.ErrInvalidReferralSource
		}
		customer.ReferralSource = source
		changed = append(changed, "referralSource")
	}
	if req.ReferredBy != nil {
		raw := strings.TrimSpace(*req.ReferredBy)
		if raw == "" {
			customer.ReferredByID = nil
		} else {
			referrer, err := s.lookupReferrer(ctx, raw)
			if err != nil {
				return domain.Customer{}, err
			}
			if referrer.ID == customer.ID {
				return domain.Customer{}, domain.ErrInvalidReferrer
			}
			referrerID := referrer.ID
			customer.ReferredByID = &referrerID
		}
		changed = append(changed, "referredBy")
	}
	if req.TotalSpent != nil {
		if *req.TotalSpent < 0 {
			return domain.Customer{}, domain.ErrInvalidAmount
		}
		customer.TotalSpent = *req.TotalSpent
		changed = append(changed, "totalSpent")
	}
	if req.ServiceCount != nil {
		if *req.ServiceCount < 0 {
			return domain.Customer{}, domain.ErrInvalidAmount
		}
		customer.ServiceCount = *req.ServiceCount
		changed = append(changed, "serviceCount")
	}
	if req.LoyaltyPoints != nil {
		if *req.LoyaltyPoints < 0 {
			return domain.Customer{}, domain.ErrInvalidAmount
		}
		customer.LoyaltyPoints = *req.LoyaltyPoints
		changed = append(changed, "loyaltyPoints")
	}
	if req.LastServiceDate != nil {
		last := req.LastServiceDate.UTC()
		customer.LastServiceDate = &last
		changed = append(changed, "lastServiceDate")
	}

	customer.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrDuplicateEmail
		}
		return domain.Customer{}, fmt.Errorf("save customer: %w", err)
	}

	if err := s.resolveReferrers(ctx, []*domain.Customer{customer}); err != nil {
		return domain.Customer{}, err
	}

	s.audit(ctx, "customer.update", customer.ID, map[string]any{
		"fields": changed,
	})
	return *customer, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	var registrationNumber string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrNotFound
		}
		registrationNumber = customer.RegistrationNumber

		active, err := s.repo.CountActiveMaintenance(ctx, tx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.ErrHasActiveWork
		}

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
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrHasActiveWork) {
			return err
		}
		return fmt.Errorf("delete customer: %w", err)
	}

	s.audit(ctx, "customer.delete", id, map[string]any{
		"registration_number": registrationNumber,
	})
	return nil
}

func (s *Service) RecordCompletedService(ctx context.Context, id snowflake.ID, amount float64) (domain.Customer, error) {
	if amount < 0 {
		return domain.Customer{}, domain.ErrInvalidAmount
	}

	var updated domain.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.ApplyCompletedService(ctx, tx, id, amount, s.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}

		customer, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.Save(ctx, tx, customer); err != nil {
			return err
		}
		updated = *customer
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Customer{}, err
		}
		return domain.Customer{}, fmt.Errorf("record completed service: %w", err)
	}
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("find customer: %w", err)
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	if err := s.resolveReferrers(ctx, []*domain.Customer{item}); err != nil {
		return domain.Customer{}, err
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	filter := domain.ListCustomerFilter{Search: strings.TrimSpace(req.Search)}

	if status := strings.TrimSpace(req.Status); status != "" && status != "all" {
		filter.Status = domain.Status(status)
		if !filter.Status.Valid() {
			return domain.ListCustomerResponse{}, domain.ErrInvalidStatus
		}
	}
	if loyalty := strings.TrimSpace(req.LoyaltyStatus); loyalty != "" && loyalty != "all" {
		filter.LoyaltyStatus = domain.LoyaltyStatus(loyalty)
		if !filter.LoyaltyStatus.Valid() {
			return domain.ListCustomerResponse{}, domain.ErrInvalidLoyaltyStatus
		}
	}

	page := pagination.Page{Page: req.Page, Limit: req.Limit}.Normalize()

	total, err := s.repo.Count(ctx, s.db, filter)
	if err != nil {
		return domain.ListCustomerResponse{}, fmt.Errorf("count customers: %w", err)
	}
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListCustomerResponse{}, fmt.Errorf("list customers: %w", err)
	}
	if err := s.resolveReferrers(ctx, items); err != nil {
		return domain.ListCustomerResponse{}, err
	}

	return domain.ListCustomerResponse{
		Customers:   dereference(items),
		TotalPages:  pagination.TotalPages(total, page.Limit),
		CurrentPage: page.Page,
		Total:       total,
	}, nil
}

func (s *Service) Stats(ctx context.Context) (domain.CustomerStats, error) {
	stats, err := s.repo.Stats(ctx, s.db, clock.StartOfMonth(s.clock.Now()))
	if err != nil {
		return domain.CustomerStats{}, fmt.Errorf("customer stats: %w", err)
	}
	return stats, nil
}

func (s *Service) Report(ctx context.Context, req domain.ReportRequest) (domain.CustomerReport, error) {
	filter := domain.ReportFilter{CreatedFrom: req.StartDate}
	if req.EndDate != nil {
		end := clock.EndOfDay(*req.EndDate)
		filter.CreatedTo = &end
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return domain.CustomerReport{}, domain.ErrInvalidDateRange
	}
	if s.report != nil {
		filter.Limit = s.report.Get().MaxRows
	}

	total, err := s.repo.CountForReport(ctx, s.db, filter)
	if err != nil {
		return domain.CustomerReport{}, fmt.Errorf("count report customers: %w", err)
	}
	items, err := s.repo.ListForReport(ctx, s.db, filter)
	if err != nil {
		return domain.CustomerReport{}, fmt.Errorf("list report customers: %w", err)
	}
	if err := s.resolveReferrers(ctx, items); err != nil {
		return domain.CustomerReport{}, err
	}

	return domain.CustomerReport{
		Customers:    dereference(items),
		TotalCount:   total,
		Truncated:    int64(len(items)) < total,
		GeneratedAt:  s.clock.Now(),
		ReportPeriod: domain.ReportPeriod{StartDate: req.StartDate, EndDate: req.EndDate},
	}, nil
}

func (s *Service) Summaries(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]domain.ReferrerSummary, error) {
	out := make(map[snowflake.ID]domain.ReferrerSummary, len(ids))
	unique := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 || slices.Contains(unique, id) {
			continue
		}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return out, nil
	}

	items, err := s.repo.FindByIDs(ctx, s.db, unique)
	if err != nil {
		return nil, fmt.Errorf("find customers: %w", err)
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		out[item.ID] = item.Summary()
	}
	return out, nil
}

// resolveReferrers fills ReferredBy for all items with one batched lookup.
func (s *Service) resolveReferrers(ctx context.Context, items []*domain.Customer) error {
	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if item != nil && item.ReferredByID != nil {
			ids = append(ids, *item.ReferredByID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	summaries, err := s.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item == nil || item.ReferredByID == nil {
			continue
		}
		if summary, ok := summaries[*item.ReferredByID]; ok {
			item.ReferredBy = &summary
		}
	}
	return nil
}

func (s *Service) lookupReferrer(ctx context.Context, raw string) (*domain.Customer, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidReferrerID
	}
	referrer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("find referrer: %w", err)
	}
	if referrer == nil {
		return nil, domain.ErrInvalidReferrer
	}
	return referrer, nil
}

func (s *Service) audit(ctx context.Context, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	_ = s.auditSvc.AuditLog(ctx, "", nil, action, auditdomain.TargetCustomer, &targetID, metadata)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func dereference(items []*domain.Customer) []domain.Customer {
	out := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}

func normalizeName(value string) (string, error) {
	name := strings.TrimSpace(value)
	if len([]rune(name)) < 2 {
		return "", domain.ErrInvalidName
	}
	return name, nil
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if !emailRe.MatchString(email) {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func normalizePhone(value string) (string, error) {
	phone := strings.TrimSpace(value)
	if phone == "" {
		return "", domain.ErrInvalidPhone
	}
	return phone, nil
}

func normalizeAddress(address domain.Address) (domain.Address, error) {
	out := domain.Address{
		Street:  strings.TrimSpace(address.Street),
		City:    strings.TrimSpace(address.City),
		State:   strings.TrimSpace(address.State),
		ZipCode: strings.TrimSpace(address.ZipCode),
		Country: strings.TrimSpace(address.Country),
	}
	if out.Street == "" || out.City == "" || out.State == "" || out.ZipCode == "" {
		return domain.Address{}, domain.ErrInvalidAddress
	}
	if out.Country == "" {
		out.Country = domain.DefaultCountry
	}
	return out, nil
}

func normalizePreferences(prefs *domain.Preferences) (domain.Preferences, error) {
	out := domain.Preferences{
		ServiceTypes:        []string{},
		CommunicationMethod: "email",
	}
	if prefs == nil {
		return out, nil
	}
	for _, serviceType := range prefs.ServiceTypes {
		serviceType = strings.TrimSpace(serviceType)
		if !slices.Contains(domain.ServiceTypes, serviceType) {
			return domain.Preferences{}, domain.ErrInvalidPreferences
		}
		if !slices.Contains(out.ServiceTypes, serviceType) {
			out.ServiceTypes = append(out.ServiceTypes, serviceType)
		}
	}
	if method := strings.TrimSpace(prefs.CommunicationMethod); method != "" {
		if !slices.Contains(domain.CommunicationMethods, method) {
			return domain.Preferences{}, domain.ErrInvalidPreferences
		}
		out.CommunicationMethod = method
	}
	out.SpecialInstructions = strings.TrimSpace(prefs.SpecialInstructions)
	return out, nil
}

var _ domain.Service = (*Service)(nil)
