package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
	auditrepository "github.com/smallbiznis/ecoscape/internal/audit/repository"
	auditservice "github.com/smallbiznis/ecoscape/internal/audit/service"
	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/internal/config"
	"github.com/smallbiznis/ecoscape/internal/customer/domain"
	"github.com/smallbiznis/ecoscape/internal/customer/repository"
	maintenancedomain "github.com/smallbiznis/ecoscape/internal/maintenance/domain"
	"github.com/smallbiznis/ecoscape/internal/migration"
	"github.com/smallbiznis/ecoscape/internal/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	svc   *Service
	clock *clock.FakeClock
	db    *gorm.DB
	node  *snowflake.Node
}

type testOption func(*Params)

func withRepo(repo domain.Repository) testOption {
	return func(p *Params) { p.Repo = repo }
}

func withMaxRows(n int) testOption {
	return func(p *Params) {
		cfg := config.DefaultReportConfig()
		cfg.MaxRows = n
		p.Report = config.NewStaticReportConfigHolder(cfg)
	}
}

func withAudit() testOption {
	return func(p *Params) {
		p.AuditSvc = auditservice.NewService(auditservice.Params{
			DB:    p.DB,
			Log:   p.Log,
			GenID: p.GenID,
			Clock: p.Clock,
			Repo:  auditrepository.Provide(),
		})
	}
}

func newTestEnv(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(testNow)

	p := Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     repository.Provide(),
		Sequence: sequence.New(),
		Report:   config.NewStaticReportConfigHolder(config.DefaultReportConfig()),
	}
	for _, opt := range opts {
		opt(&p)
	}

	return &testEnv{svc: New(p).(*Service), clock: fake, db: conn, node: node}
}

func newCustomerRequest(name, email string) domain.CreateCustomerRequest {
	return domain.CreateCustomerRequest{
		Name:  name,
		Email: email,
		Phone: "555-010-2000",
		Address: domain.Address{
			Street:  "1 Fern Lane",
			City:    "Portland",
			State:   "OR",
			ZipCode: "97201",
		},
	}
}

func (e *testEnv) create(t *testing.T, name, email string) domain.Customer {
	t.Helper()
	res, err := e.svc.Create(context.Background(), newCustomerRequest(name, email))
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	e.clock.Advance(time.Minute)
	return res.Customer
}

// insertRaw writes a customer row bypassing the registration counter.
func (e *testEnv) insertRaw(t *testing.T, number, email string) {
	t.Helper()
	now := e.clock.Now()
	require.NoError(t, e.db.Create(&domain.Customer{
		ID:                 e.node.Generate(),
		RegistrationNumber: number,
		Name:               "Imported " + number,
		Email:              email,
		Phone:              "555-000-0000",
		Address:            domain.Address{Street: "x", City: "y", State: "z", ZipCode: "1", Country: "USA"},
		Status:             domain.StatusActive,
		ReferralSource:     domain.ReferralSourceOther,
		RegistrationDate:   now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}).Error)
}

func (e *testEnv) count(t *testing.T) int64 {
	t.Helper()
	var total int64
	require.NoError(t, e.db.Model(&domain.Customer{}).Count(&total).Error)
	return total
}

func (e *testEnv) reload(t *testing.T, id snowflake.ID) domain.Customer {
	t.Helper()
	var customer domain.Customer
	require.NoError(t, e.db.Where("id = ?", id).Take(&customer).Error)
	return customer
}

func TestCreateAssignsSequentialRegistrationNumbers(t *testing.T) {
	env := newTestEnv(t)

	for i := 1; i <= 3; i++ {
		customer := env.create(t, fmt.Sprintf("Customer %d", i), fmt.Sprintf("c%d@example.com", i))
		assert.Equal(t, fmt.Sprintf("CUST%06d", i), customer.RegistrationNumber)
		assert.Equal(t, domain.StatusActive, customer.Status)
		assert.Equal(t, domain.ReferralSourceWebsite, customer.ReferralSource)
		assert.Equal(t, domain.LoyaltyLevelBronze, customer.LoyaltyLevel)
		assert.Equal(t, domain.DefaultCountry, customer.Address.Country)
		assert.Equal(t, "email", customer.Preferences.Data().CommunicationMethod)
	}
}

func TestCreateSeedsFromHighestExistingNumber(t *testing.T) {
	env := newTestEnv(t)
	env.insertRaw(t, "CUST000041", "legacy@example.com")

	customer := env.create(t, "New Customer", "new@example.com")
	assert.Equal(t, "CUST000042", customer.RegistrationNumber)
}

func TestCreateFallsBackToTimeSeedOnUnparseableNumber(t *testing.T) {
	env := newTestEnv(t)
	env.insertRaw(t, "CUSTX", "legacy@example.com")

	expected := fmt.Sprintf("CUST%06d", env.clock.Now().UnixMilli()%999_999+1)
	customer := env.create(t, "New Customer", "new@example.com")
	assert.Equal(t, expected, customer.RegistrationNumber)
	assert.Regexp(t, `^CUST\d{6}$`, customer.RegistrationNumber)
}

func TestCreateTimeSeedStaysWithinSixDigits(t *testing.T) {
	env := newTestEnv(t)
	env.insertRaw(t, "CUSTX", "legacy@example.com")

	// Move the clock to the largest seed the fallback can produce.
	rem := env.clock.Now().UnixMilli() % 999_999
	env.clock.Advance(time.Duration((999_998-rem+999_999)%999_999) * time.Millisecond)

	customer := env.create(t, "New Customer", "new@example.com")
	assert.Equal(t, "CUST999999", customer.RegistrationNumber)
}

func TestCreateRetriesAfterRegistrationConflict(t *testing.T) {
	env := newTestEnv(t)
	first := env.create(t, "First Customer", "first@example.com")
	require.Equal(t, "CUST000001", first.RegistrationNumber)

	env.insertRaw(t, "CUST000002", "imported@example.com")

	second := env.create(t, "Second Customer", "second@example.com")
	assert.Equal(t, "CUST000003", second.RegistrationNumber)
	assert.Equal(t, int64(3), env.count(t))
}

func TestCreateRejectsDuplicateEmailCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Jane Doe", "jane@example.com")

	_, err := env.svc.Create(context.Background(), newCustomerRequest("Jane Again", "  JANE@Example.COM "))
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.Equal(t, int64(1), env.count(t))
}

func TestCreateRejectsUnknownReferrer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, "Existing Customer", "existing@example.com")

	cases := map[string]error{
		"abc":                        domain.ErrInvalidReferrerID,
		"-5":                         domain.ErrInvalidReferrerID,
		env.node.Generate().String(): domain.ErrInvalidReferrer,
	}
	for referrer, want := range cases {
		req := newCustomerRequest("Referred Person", "referred@example.com")
		req.ReferredBy = referrer
		_, err := env.svc.Create(ctx, req)
		assert.ErrorIs(t, err, want, referrer)
	}
	assert.Equal(t, int64(1), env.count(t))

	next := env.create(t, "Next Customer", "next@example.com")
	assert.Equal(t, "CUST000002", next.RegistrationNumber)
}

func TestCreateCreditsReferrer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	referrer := env.create(t, "Referrer Person", "referrer@example.com")

	req := newCustomerRequest("Referred Person", "referred@example.com")
	req.ReferredBy = referrer.ID.String()
	res, err := env.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, domain.ReferralSourceReferral, res.Customer.ReferralSource)
	require.NotNil(t, res.Customer.ReferredBy)
	assert.Equal(t, referrer.RegistrationNumber, res.Customer.ReferredBy.RegistrationNumber)

	stored := env.reload(t, referrer.ID)
	assert.Equal(t, 1, stored.TotalReferrals)
	assert.Equal(t, domain.ReferralBonusPoints, stored.LoyaltyPoints)

	// A second credit for the same referred customer is ignored.
	require.NoError(t, env.svc.creditReferral(ctx, res.Customer.ID, referrer.ID))
	stored = env.reload(t, referrer.ID)
	assert.Equal(t, 1, stored.TotalReferrals)
	assert.Equal(t, domain.ReferralBonusPoints, stored.LoyaltyPoints)

	var events int64
	require.NoError(t, env.db.Model(&domain.ReferralEvent{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)

	got, err := env.svc.GetByID(ctx, domain.GetCustomerRequest{ID: res.Customer.ID.String()})
	require.NoError(t, err)
	require.NotNil(t, got.ReferredBy)
	assert.Equal(t, referrer.ID, got.ReferredBy.ID)
	assert.Equal(t, "Referrer Person", got.ReferredBy.Name)
}

type failingCreditRepo struct {
	domain.Repository
}

func (failingCreditRepo) IncrementReferralCredit(context.Context, *gorm.DB, snowflake.ID, int) (bool, error) {
	return false, errors.New("credit store unavailable")
}

func TestCreateKeepsCustomerWhenReferralCreditFails(t *testing.T) {
	env := newTestEnv(t, withRepo(failingCreditRepo{Repository: repository.Provide()}))
	ctx := context.Background()
	referrer := env.create(t, "Referrer Person", "referrer@example.com")

	req := newCustomerRequest("Referred Person", "referred@example.com")
	req.ReferredBy = referrer.ID.String()
	res, err := env.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.WarningReferralCreditFailed}, res.Warnings)
	assert.Equal(t, "CUST000002", res.Customer.RegistrationNumber)

	stored := env.reload(t, res.Customer.ID)
	require.NotNil(t, stored.ReferredByID)
	assert.Equal(t, referrer.ID, *stored.ReferredByID)

	credited := env.reload(t, referrer.ID)
	assert.Zero(t, credited.TotalReferrals)
	assert.Zero(t, credited.LoyaltyPoints)

	var events int64
	require.NoError(t, env.db.Model(&domain.ReferralEvent{}).Count(&events).Error)
	assert.Zero(t, events)
}

func TestCreateValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*domain.CreateCustomerRequest)
		err    error
	}{
		{"short name", func(r *domain.CreateCustomerRequest) { r.Name = "J" }, domain.ErrInvalidName},
		{"bad email", func(r *domain.CreateCustomerRequest) { r.Email = "not-an-email" }, domain.ErrInvalidEmail},
		{"missing phone", func(r *domain.CreateCustomerRequest) { r.Phone = " " }, domain.ErrInvalidPhone},
		{"missing city", func(r *domain.CreateCustomerRequest) { r.Address.City = "" }, domain.ErrInvalidAddress},
		{"bad status", func(r *domain.CreateCustomerRequest) { r.Status = "archived" }, domain.ErrInvalidStatus},
		{"bad service type", func(r *domain.CreateCustomerRequest) {
			r.Preferences = &domain.Preferences{ServiceTypes: []string{"Snow Removal"}}
		}, domain.ErrInvalidPreferences},
		{"bad communication", func(r *domain.CreateCustomerRequest) {
			r.Preferences = &domain.Preferences{CommunicationMethod: "fax"}
		}, domain.ErrInvalidPreferences},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := newCustomerRequest("Valid Name", "valid@example.com")
			tc.mutate(&req)
			_, err := env.svc.Create(ctx, req)
			assert.ErrorIs(t, err, tc.err)
		})
	}
	assert.Zero(t, env.count(t))
}

func TestUpdateDerivesLoyaltyFromSpend(t *testing.T) {
	env := newTestEnv(t)
	customer := env.create(t, "Spender Person", "spender@example.com")

	spent := 7500.0
	bogus := string(domain.LoyaltyStatusBronze)
	_, err := env.svc.Update(context.Background(), domain.UpdateCustomerRequest{
		ID:         customer.ID.String(),
		TotalSpent: &spent,
		Status:     &bogus,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.Zero(t, env.reload(t, customer.ID).TotalSpent)

	updated, err := env.svc.Update(context.Background(), domain.UpdateCustomerRequest{
		ID:         customer.ID.String(),
		TotalSpent: &spent,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoyaltyLevelGold, updated.LoyaltyLevel)
	assert.Equal(t, domain.LoyaltyStatusGold, updated.LoyaltyStatus)

	stored := env.reload(t, customer.ID)
	assert.Equal(t, domain.LoyaltyStatusGold, stored.LoyaltyStatus)
	assert.Equal(t, customer.RegistrationNumber, stored.RegistrationNumber)
}

func TestUpdateValidatesReferrer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	referrer := env.create(t, "Referrer Person", "referrer@example.com")
	customer := env.create(t, "Customer Person", "customer@example.com")

	self := customer.ID.String()
	_, err := env.svc.Update(ctx, domain.UpdateCustomerRequest{ID: self, ReferredBy: &self})
	assert.ErrorIs(t, err, domain.ErrInvalidReferrer)

	missing := env.node.Generate().String()
	_, err = env.svc.Update(ctx, domain.UpdateCustomerRequest{ID: self, ReferredBy: &missing})
	assert.ErrorIs(t, err, domain.ErrInvalidReferrer)

	valid := referrer.ID.String()
	updated, err := env.svc.Update(ctx, domain.UpdateCustomerRequest{ID: self, ReferredBy: &valid})
	require.NoError(t, err)
	require.NotNil(t, updated.ReferredBy)
	assert.Equal(t, referrer.ID, updated.ReferredBy.ID)

	none := ""
	updated, err = env.svc.Update(ctx, domain.UpdateCustomerRequest{ID: self, ReferredBy: &none})
	require.NoError(t, err)
	assert.Nil(t, updated.ReferredByID)
	assert.Nil(t, updated.ReferredBy)
}

func TestUpdateRejectsTakenEmail(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "First Person", "first@example.com")
	second := env.create(t, "Second Person", "second@example.com")

	taken := "FIRST@example.com"
	_, err := env.svc.Update(context.Background(), domain.UpdateCustomerRequest{ID: second.ID.String(), Email: &taken})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = env.svc.Update(context.Background(), domain.UpdateCustomerRequest{ID: env.node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordCompletedServiceAccumulates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.create(t, "Loyal Person", "loyal@example.com")

	spent := 1800.0
	count := 3
	_, err := env.svc.Update(ctx, domain.UpdateCustomerRequest{
		ID:           customer.ID.String(),
		TotalSpent:   &spent,
		ServiceCount: &count,
	})
	require.NoError(t, err)

	updated, err := env.svc.RecordCompletedService(ctx, customer.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.ServiceCount)
	assert.Equal(t, 4, updated.TotalServicesCount)
	assert.InDelta(t, 2050, updated.TotalSpent, 0.001)
	assert.Equal(t, domain.LoyaltyStatusSilver, updated.LoyaltyStatus)
	require.NotNil(t, updated.LastServiceDate)
	assert.WithinDuration(t, env.clock.Now(), *updated.LastServiceDate, time.Second)

	_, err = env.svc.RecordCompletedService(ctx, customer.ID, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = env.svc.RecordCompletedService(ctx, env.node.Generate(), 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteBlockedByActiveMaintenance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.create(t, "Busy Person", "busy@example.com")

	request := maintenancedomain.MaintenanceRequest{
		ID:            env.node.Generate(),
		CustomerID:    customer.ID,
		RequestNumber: "MR2026050001",
		ServiceType:   maintenancedomain.ServiceTypeCleanup,
		Description:   "Leaf cleanup in the back yard",
		Priority:      maintenancedomain.PriorityMedium,
		Status:        maintenancedomain.StatusScheduled,
		CreatedAt:     env.clock.Now(),
		UpdatedAt:     env.clock.Now(),
	}
	require.NoError(t, env.db.Create(&request).Error)

	err := env.svc.Delete(ctx, customer.ID.String())
	assert.ErrorIs(t, err, domain.ErrHasActiveWork)
	assert.Equal(t, int64(1), env.count(t))

	require.NoError(t, env.db.Model(&request).Update("status", maintenancedomain.StatusCompleted).Error)
	require.NoError(t, env.svc.Delete(ctx, customer.ID.String()))
	assert.Zero(t, env.count(t))

	assert.ErrorIs(t, env.svc.Delete(ctx, customer.ID.String()), domain.ErrNotFound)
	assert.ErrorIs(t, env.svc.Delete(ctx, "nope"), domain.ErrInvalidID)
}

func TestListFiltersAndPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		env.create(t, fmt.Sprintf("Garden Client %02d", i), fmt.Sprintf("client%02d@example.com", i))
	}
	odd := env.create(t, "100% Organic", "organic@example.com")
	inactive := string(domain.StatusInactive)
	_, err := env.svc.Update(ctx, domain.UpdateCustomerRequest{ID: odd.ID.String(), Status: &inactive})
	require.NoError(t, err)

	first, err := env.svc.List(ctx, domain.ListCustomerRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(13), first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, 1, first.CurrentPage)
	require.Len(t, first.Customers, 10)
	assert.Equal(t, "100% Organic", first.Customers[0].Name)

	second, err := env.svc.List(ctx, domain.ListCustomerRequest{Page: 2})
	require.NoError(t, err)
	require.Len(t, second.Customers, 3)
	assert.Equal(t, "Garden Client 01", second.Customers[2].Name)

	escaped, err := env.svc.List(ctx, domain.ListCustomerRequest{Search: "%"})
	require.NoError(t, err)
	require.Len(t, escaped.Customers, 1)
	assert.Equal(t, odd.ID, escaped.Customers[0].ID)

	byNumber, err := env.svc.List(ctx, domain.ListCustomerRequest{Search: "cust000003"})
	require.NoError(t, err)
	require.Len(t, byNumber.Customers, 1)
	assert.Equal(t, "Garden Client 03", byNumber.Customers[0].Name)

	filtered, err := env.svc.List(ctx, domain.ListCustomerRequest{Status: "inactive"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), filtered.Total)

	all, err := env.svc.List(ctx, domain.ListCustomerRequest{Status: "all", Limit: 500})
	require.NoError(t, err)
	assert.Len(t, all.Customers, 13)

	_, err = env.svc.List(ctx, domain.ListCustomerRequest{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = env.svc.List(ctx, domain.ListCustomerRequest{LoyaltyStatus: "diamond"})
	assert.ErrorIs(t, err, domain.ErrInvalidLoyaltyStatus)
}

func TestStatsAggregates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.clock.Set(time.Date(2026, time.April, 20, 10, 0, 0, 0, time.UTC))
	april := env.create(t, "April Person", "april@example.com")
	env.clock.Set(testNow)
	may := env.create(t, "May Person", "may@example.com")
	env.create(t, "Other Person", "other@example.com")

	spent := 2500.0
	_, err := env.svc.Update(ctx, domain.UpdateCustomerRequest{ID: april.ID.String(), TotalSpent: &spent})
	require.NoError(t, err)
	inactive := string(domain.StatusInactive)
	_, err = env.svc.Update(ctx, domain.UpdateCustomerRequest{ID: may.ID.String(), Status: &inactive})
	require.NoError(t, err)

	stats, err := env.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalCustomers)
	assert.Equal(t, int64(2), stats.ActiveCustomers)
	assert.Equal(t, int64(1), stats.LoyaltyMembers)
	assert.InDelta(t, 2500, stats.TotalRevenue, 0.001)
	assert.Equal(t, int64(2), stats.NewThisMonth)
}

func TestReportTruncatesAtMaxRows(t *testing.T) {
	env := newTestEnv(t, withMaxRows(2))
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		env.create(t, fmt.Sprintf("Report Person %d", i), fmt.Sprintf("r%d@example.com", i))
	}

	report, err := env.svc.Report(ctx, domain.ReportRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.TotalCount)
	assert.Len(t, report.Customers, 2)
	assert.True(t, report.Truncated)
	assert.Equal(t, "Report Person 3", report.Customers[0].Name)

	start := testNow.Add(24 * time.Hour)
	end := testNow
	_, err = env.svc.Report(ctx, domain.ReportRequest{StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	future, err := env.svc.Report(ctx, domain.ReportRequest{StartDate: &start})
	require.NoError(t, err)
	assert.Zero(t, future.TotalCount)
	assert.False(t, future.Truncated)
}

func TestCreateWritesAuditLog(t *testing.T) {
	env := newTestEnv(t, withAudit())
	customer := env.create(t, "Audited Person", "audited@example.com")

	var entry auditdomain.AuditLog
	require.NoError(t, env.db.Where("action = ?", "customer.create").Take(&entry).Error)
	assert.Equal(t, "customer", entry.TargetType)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, customer.ID.String(), *entry.TargetID)
	assert.Equal(t, "system", entry.ActorType)
	assert.Equal(t, customer.RegistrationNumber, entry.Metadata["registration_number"])
}
