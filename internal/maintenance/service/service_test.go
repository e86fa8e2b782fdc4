package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/ecoscape/internal/auditcontext"
	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/internal/config"
	customerdomain "github.com/smallbiznis/ecoscape/internal/customer/domain"
	customerrepository "github.com/smallbiznis/ecoscape/internal/customer/repository"
	customerservice "github.com/smallbiznis/ecoscape/internal/customer/service"
	"github.com/smallbiznis/ecoscape/internal/maintenance/domain"
	"github.com/smallbiznis/ecoscape/internal/maintenance/repository"
	"github.com/smallbiznis/ecoscape/internal/migration"
	"github.com/smallbiznis/ecoscape/internal/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, time.May, 12, 14, 30, 0, 0, time.UTC)

// countingCustomers records completed-service calls and can be made to fail.
type countingCustomers struct {
	customerdomain.Service
	completed []float64
	fail      bool
}

func (c *countingCustomers) RecordCompletedService(ctx context.Context, id snowflake.ID, amount float64) (customerdomain.Customer, error) {
	c.completed = append(c.completed, amount)
	if c.fail {
		return customerdomain.Customer{}, errors.New("customer store unavailable")
	}
	return c.Service.RecordCompletedService(ctx, id, amount)
}

type testEnv struct {
	svc       *Service
	customers *countingCustomers
	clock     *clock.FakeClock
	db        *gorm.DB
	node      *snowflake.Node
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fake := clock.NewFakeClock(testNow)
	seq := sequence.New()
	report := config.NewStaticReportConfigHolder(config.DefaultReportConfig())

	customers := &countingCustomers{Service: customerservice.New(customerservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     customerrepository.Provide(),
		Sequence: seq,
		Report:   report,
	})}

	svc := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Repo:      repository.Provide(),
		Sequence:  seq,
		Customers: customers,
		Report:    report,
	}).(*Service)

	return &testEnv{svc: svc, customers: customers, clock: fake, db: conn, node: node}
}

func (e *testEnv) newCustomer(t *testing.T, email string) customerdomain.Customer {
	t.Helper()
	res, err := e.customers.Create(context.Background(), customerdomain.CreateCustomerRequest{
		Name:  "Garden Owner",
		Email: email,
		Phone: "555-010-3000",
		Address: customerdomain.Address{
			Street:  "9 Oak Street",
			City:    "Salem",
			State:   "OR",
			ZipCode: "97301",
		},
	})
	require.NoError(t, err)
	return res.Customer
}

func (e *testEnv) newRequest(t *testing.T, customerID snowflake.ID, estimate float64) domain.MaintenanceRequest {
	t.Helper()
	request, err := e.svc.Create(context.Background(), domain.CreateRequest{
		CustomerID:    customerID.String(),
		ServiceType:   string(domain.ServiceTypeCleanup),
		Description:   "Clear fallen leaves from the lawn",
		EstimatedCost: &estimate,
	})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	return request
}

func TestCreateNumbersRequestsPerMonth(t *testing.T) {
	env := newTestEnv(t)
	customer := env.newCustomer(t, "owner@example.com")

	first := env.newRequest(t, customer.ID, 100)
	second := env.newRequest(t, customer.ID, 100)
	assert.Equal(t, "MR2026050001", first.RequestNumber)
	assert.Equal(t, "MR2026050002", second.RequestNumber)
	assert.Equal(t, domain.StatusPending, first.Status)
	assert.Equal(t, domain.PriorityMedium, first.Priority)
	require.NotNil(t, first.Customer)
	assert.Equal(t, customer.RegistrationNumber, first.Customer.RegistrationNumber)
	require.Len(t, first.Notes, 1)
	assert.Equal(t, "Maintenance request created", first.Notes[0].Message)

	env.clock.Set(time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC))
	june := env.newRequest(t, customer.ID, 100)
	assert.Equal(t, "MR2026060001", june.RequestNumber)
}

func TestCreateValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.newCustomer(t, "owner@example.com")
	negative := -5.0

	cases := []struct {
		name string
		req  domain.CreateRequest
		err  error
	}{
		{"bad customer id", domain.CreateRequest{CustomerID: "x", ServiceType: "cleanup", Description: "Long enough text"}, domain.ErrInvalidCustomer},
		{"unknown customer", domain.CreateRequest{CustomerID: env.node.Generate().String(), ServiceType: "cleanup", Description: "Long enough text"}, domain.ErrCustomerNotFound},
		{"bad service type", domain.CreateRequest{CustomerID: customer.ID.String(), ServiceType: "mowing", Description: "Long enough text"}, domain.ErrInvalidServiceType},
		{"short description", domain.CreateRequest{CustomerID: customer.ID.String(), ServiceType: "cleanup", Description: "too short"}, domain.ErrInvalidDescription},
		{"bad priority", domain.CreateRequest{CustomerID: customer.ID.String(), ServiceType: "cleanup", Description: "Long enough text", Priority: "asap"}, domain.ErrInvalidPriority},
		{"negative cost", domain.CreateRequest{CustomerID: customer.ID.String(), ServiceType: "cleanup", Description: "Long enough text", EstimatedCost: &negative}, domain.ErrInvalidCost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	var total int64
	require.NoError(t, env.db.Model(&domain.MaintenanceRequest{}).Count(&total).Error)
	assert.Zero(t, total)
}

func TestCompletionRecordsServiceOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.newCustomer(t, "owner@example.com")
	request := env.newRequest(t, customer.ID, 180)

	res, err := env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: request.ID.String(), Status: "in-progress"})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, env.customers.completed)

	finalCost := 250.0
	res, err = env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
		ID:        request.ID.String(),
		Status:    "completed",
		FinalCost: &finalCost,
		Note:      "Job done",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, domain.StatusCompleted, res.Request.Status)
	require.NotNil(t, res.Request.CompletedDate)
	assert.Equal(t, []float64{250}, env.customers.completed)
	assert.Equal(t, "Job done", res.Request.Notes[len(res.Request.Notes)-1].Message)

	// Completing again is not a transition and must not count twice.
	res, err = env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: request.ID.String(), Status: "completed"})
	require.NoError(t, err)
	assert.Len(t, env.customers.completed, 1)

	stored, err := env.customers.GetByID(ctx, customerdomain.GetCustomerRequest{ID: customer.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ServiceCount)
	assert.InDelta(t, 250, stored.TotalSpent, 0.001)
	require.NotNil(t, stored.LastServiceDate)
}

func TestCompletionFallsBackToEstimate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.newCustomer(t, "owner@example.com")
	request := env.newRequest(t, customer.ID, 120)

	completed := string(domain.StatusCompleted)
	res, err := env.svc.Update(ctx, domain.UpdateRequest{ID: request.ID.String(), Status: &completed})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []float64{120}, env.customers.completed)
}

func TestCompletionWarnsWhenCustomerUpdateFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.newCustomer(t, "owner@example.com")
	request := env.newRequest(t, customer.ID, 90)
	env.customers.fail = true

	res, err := env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: request.ID.String(), Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, []string{domain.WarningCustomerServiceFailed}, res.Warnings)
	assert.Equal(t, domain.StatusCompleted, res.Request.Status)
}

func TestUpdateStatusRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.newCustomer(t, "owner@example.com")
	request := env.newRequest(t, customer.ID, 50)

	_, err := env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: request.ID.String(), Status: "done"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	bad := "nobody"
	_, err = env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: request.ID.String(), Status: "scheduled", AssignedTo: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidAssignee)

	_, err = env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: env.node.Generate().String(), Status: "scheduled"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: "x", Status: "scheduled"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestDeleteOnlyPendingOrCancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.newCustomer(t, "owner@example.com")

	pending := env.newRequest(t, customer.ID, 10)
	require.NoError(t, env.svc.Delete(ctx, pending.ID.String()))
	_, err := env.svc.GetByID(ctx, pending.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	scheduled := env.newRequest(t, customer.ID, 10)
	_, err = env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: scheduled.ID.String(), Status: "scheduled"})
	require.NoError(t, err)
	assert.ErrorIs(t, env.svc.Delete(ctx, scheduled.ID.String()), domain.ErrNotDeletable)

	_, err = env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: scheduled.ID.String(), Status: "cancelled"})
	require.NoError(t, err)
	require.NoError(t, env.svc.Delete(ctx, scheduled.ID.String()))

	var notes int64
	require.NoError(t, env.db.Model(&domain.MaintenanceNote{}).Where("request_id = ?", scheduled.ID).Count(&notes).Error)
	assert.Zero(t, notes)
}

func TestAddNoteRecordsAuthor(t *testing.T) {
	env := newTestEnv(t)
	customer := env.newCustomer(t, "owner@example.com")
	request := env.newRequest(t, customer.ID, 10)

	ctx := auditcontext.WithActor(context.Background(), "user", "4242")
	hidden := false
	updated, err := env.svc.AddNote(ctx, domain.AddNoteRequest{ID: request.ID.String(), Message: " Gate code 1234 ", IsCustomerVisible: &hidden})
	require.NoError(t, err)
	require.Len(t, updated.Notes, 2)
	note := updated.Notes[1]
	assert.Equal(t, "Gate code 1234", note.Message)
	assert.False(t, note.IsCustomerVisible)
	require.NotNil(t, note.AuthorID)
	assert.Equal(t, snowflake.ID(4242), *note.AuthorID)

	_, err = env.svc.AddNote(ctx, domain.AddNoteRequest{ID: request.ID.String(), Message: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidNote)
}

func TestListFiltersByStatusAndCustomer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.newCustomer(t, "first@example.com")
	second := env.newCustomer(t, "second@example.com")

	a := env.newRequest(t, first.ID, 10)
	env.newRequest(t, first.ID, 10)
	env.newRequest(t, second.ID, 10)
	_, err := env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: a.ID.String(), Status: "in-progress"})
	require.NoError(t, err)

	all, err := env.svc.List(ctx, domain.ListRequest{Status: "all"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	require.Len(t, all.Requests, 3)
	assert.Equal(t, second.ID, all.Requests[0].CustomerID)

	active, err := env.svc.List(ctx, domain.ListRequest{Status: "in-progress"})
	require.NoError(t, err)
	require.Len(t, active.Requests, 1)
	assert.Equal(t, a.ID, active.Requests[0].ID)

	mine, err := env.svc.List(ctx, domain.ListRequest{CustomerID: first.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)

	byCustomer, err := env.svc.ListByCustomer(ctx, second.ID)
	require.NoError(t, err)
	assert.Len(t, byCustomer, 1)

	_, err = env.svc.List(ctx, domain.ListRequest{Priority: "asap"})
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)
}

func TestStatsAndReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.newCustomer(t, "owner@example.com")

	done := env.newRequest(t, customer.ID, 300)
	env.newRequest(t, customer.ID, 40)
	urgent, err := env.svc.Create(ctx, domain.CreateRequest{
		CustomerID:  customer.ID.String(),
		ServiceType: string(domain.ServiceTypeIrrigation),
		Description: "Broken sprinkler head near the driveway",
		Priority:    string(domain.PriorityUrgent),
	})
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: urgent.ID.String(), Status: "in-progress"})
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: done.ID.String(), Status: "completed"})
	require.NoError(t, err)

	stats, err := env.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.PendingRequests)
	assert.Equal(t, int64(1), stats.InProgressRequests)
	assert.Equal(t, int64(1), stats.CompletedThisMonth)
	require.NotEmpty(t, stats.ServiceTypeStats)
	assert.Equal(t, domain.GroupCount{Key: "cleanup", Count: 2}, stats.ServiceTypeStats[0])
	assert.Len(t, stats.PriorityStats, 2)

	report, err := env.svc.Report(ctx, domain.ReportRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalCount)
	assert.InDelta(t, 300, report.TotalRevenue, 0.001)

	completed, err := env.svc.Report(ctx, domain.ReportRequest{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, completed.Requests, 1)
	assert.Equal(t, "completed", completed.Filters.Status)

	_, err = env.svc.Report(ctx, domain.ReportRequest{ServiceType: "mowing"})
	assert.ErrorIs(t, err, domain.ErrInvalidServiceType)
}
