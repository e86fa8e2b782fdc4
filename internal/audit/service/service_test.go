package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
	"github.com/smallbiznis/ecoscape/internal/audit/repository"
	"github.com/smallbiznis/ecoscape/internal/auditcontext"
	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *clock.FakeClock, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, fake, conn
}

func TestAuditLogResolvesContextAndMasksPII(t *testing.T) {
	svc, _, conn := newTestService(t)

	ctx := auditcontext.WithActor(context.Background(), string(auditdomain.ActorTypeUser), "77")
	ctx = auditcontext.WithIPAddress(ctx, "10.1.1.1")
	ctx = auditcontext.WithRequestID(ctx, "req-9")

	target := "123"
	err := svc.AuditLog(ctx, "", nil, "customer.create", "customer", &target, map[string]any{
		"email": "jane@example.com",
		"phone": "555-000-1234",
	})
	require.NoError(t, err)

	var stored auditdomain.AuditLog
	require.NoError(t, conn.First(&stored).Error)
	assert.Equal(t, "user", stored.ActorType)
	require.NotNil(t, stored.ActorID)
	assert.Equal(t, "77", *stored.ActorID)
	require.NotNil(t, stored.IPAddress)
	assert.Equal(t, "10.1.1.1", *stored.IPAddress)
	assert.Equal(t, "j****@example.com", stored.Metadata["email"])
	assert.Equal(t, "****1234", stored.Metadata["phone"])
	require.NotNil(t, stored.RequestID)
	assert.Equal(t, "req-9", *stored.RequestID)
}

func TestAuditLogDefaultsToSystemActor(t *testing.T) {
	svc, _, conn := newTestService(t)

	require.NoError(t, svc.AuditLog(context.Background(), "", nil, "seed.admin", "", nil, nil))

	var stored auditdomain.AuditLog
	require.NoError(t, conn.First(&stored).Error)
	assert.Equal(t, "system", stored.ActorType)
	assert.Equal(t, "unknown", stored.TargetType)
	assert.ErrorIs(t, svc.AuditLog(context.Background(), "", nil, " ", "x", nil, nil), auditdomain.ErrInvalidAction)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, fake, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.AuditLog(ctx, "", nil, fmt.Sprintf("action.%d", i), "customer", nil, nil))
		fake.Advance(time.Minute)
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "action.4", first.AuditLogs[0].Action)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 2)
	assert.Equal(t, "action.2", second.AuditLogs[0].Action)

	third, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: second.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, third.AuditLogs, 1)
	assert.False(t, third.HasMore)
}

func TestListRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	start := time.Now()
	end := start.Add(-time.Hour)
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}

func TestListFiltersByActorAndRequest(t *testing.T) {
	svc, _, _ := newTestService(t)

	alice := auditcontext.WithRequestID(auditcontext.WithActor(context.Background(), "user", "1"), "req-a")
	bob := auditcontext.WithRequestID(auditcontext.WithActor(context.Background(), "user", "2"), "req-b")
	require.NoError(t, svc.AuditLog(alice, "", nil, "customer.update", auditdomain.TargetCustomer, nil, nil))
	require.NoError(t, svc.AuditLog(bob, "", nil, "customer.delete", auditdomain.TargetCustomer, nil, nil))

	byActor, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{ActorType: "user", ActorID: "2"})
	require.NoError(t, err)
	require.Len(t, byActor.AuditLogs, 1)
	assert.Equal(t, "customer.delete", byActor.AuditLogs[0].Action)

	byRequest, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{RequestID: "req-a"})
	require.NoError(t, err)
	require.Len(t, byRequest.AuditLogs, 1)
	assert.Equal(t, "customer.update", byRequest.AuditLogs[0].Action)
}
