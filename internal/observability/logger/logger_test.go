package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/ecoscape/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActor(ctx, "user", "42")
	ctx = obscontext.WithCorrelationID(ctx, "corr-1")

	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "corr-1", fields["correlation_id"])
	assert.Equal(t, "user", fields["actor_type"])
	assert.Equal(t, "42", fields["actor_id"])
}

func TestWithContextSkipsMissingFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	WithContext(context.Background(), zap.New(core)).Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].ContextMap())
}

func TestRedactCoreMasksCredentials(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(redactCore{Core: core}).With(zap.String("Authorization", "Bearer abc"))

	log.Info("login", zap.String("password", "hunter2"), zap.String("email", "kai@example.com"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, redacted, fields["Authorization"])
	assert.Equal(t, redacted, fields["password"])
	assert.Equal(t, "kai@example.com", fields["email"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestGinMiddlewareSetsIdentifiers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))

	var seenRequestID, seenCorrelationID string
	r.GET("/ping", func(c *gin.Context) {
		seenRequestID = obscontext.RequestIDFromContext(c.Request.Context())
		seenCorrelationID = obscontext.CorrelationIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerCorrelationID, "corr-from-client")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, seenRequestID)
	assert.Equal(t, seenRequestID, w.Header().Get(headerRequestID))
	assert.Equal(t, "corr-from-client", seenCorrelationID)
	assert.Equal(t, "corr-from-client", w.Header().Get(headerCorrelationID))
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("select * from customers"))
	assert.Equal(t, "UPDATE", operationFromSQL("  UPDATE sequences SET value = value + 1"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestTableFromSQL(t *testing.T) {
	assert.Equal(t, "customers", tableFromSQL(`SELECT * FROM "customers" WHERE id = $1`))
	assert.Equal(t, "maintenance_requests", tableFromSQL("INSERT INTO `maintenance_requests` (`id`) VALUES (?)"))
	assert.Equal(t, "sequences", tableFromSQL("UPDATE sequences SET value = value + 1"))
	assert.Equal(t, "", tableFromSQL("BEGIN"))
}

func TestParseGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, ParseGormLevel("off"))
	assert.Equal(t, gormlogger.Info, ParseGormLevel(" DEBUG "))
	assert.Equal(t, gormlogger.Warn, ParseGormLevel(""))
}

func TestGormLoggerSkipsNotFoundAndLogsSlowQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), GormLoggerConfig{Level: "warn", SlowThreshold: time.Minute})

	fc := func() (string, int64) { return "SELECT * FROM customers", 0 }
	l.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now().Add(-2*time.Minute), fc, nil)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "db.query_slow", entry.Message)
	assert.Equal(t, "customers", entry.ContextMap()["table"])
}
