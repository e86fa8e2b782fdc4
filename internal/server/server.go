package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/ecoscape/internal/audit"
	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
	"github.com/smallbiznis/ecoscape/internal/auth"
	authdomain "github.com/smallbiznis/ecoscape/internal/auth/domain"
	"github.com/smallbiznis/ecoscape/internal/authorization"
	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/internal/config"
	"github.com/smallbiznis/ecoscape/internal/customer"
	customerdomain "github.com/smallbiznis/ecoscape/internal/customer/domain"
	"github.com/smallbiznis/ecoscape/internal/maintenance"
	maintenancedomain "github.com/smallbiznis/ecoscape/internal/maintenance/domain"
	"github.com/smallbiznis/ecoscape/internal/observability"
	obsmiddleware "github.com/smallbiznis/ecoscape/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ecoscape/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ecoscape/internal/observability/tracing"
	"github.com/smallbiznis/ecoscape/internal/providers/pdf"
	"github.com/smallbiznis/ecoscape/internal/ratelimit"
	"github.com/smallbiznis/ecoscape/internal/sequence"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	sequence.Module,
	customer.Module,
	maintenance.Module,
	pdf.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	registerValidation()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.MiddlewareConfig{ErrorClassifier: classifyErrorForLog}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	log            *zap.Logger
	clock          clock.Clock
	authsvc        authdomain.Service
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	customerSvc    customerdomain.Service
	maintenanceSvc maintenancedomain.Service
	pdf            pdf.Provider
	loginLimiter   *ratelimit.LoginLimiter
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Log            *zap.Logger
	Clock          clock.Clock
	Authsvc        authdomain.Service
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
	CustomerSvc    customerdomain.Service
	MaintenanceSvc maintenancedomain.Service
	PDF            pdf.Provider
	LoginLimiter   *ratelimit.LoginLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		log:            p.Log.Named("http.server"),
		clock:          p.Clock,
		authsvc:        p.Authsvc,
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		customerSvc:    p.CustomerSvc,
		maintenanceSvc: p.MaintenanceSvc,
		pdf:            p.PDF,
		loginLimiter:   p.LoginLimiter,
		obsMetrics:     p.ObsMetrics,
	}
	if svc.clock == nil {
		svc.clock = clock.New()
	}

	svc.registerAuthRoutes()
	svc.registerCustomerRoutes()
	svc.registerMaintenanceRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/login", s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerCustomerRoutes() {
	customers := s.engine.Group("/api/customers", s.AuthRequired())
	{
		customers.GET("", s.Authorize(authorization.ObjectCustomer, authorization.ActionCustomerView), s.ListCustomers)
		customers.GET("/stats/overview", s.Authorize(authorization.ObjectCustomer, authorization.ActionCustomerStats), s.CustomerStats)
		customers.GET("/reports/customers", s.Authorize(authorization.ObjectCustomer, authorization.ActionCustomerReport), s.CustomerReport)
		customers.GET("/:id", s.Authorize(authorization.ObjectCustomer, authorization.ActionCustomerView), s.GetCustomerByID)
		customers.POST("", s.Authorize(authorization.ObjectCustomer, authorization.ActionCustomerCreate), s.CreateCustomer)
		customers.PUT("/:id", s.Authorize(authorization.ObjectCustomer, authorization.ActionCustomerUpdate), s.UpdateCustomer)
		customers.DELETE("/:id", s.Authorize(authorization.ObjectCustomer, authorization.ActionCustomerDelete), s.DeleteCustomer)
	}
}

func (s *Server) registerMaintenanceRoutes() {
	requests := s.engine.Group("/api/maintenance", s.AuthRequired())
	{
		requests.GET("", s.Authorize(authorization.ObjectMaintenance, authorization.ActionMaintenanceView), s.ListMaintenanceRequests)
		requests.GET("/stats/overview", s.Authorize(authorization.ObjectMaintenance, authorization.ActionMaintenanceStats), s.MaintenanceStats)
		requests.GET("/reports/services", s.Authorize(authorization.ObjectMaintenance, authorization.ActionMaintenanceReport), s.ServiceReport)
		requests.GET("/:id", s.Authorize(authorization.ObjectMaintenance, authorization.ActionMaintenanceView), s.GetMaintenanceRequest)
		requests.POST("", s.Authorize(authorization.ObjectMaintenance, authorization.ActionMaintenanceCreate), s.CreateMaintenanceRequest)
		requests.PUT("/:id/status", s.Authorize(authorization.ObjectMaintenance, authorization.ActionMaintenanceUpdateStatus), s.UpdateMaintenanceStatus)
		requests.PUT("/:id", s.Authorize(authorization.ObjectMaintenance, authorization.ActionMaintenanceUpdate), s.UpdateMaintenanceRequest)
		requests.DELETE("/:id", s.Authorize(authorization.ObjectMaintenance, authorization.ActionMaintenanceDelete), s.DeleteMaintenanceRequest)
		requests.POST("/:id/notes", s.Authorize(authorization.ObjectMaintenance, authorization.ActionMaintenanceNote), s.AddMaintenanceNote)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired())
	{
		admin.GET("/audit-logs", s.Authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
	}
}
