package migration

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/ecoscape/internal/config"
	"github.com/smallbiznis/ecoscape/internal/seed"
	"github.com/smallbiznis/ecoscape/pkg/db"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Apply(conn, cfg.DBType); err != nil {
			return err
		}
		if !cfg.Bootstrap.EnsureAdmin {
			return nil
		}
		return seed.EnsureAdmin(context.Background(), conn, seed.Admin{
			Name:     cfg.Bootstrap.AdminName,
			Email:    cfg.Bootstrap.AdminEmail,
			Password: cfg.Bootstrap.AdminPassword,
		}, log)
	}),
)

// Apply migrates conn with the strategy of its dialect.
func Apply(conn *gorm.DB, dialect string) error {
	if dialect != db.TypePostgres {
		return AutoMigrate(conn)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
