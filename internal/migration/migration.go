package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
	authdomain "github.com/smallbiznis/ecoscape/internal/auth/domain"
	customerdomain "github.com/smallbiznis/ecoscape/internal/customer/domain"
	maintenancedomain "github.com/smallbiznis/ecoscape/internal/maintenance/domain"
	"github.com/smallbiznis/ecoscape/internal/sequence"
)

// RunMigrations applies the embedded SQL migrations to a postgres database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&sequence.Sequence{},
		&customerdomain.Customer{},
		&customerdomain.ReferralEvent{},
		&maintenancedomain.MaintenanceRequest{},
		&maintenancedomain.MaintenanceNote{},
		&authdomain.User{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate creates the schema on dialects without SQL migrations (sqlite, mysql).
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
