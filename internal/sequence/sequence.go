// Package sequence allocates monotonically increasing counters stored in the
// sequences table. Allocation must run inside the caller's transaction so the
// counter row stays locked until the consuming insert commits.
package sequence

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/ecoscape/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("sequence",
	fx.Provide(New),
)

const (
	NameCustomer = "customer_registration"
)

// MaintenanceRequestName scopes request numbers to the calendar month of at.
func MaintenanceRequestName(at time.Time) string {
	return "maintenance_request:" + at.UTC().Format("200601")
}

var ErrInvalidName = errors.New("invalid_sequence_name")

// Sequence is one named counter. Value is the last allocated number.
type Sequence struct {
	Name      string    `gorm:"primaryKey;size:64"`
	Value     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Sequence) TableName() string { return "sequences" }

// SeedFunc returns the value the counter should start from when its row does
// not exist yet. The next allocation returns seed+1.
type SeedFunc func(ctx context.Context, tx *gorm.DB) (int64, error)

type Allocator struct{}

func New() *Allocator {
	return &Allocator{}
}

// Next increments the named counter and returns the new value.
func (a *Allocator) Next(ctx context.Context, tx *gorm.DB, name string, seed SeedFunc) (int64, error) {
	if name == "" {
		return 0, ErrInvalidName
	}

	ok, err := a.increment(ctx, tx, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		var start int64
		if seed != nil {
			start, err = seed(ctx, tx)
			if err != nil {
				return 0, err
			}
		}
		if start < 0 {
			start = 0
		}
		insertErr := tx.WithContext(ctx).Exec(
			`INSERT INTO sequences (name, value, updated_at) VALUES (?, ?, ?)`,
			name, start+1, time.Now().UTC(),
		).Error
		switch {
		case insertErr == nil:
			return start + 1, nil
		case db.IsDuplicateKeyErr(insertErr):
			// Bootstrapped concurrently; take the next value from the winner.
			if _, err := a.increment(ctx, tx, name); err != nil {
				return 0, err
			}
		default:
			return 0, insertErr
		}
	}

	return a.current(ctx, tx, name)
}

func (a *Allocator) increment(ctx context.Context, tx *gorm.DB, name string) (bool, error) {
	res := tx.WithContext(ctx).Exec(
		`UPDATE sequences SET value = value + 1, updated_at = ? WHERE name = ?`,
		time.Now().UTC(), name,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (a *Allocator) current(ctx context.Context, tx *gorm.DB, name string) (int64, error) {
	var value int64
	err := tx.WithContext(ctx).Raw(
		`SELECT value FROM sequences WHERE name = ?`,
		name,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

// AdvanceTo raises the named counter to at least floor. It never lowers it and
// is a no-op when the counter does not exist yet.
func (a *Allocator) AdvanceTo(ctx context.Context, tx *gorm.DB, name string, floor int64) error {
	if name == "" {
		return ErrInvalidName
	}
	return tx.WithContext(ctx).Exec(
		`UPDATE sequences SET value = ?, updated_at = ? WHERE name = ? AND value < ?`,
		floor, time.Now().UTC(), name, floor,
	).Error
}
