// Package domain contains core types for the auth service.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the coarse permission group of a user. Fine-grained checks live in authorization.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleAdmin      Role = "admin"
	RoleLandscaper Role = "landscaper"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleLandscaper:
		return true
	default:
		return false
	}
}

// ParseRole normalizes a role string; empty input yields RoleCustomer.
func ParseRole(raw string) (Role, error) {
	value := Role(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return RoleCustomer, nil
	}
	if !value.Valid() {
		return "", ErrInvalidRole
	}
	return value, nil
}

// User represents a staff or customer login.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"type:varchar(100);not null" json:"name"`
	Email        string       `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null" json:"-"`
	Role         Role         `gorm:"type:varchar(20);not null;default:'customer';index" json:"role"`
	CreatedAt    time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Principal is the authenticated identity carried by a bearer token.
type Principal struct {
	UserID    snowflake.ID
	Email     string
	Role      Role
	ExpiresAt time.Time
}
