package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/smallbiznis/ecoscape/internal/auth/domain"
	"github.com/smallbiznis/ecoscape/internal/auth/password"
	"github.com/smallbiznis/ecoscape/pkg/repository"
)

const (
	defaultAdminName     = "EcoScape Admin"
	defaultAdminEmail    = "admin@ecoscapehub.com"
	defaultAdminPassword = "admin123"
)

// Admin describes the bootstrap administrator.
type Admin struct {
	Name     string
	Email    string
	Password string
}

// EnsureAdmin creates the bootstrap admin user when no user with its email exists.
// An existing account is left untouched, including its password.
func EnsureAdmin(ctx context.Context, db *gorm.DB, admin Admin, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	admin = withDefaults(admin)

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.ProvideStore[authdomain.User](tx)
		existing, err := users.FindOne(ctx, &authdomain.User{Email: admin.Email})
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Role != authdomain.RoleAdmin {
				log.Warn("bootstrap admin email belongs to a non-admin user", zap.String("user_id", existing.ID.String()))
			}
			return nil
		}

		hashed, err := password.Hash(admin.Password)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user := authdomain.User{
			ID:           node.Generate(),
			Name:         admin.Name,
			Email:        admin.Email,
			PasswordHash: hashed,
			Role:         authdomain.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, &user); err != nil {
			return err
		}
		log.Info("bootstrap admin created", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
		return nil
	})
}

func withDefaults(admin Admin) Admin {
	admin.Name = strings.TrimSpace(admin.Name)
	if admin.Name == "" {
		admin.Name = defaultAdminName
	}
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	if admin.Email == "" {
		admin.Email = defaultAdminEmail
	}
	if admin.Password == "" {
		admin.Password = defaultAdminPassword
	}
	return admin
}
