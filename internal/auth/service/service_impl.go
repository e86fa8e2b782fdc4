package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
	"github.com/smallbiznis/ecoscape/internal/auth/domain"
	"github.com/smallbiznis/ecoscape/internal/auth/password"
	"github.com/smallbiznis/ecoscape/internal/auth/token"
	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/pkg/db"
)

const minNameLength = 2

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Tokens   *token.Issuer
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	tokens   *token.Issuer
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("auth.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		tokens:   p.Tokens,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if len(name) < minNameLength {
		return nil, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(req.Password) < password.MinLength {
		return nil, domain.ErrWeakPassword
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		s.log.Info("login rejected", zap.String("user_id", user.ID.String()), zap.String("ip_address", req.IPAddress))
		return nil, domain.ErrInvalidCredentials
	}

	raw, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if s.auditSvc != nil {
		actorID := user.ID.String()
		_ = s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeUser), &actorID, "auth.login", auditdomain.TargetUser, &actorID, map[string]any{
			"email":      user.Email,
			"user_agent": strings.TrimSpace(req.UserAgent),
		})
	}

	return &domain.LoginResult{
		Token:     raw,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error) {
	return s.tokens.Parse(rawToken)
}

func (s *Service) CurrentUser(ctx context.Context, userID snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
