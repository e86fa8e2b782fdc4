// Package token issues and verifies the HS256 bearer tokens used by the API.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/smallbiznis/ecoscape/internal/auth/domain"
	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/internal/config"
)

const randomSecretBytes = 32

var ErrMissingSecret = errors.New("jwt_secret_required")

// Claims is the JWT payload.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
	parser *jwt.Parser
}

// Provide builds the issuer from application config. Outside production an
// empty secret is replaced by a random one, which invalidates tokens on restart.
func Provide(cfg config.Config, log *zap.Logger, clk clock.Clock) (*Issuer, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		buf := make([]byte, randomSecretBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		secret = string(buf)
		log.Named("auth.token").Warn("JWT_SECRET not set, using an ephemeral signing key")
	}
	return NewIssuer(secret, cfg.AuthJWTIssuer, cfg.AuthTokenTTL, clk), nil
}

func NewIssuer(secret, issuer string, ttl time.Duration, clk clock.Clock) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(clk.Now),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		clock:  clk,
		parser: jwt.NewParser(opts...),
	}
}

// Issue signs a token for user and returns it with its expiry.
func (i *Issuer) Issue(user *domain.User) (string, time.Time, error) {
	now := i.clock.Now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies raw and returns the principal it carries.
func (i *Issuer) Parse(raw string) (*domain.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}

	var claims Claims
	tok, err := i.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	if !tok.Valid {
		return nil, domain.ErrInvalidToken
	}

	userID, err := snowflake.ParseString(claims.UserID)
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidToken
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, domain.ErrInvalidToken
	}

	principal := &domain.Principal{
		UserID: userID,
		Email:  claims.Email,
		Role:   role,
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}
