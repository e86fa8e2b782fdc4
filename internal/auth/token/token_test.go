package token

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/ecoscape/internal/auth/domain"
	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/internal/config"
)

func testUser() *domain.User {
	return &domain.User{
		ID:    snowflake.ID(1234567),
		Email: "admin@ecoscapehub.com",
		Role:  domain.RoleAdmin,
	}
}

func TestIssueAndParse(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC))
	issuer := NewIssuer("secret", "ecoscape", time.Hour, fake)

	raw, expiresAt, err := issuer.Issue(testUser())
	require.NoError(t, err)
	assert.Equal(t, fake.Now().Add(time.Hour), expiresAt)

	principal, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1234567), principal.UserID)
	assert.Equal(t, "admin@ecoscapehub.com", principal.Email)
	assert.Equal(t, domain.RoleAdmin, principal.Role)
	assert.True(t, principal.ExpiresAt.Equal(expiresAt))
}

func TestParseExpired(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC))
	issuer := NewIssuer("secret", "ecoscape", time.Hour, fake)

	raw, _, err := issuer.Issue(testUser())
	require.NoError(t, err)

	fake.Advance(2 * time.Hour)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC))
	issuer := NewIssuer("secret", "ecoscape", time.Hour, fake)

	other := NewIssuer("other-secret", "ecoscape", time.Hour, fake)
	raw, _, err := other.Issue(testUser())
	require.NoError(t, err)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	wrongIssuer := NewIssuer("secret", "someone-else", time.Hour, fake)
	raw, _, err = wrongIssuer.Issue(testUser())
	require.NoError(t, err)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": "1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(unsigned)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = issuer.Parse("  ")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestProvideSecretRules(t *testing.T) {
	fake := clock.NewFakeClock(time.Now())

	_, err := Provide(config.Config{Environment: "production"}, zap.NewNop(), fake)
	assert.ErrorIs(t, err, ErrMissingSecret)

	issuer, err := Provide(config.Config{Environment: "development", AuthJWTIssuer: "ecoscape"}, zap.NewNop(), fake)
	require.NoError(t, err)
	raw, _, err := issuer.Issue(testUser())
	require.NoError(t, err)
	_, err = issuer.Parse(raw)
	assert.NoError(t, err)
}
