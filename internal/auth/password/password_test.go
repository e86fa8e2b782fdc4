package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("admin123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$"))

	assert.True(t, Verify("admin123", encoded))
	assert.False(t, Verify("admin124", encoded))
}

func TestHashUsesFreshSalt(t *testing.T) {
	first, err := Hash("same-secret")
	require.NoError(t, err)
	second, err := Hash("same-secret")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain-text",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$***$a2V5",
	} {
		assert.False(t, Verify("secret", encoded), encoded)
	}
}
