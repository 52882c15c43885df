package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, Verify("correct horse", hash))
	assert.False(t, Verify("battery staple", hash))
}

func TestHashOutOfRangeCostFallsBack(t *testing.T) {
	hash, err := Hash("secret123", 0)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, cost)
}

func TestHashTooLong(t *testing.T) {
	_, err := Hash(strings.Repeat("a", 100), bcrypt.MinCost)
	assert.True(t, IsTooLong(err))
}

func TestVerifyGarbageHash(t *testing.T) {
	assert.False(t, Verify("secret", "not-a-hash"))
}
