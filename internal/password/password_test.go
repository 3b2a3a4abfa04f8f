package password

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
)

func newHasher() *Hasher {
	return NewHasher(bcrypt.MinCost, regexp.MustCompile(`^[A-Za-z\d@$!%*#?&]{8,}$`))
}

func TestHashAndCompare(t *testing.T) {
	h := newHasher()
	hash, err := h.Hash("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", hash)

	ok, err := h.Compare("s3cretpass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare("wrongpass1", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompareMissingInput(t *testing.T) {
	h := newHasher()
	_, err := h.Compare("", "x")
	require.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
	assert.Equal(t, "Enter value properly", apperrors.Translate(err).Message)

	_, err = h.Compare("pw", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))

	_, err = h.Compare("pw", "not-a-bcrypt-hash")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func TestCheckPattern(t *testing.T) {
	h := newHasher()
	assert.True(t, h.CheckPattern("abcd1234"))
	assert.True(t, h.CheckPattern("P@ssw0rd!"))
	assert.False(t, h.CheckPattern("abcdefgh"), "no digit")
	assert.False(t, h.CheckPattern("12345678"), "no letter")
	assert.False(t, h.CheckPattern("ab12"), "too short")
	assert.False(t, h.CheckPattern("abcd 1234"), "space not allowed")
}

func TestNewHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99, nil).cost)
}
