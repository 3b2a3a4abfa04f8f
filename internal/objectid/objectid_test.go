package objectid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
)

func TestValid(t *testing.T) {
	assert.True(t, Valid("000000000000000000000000"))
	assert.True(t, Valid(primitive.NewObjectID().Hex()))
	assert.False(t, Valid("not-an-id"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("0123456789ab"))
	assert.False(t, Valid("zzzzzzzzzzzzzzzzzzzzzzzz"))
}

func TestValidate_InvalidIdentifier(t *testing.T) {
	err := Validate("not-an-id")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidIdentifier))

	rec := apperrors.Translate(err)
	assert.Equal(t, 403, rec.StatusCode)
	assert.Equal(t, "Forbidden", rec.Name)
	assert.Equal(t, "Id is invalid!", rec.Message)
}

func TestValidateValue(t *testing.T) {
	good := primitive.NewObjectID()
	assert.NoError(t, ValidateValue(good.Hex()))
	assert.NoError(t, ValidateValue(good))
	assert.NoError(t, ValidateValue([]string{good.Hex(), good.Hex()}))
	assert.NoError(t, ValidateValue(map[string]any{"$in": []any{good.Hex()}}))

	assert.Error(t, ValidateValue(primitive.NilObjectID))
	assert.Error(t, ValidateValue([]string{good.Hex(), "bad"}))
	assert.Error(t, ValidateValue(map[string]any{"$in": []any{"bad"}}))
	assert.Error(t, ValidateValue(42))
}
