package crud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
)

type note struct {
	Base  `bson:",inline"`
	Title string `bson:"title" json:"title"`
}

func TestSelector_IDEquivalentToFilter(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	assert.Equal(t, ByFilter(Filter{"_id": id}).Filter(), ByID(id).Filter())

	s := ByID(id)
	require.True(t, s.IsID())
	assert.Equal(t, id, s.ID())
	v, ok := s.IDValue()
	assert.True(t, ok)
	assert.Equal(t, id, v)
}

func TestSelector_NilFilterMatchesAll(t *testing.T) {
	s := ByFilter(nil)
	assert.False(t, s.IsID())
	assert.Equal(t, Filter{}, s.Filter())
	_, ok := s.IDValue()
	assert.False(t, ok)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(Record(nil)))
	assert.True(t, IsEmpty(Record{}))
	assert.True(t, IsEmpty(Record{"name": "no id"}))
	assert.False(t, IsEmpty(Record{"_id": primitive.NewObjectID()}))

	var n *note
	assert.True(t, IsEmpty(n))
	assert.True(t, IsEmpty(&note{}))
	assert.False(t, IsEmpty(&note{Base: Base{ID: primitive.NewObjectID()}}))

	assert.True(t, IsNil(n))
	assert.True(t, IsNil(Record{}))
	assert.False(t, IsNil(&note{}))
	assert.False(t, IsNil(Record{"name": "no id"}))
}

func TestRecordPrepare(t *testing.T) {
	now := time.Now().UTC()
	r := Record{"name": "a"}
	require.NoError(t, r.Prepare(now))
	assert.NotEmpty(t, r.Identifier())
	assert.Equal(t, now, r[CreatedAtField])
	assert.Equal(t, now, r[UpdatedAtField])

	hex := primitive.NewObjectID().Hex()
	r2 := Record{"_id": hex}
	require.NoError(t, r2.Prepare(now))
	assert.Equal(t, hex, r2.Identifier())
	assert.IsType(t, primitive.ObjectID{}, r2["_id"])

	err := Record{"_id": "bogus"}.Prepare(now)
	require.Error(t, err)
	assert.Equal(t, "No item found with bogus", apperrors.Translate(err).Message)
}

func TestBasePrepareKeepsID(t *testing.T) {
	id := primitive.NewObjectID()
	n := &note{Base: Base{ID: id}}
	require.NoError(t, n.Prepare(time.Now()))
	assert.Equal(t, id.Hex(), n.Identifier())
	assert.False(t, n.CreatedAt.IsZero())
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)
}
