package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/store"
)

func newRepo() *Repository[crud.Record] {
	return New[crud.Record](store.NewMemoryGateway[crud.Record]("records"))
}

func TestCreateAndGetByIDOrFilter(t *testing.T) {
	ctx := context.Background()
	r := newRepo()
	created, err := r.CreateDocument(ctx, crud.Record{"name": "a"})
	require.NoError(t, err)
	id := created.Identifier()
	require.NotEmpty(t, id)
	assert.Contains(t, created, crud.CreatedAtField)
	assert.Contains(t, created, crud.UpdatedAtField)

	byID, err := r.GetDocument(ctx, crud.ByID(id))
	require.NoError(t, err)
	byFilter, err := r.GetDocument(ctx, crud.ByFilter(crud.Filter{"_id": id}))
	require.NoError(t, err)
	assert.Equal(t, byID, byFilter)
	assert.Equal(t, "a", byID["name"])

	miss, err := r.GetDocument(ctx, crud.ByFilter(crud.Filter{"name": "zzz"}))
	require.NoError(t, err)
	assert.True(t, crud.IsEmpty(miss))
}

func TestGetDocumentsNeverNil(t *testing.T) {
	r := newRepo()
	docs, err := r.GetDocuments(context.Background(), nil, store.FindOptions{})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestCreateDocuments(t *testing.T) {
	ctx := context.Background()
	r := newRepo()
	docs, err := r.CreateDocuments(ctx, []crud.Record{{"n": 1}, {"n": 2}})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.NotEqual(t, docs[0].Identifier(), docs[1].Identifier())

	all, err := r.GetDocuments(ctx, crud.Filter{}, store.FindOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateDocumentRejectsBadID(t *testing.T) {
	_, err := newRepo().CreateDocument(context.Background(), crud.Record{"_id": "nope"})
	rec := apperrors.Translate(err)
	assert.Equal(t, 404, rec.StatusCode)
	assert.Equal(t, "No item found with nope", rec.Message)
}

func TestUpdateDocumentOutcomes(t *testing.T) {
	ctx := context.Background()
	r := newRepo()
	created, err := r.CreateDocument(ctx, crud.Record{"name": "a"})
	require.NoError(t, err)
	sel := crud.ByID(created.Identifier())

	ok, err := r.UpdateDocument(ctx, sel, crud.Update{"name": "b"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.UpdateDocument(ctx, sel, crud.Update{"name": "b"})
	assert.False(t, ok)
	require.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
	assert.Equal(t, "Unable to update document!", apperrors.Translate(err).Message)

	ok, err = r.UpdateDocument(ctx, crud.ByID("000000000000000000000000"), crud.Update{"name": "c"})
	assert.False(t, ok)
	require.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	assert.Equal(t, "No document found to update!", apperrors.Translate(err).Message)
}

func TestFindAndUpdateDocument(t *testing.T) {
	ctx := context.Background()
	r := newRepo()
	created, err := r.CreateDocument(ctx, crud.Record{"name": "a"})
	require.NoError(t, err)

	got, err := r.FindAndUpdateDocument(ctx, crud.ByFilter(crud.Filter{"name": "a"}), crud.Update{"name": "z"})
	require.NoError(t, err)
	assert.Equal(t, created.Identifier(), got.Identifier())
	assert.Equal(t, "z", got["name"])

	miss, err := r.FindAndUpdateDocument(ctx, crud.ByFilter(crud.Filter{"name": "a"}), crud.Update{"name": "y"})
	require.NoError(t, err)
	assert.True(t, crud.IsEmpty(miss))
}

func TestDeleteDocumentIsNotIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newRepo()
	created, err := r.CreateDocument(ctx, crud.Record{"name": "a"})
	require.NoError(t, err)

	ok, err := r.DeleteDocument(ctx, crud.ByID(created.Identifier()))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.DeleteDocument(ctx, crud.ByID(created.Identifier()))
	require.NoError(t, err)
	assert.False(t, ok)
}
